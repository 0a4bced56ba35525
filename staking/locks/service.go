// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package locks

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lockfi/stakelock/slot"
	"github.com/lockfi/stakelock/stakelock"
)

var slotLocks = stakelock.BytesToBytes32([]byte("locked-balances"))

// Service manages the locked-balance records.
type Service struct {
	locks *slot.Mapping[stakelock.Address, *LockedBalance]
}

func New(sctx *slot.Context) *Service {
	return &Service{
		locks: slot.NewMapping[stakelock.Address, *LockedBalance](sctx, slotLocks),
	}
}

// Get retrieves the account's locked balance. A missing record reads as an
// empty one.
func (s *Service) Get(account stakelock.Address) (*LockedBalance, error) {
	lock, err := s.locks.Get(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get locked balance")
	}
	if lock.Balance == nil {
		lock.Balance = new(big.Int)
	}
	return lock, nil
}

// Set persists the account's locked balance. An empty record clears the
// underlying slot.
func (s *Service) Set(account stakelock.Address, lock *LockedBalance) error {
	if lock.IsEmpty() {
		if err := s.locks.Clear(account); err != nil {
			return errors.Wrap(err, "failed to clear locked balance")
		}
		return nil
	}
	if err := s.locks.Set(account, lock); err != nil {
		return errors.Wrap(err, "failed to set locked balance")
	}
	return nil
}
