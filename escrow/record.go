// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package escrow

import (
	"math/big"

	"github.com/lockfi/stakelock/stakelock"
)

// Record is one vesting position. Each reward claim opens a fresh record
// with its own clock; records are independent of each other.
//
// Claims fold into the record by reducing the balance and advancing the
// start, which keeps repeated partial claims equivalent to one continuous
// linear release.
type Record struct {
	Account stakelock.Address
	Balance *big.Int
	Start   uint64
	End     uint64
}

// IsEmpty returns whether the record was never created. A live record
// always has a non-zero start.
func (r *Record) IsEmpty() bool {
	return r.Start == 0
}

// Claimable returns the portion of the balance vested at the given time.
func (r *Record) Claimable(now uint64) *big.Int {
	if r.IsEmpty() || r.Balance == nil || r.Balance.Sign() == 0 || now <= r.Start {
		return new(big.Int)
	}
	if now >= r.End || r.End <= r.Start {
		return new(big.Int).Set(r.Balance)
	}
	c := new(big.Int).SetUint64(now - r.Start)
	c.Mul(c, r.Balance)
	return c.Div(c, new(big.Int).SetUint64(r.End-r.Start))
}
