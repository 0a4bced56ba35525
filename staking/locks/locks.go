// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package locks stores the per-account locked balances of the staking
// component. Each account has at most one live record.
package locks

import "math/big"

// LockedBalance is an account's locked principal and its unlock time.
type LockedBalance struct {
	Balance *big.Int
	End     uint64
}

// IsEmpty returns whether the record can be treated as never created.
// Both fields are zero only for an account with no lock history.
func (l *LockedBalance) IsEmpty() bool {
	return (l.Balance == nil || l.Balance.Sign() == 0) && l.End == 0
}

// Locked returns whether the balance is still locked at the given time.
func (l *LockedBalance) Locked(now uint64) bool {
	return !l.IsEmpty() && l.End > now
}

// Withdrawable returns the portion of the balance that may be withdrawn at
// the given time. The lock end applies to the whole balance: nothing is
// withdrawable before end, everything after.
func (l *LockedBalance) Withdrawable(now uint64) *big.Int {
	if l.IsEmpty() || l.End > now {
		return new(big.Int)
	}
	return new(big.Int).Set(l.Balance)
}
