// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package credits holds the voice-credit math. Voice credits are the
// remaining-time-weighted value of a locked balance; they are always
// derived from (balance, end, now) and never stored, so any two callers
// computing them at the same timestamp get identical values.
package credits

import (
	"math/big"

	"github.com/lockfi/stakelock/stakelock"
)

// VoiceCredits returns the governance weight of a locked balance at the
// given time:
//
//	balance * floorToHour(end - now) / MaxLockDuration
//
// The time till unlock is floored to the hour so the value cannot be
// manipulated at sub-hour granularity. Credits reach exactly zero at end.
func VoiceCredits(balance *big.Int, end, now uint64) *big.Int {
	if balance == nil || balance.Sign() == 0 || end == 0 || end <= now {
		return new(big.Int)
	}
	rounded := FloorToHour(end - now)
	if rounded == 0 {
		return new(big.Int)
	}
	c := new(big.Int).SetUint64(rounded)
	c.Mul(c, balance)
	return c.Div(c, new(big.Int).SetUint64(stakelock.MaxLockDuration))
}

// FloorToHour rounds a duration in seconds down to the nearest whole hour.
func FloorToHour(seconds uint64) uint64 {
	return seconds / stakelock.SecondsPerHour * stakelock.SecondsPerHour
}
