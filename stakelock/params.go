// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakelock

import "math/big"

// Protocol constants. Durations are expressed in seconds and evaluated
// against the caller-supplied clock.
const (
	// SecondsPerHour is the granularity voice credits are rounded down to.
	SecondsPerHour uint64 = 3600

	// MinLockDuration is the shortest accepted lock period (12 weeks).
	MinLockDuration uint64 = 12 * 7 * 86400

	// MaxLockDuration is the longest accepted lock period (4 years).
	// It is also the denominator of the voice-credit decay formula, so a
	// maximally long lock yields voice credits approximately equal to the
	// locked balance.
	MaxLockDuration uint64 = 4 * 365 * 86400

	// DefaultRewardsDuration is the emission window opened by a reward
	// notification (7 days).
	DefaultRewardsDuration uint64 = 7 * 86400

	// DefaultEscrowDuration is the vesting window of a freshly locked
	// escrow (365 days).
	DefaultEscrowDuration uint64 = 365 * 86400
)

// Precision is the fixed-point scaling factor of all token amounts
// (18 decimals). Division always truncates toward zero.
var Precision = big.NewInt(1e18)
