// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the failure values of the operation surface.
// A revert aborts an operation before or instead of mutating state; the
// kind tells callers whether retrying can help and how.
package reverts

import (
	"errors"
)

// Kind classifies a revert for programmatic handling.
type Kind int

const (
	// KindValidation marks zero or out-of-range inputs. Recoverable by
	// retrying with corrected input.
	KindValidation Kind = iota + 1
	// KindAuthorization marks calls from an identity lacking the required
	// role. Not retryable with the same caller.
	KindAuthorization
	// KindTemporal marks operations illegal in the account's current
	// time-dependent state. Recoverable by waiting or adjusting the amount.
	KindTemporal
	// KindFunding marks operations that cannot be covered by the available
	// token balance. Recoverable once funds are available.
	KindFunding
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindTemporal:
		return "temporal"
	case KindFunding:
		return "funding"
	default:
		return "unknown"
	}
}

// ErrRevert is a typed operation failure. A failing call leaves all ledger
// state untouched.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

// Is lets errors.Is match two reverts by kind and message, so the sentinel
// values below survive wrapping.
func (e *ErrRevert) Is(target error) bool {
	var t *ErrRevert
	if !errors.As(target, &t) {
		return false
	}
	return e.kind == t.kind && e.message == t.message
}

// Sentinel reverts of the staking and escrow surfaces.
var (
	ErrInvalidAmount       = New(KindValidation, "invalid amount")
	ErrLockTooShort        = New(KindValidation, "lock period is too short")
	ErrLockTooLong         = New(KindValidation, "lock period exceeds maximum")
	ErrNoLockedBalance     = New(KindTemporal, "no locked balance")
	ErrLockExpired         = New(KindTemporal, "lock expired, withdraw balance first")
	ErrExceedsWithdrawable = New(KindTemporal, "insufficient balance")
	ErrTimestampInPast     = New(KindTemporal, "timestamp is in the past")
	ErrNoRewardsAvailable  = New(KindTemporal, "no rewards available")
	ErrInsufficientBalance = New(KindFunding, "insufficient balance")
	ErrRewardTooHigh       = New(KindFunding, "reward amount exceeds held balance")
	ErrUnauthorized        = New(KindAuthorization, "unauthorized")
)

// IsRevertErr reports whether err is (or wraps) a revert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// KindOf returns the kind of the revert wrapped in err, zero if err is not
// a revert.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return 0
}
