// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accrual manages the reward-accrual state of the staking
// component: the global emission schedule, the lazily updated
// reward-per-credit accumulator, and the per-account checkpoints.
//
// The accumulator must be settled before any mutation of an account's
// weight; the staking facade guarantees that ordering.
package accrual

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lockfi/stakelock/reverts"
	"github.com/lockfi/stakelock/slot"
	"github.com/lockfi/stakelock/stakelock"
)

var (
	slotRewardRate           = stakelock.BytesToBytes32([]byte("reward-rate"))
	slotPeriodFinish         = stakelock.BytesToBytes32([]byte("period-finish"))
	slotLastUpdateTime       = stakelock.BytesToBytes32([]byte("last-update-time"))
	slotRewardPerTokenStored = stakelock.BytesToBytes32([]byte("reward-per-token-stored"))
	slotTotalVoiceCredits    = stakelock.BytesToBytes32([]byte("total-voice-credits"))
	slotUserPaid             = stakelock.BytesToBytes32([]byte("user-reward-per-token-paid"))
	slotUserRewards          = stakelock.BytesToBytes32([]byte("user-rewards"))
	slotUserCredits          = stakelock.BytesToBytes32([]byte("user-checkpoint-credits"))
)

// Service owns the accrual scalars and per-account reward checkpoints.
type Service struct {
	rewardRate           *slot.Uint256
	periodFinish         *slot.Uint64
	lastUpdateTime       *slot.Uint64
	rewardPerTokenStored *slot.Uint256
	totalVoiceCredits    *slot.Uint256

	userPaid    *slot.Mapping[stakelock.Address, *big.Int]
	userRewards *slot.Mapping[stakelock.Address, *big.Int]
	userCredits *slot.Mapping[stakelock.Address, *big.Int]

	rewardsDuration uint64
}

func New(sctx *slot.Context, rewardsDuration uint64) *Service {
	return &Service{
		rewardRate:           slot.NewUint256(sctx, slotRewardRate),
		periodFinish:         slot.NewUint64(sctx, slotPeriodFinish),
		lastUpdateTime:       slot.NewUint64(sctx, slotLastUpdateTime),
		rewardPerTokenStored: slot.NewUint256(sctx, slotRewardPerTokenStored),
		totalVoiceCredits:    slot.NewUint256(sctx, slotTotalVoiceCredits),
		userPaid:             slot.NewMapping[stakelock.Address, *big.Int](sctx, slotUserPaid),
		userRewards:          slot.NewMapping[stakelock.Address, *big.Int](sctx, slotUserRewards),
		userCredits:          slot.NewMapping[stakelock.Address, *big.Int](sctx, slotUserCredits),
		rewardsDuration:      rewardsDuration,
	}
}

// LastTimeRewardApplicable returns min(now, periodFinish).
func (s *Service) LastTimeRewardApplicable(now uint64) (uint64, error) {
	finish, err := s.periodFinish.Get()
	if err != nil {
		return 0, err
	}
	if now < finish {
		return now, nil
	}
	return finish, nil
}

// RewardPerToken returns the cumulative reward per unit of voice credit at
// the given time, scaled by Precision. The stored value is only advanced by
// Settle; this read never mutates.
func (s *Service) RewardPerToken(now uint64) (*big.Int, error) {
	stored, err := s.rewardPerTokenStored.Get()
	if err != nil {
		return nil, err
	}
	total, err := s.totalVoiceCredits.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return stored, nil
	}
	last, err := s.lastUpdateTime.Get()
	if err != nil {
		return nil, err
	}
	applicable, err := s.LastTimeRewardApplicable(now)
	if err != nil {
		return nil, err
	}
	if applicable <= last {
		return stored, nil
	}
	rate, err := s.rewardRate.Get()
	if err != nil {
		return nil, err
	}
	delta := new(big.Int).SetUint64(applicable - last)
	delta.Mul(delta, rate)
	delta.Mul(delta, stakelock.Precision)
	delta.Div(delta, total)
	return stored.Add(stored, delta), nil
}

// Earned returns the account's accrued-but-unclaimed reward at the given
// time, using the voice credits captured at its last checkpoint.
func (s *Service) Earned(account stakelock.Address, now uint64) (*big.Int, error) {
	rpt, err := s.RewardPerToken(now)
	if err != nil {
		return nil, err
	}
	return s.earnedAt(account, rpt)
}

func (s *Service) earnedAt(account stakelock.Address, rewardPerToken *big.Int) (*big.Int, error) {
	creds, err := s.CreditsOf(account)
	if err != nil {
		return nil, err
	}
	paid, err := s.getBig(s.userPaid, account)
	if err != nil {
		return nil, err
	}
	pending, err := s.getBig(s.userRewards, account)
	if err != nil {
		return nil, err
	}
	earned := new(big.Int).Sub(rewardPerToken, paid)
	earned.Mul(earned, creds)
	earned.Div(earned, stakelock.Precision)
	return earned.Add(earned, pending), nil
}

// Settle advances the global accumulator to now, then checkpoints the
// account's accrued reward against it. A zero account settles only the
// global state.
func (s *Service) Settle(account stakelock.Address, now uint64) error {
	rpt, err := s.RewardPerToken(now)
	if err != nil {
		return err
	}
	s.rewardPerTokenStored.Set(rpt)
	applicable, err := s.LastTimeRewardApplicable(now)
	if err != nil {
		return err
	}
	s.lastUpdateTime.Set(applicable)

	if account.IsZero() {
		return nil
	}
	earned, err := s.earnedAt(account, rpt)
	if err != nil {
		return err
	}
	if err := s.userRewards.Set(account, earned); err != nil {
		return errors.Wrap(err, "failed to set user rewards")
	}
	if err := s.userPaid.Set(account, rpt); err != nil {
		return errors.Wrap(err, "failed to set user paid")
	}
	return nil
}

// TakeReward zeroes and returns the account's settled pending reward.
func (s *Service) TakeReward(account stakelock.Address) (*big.Int, error) {
	pending, err := s.getBig(s.userRewards, account)
	if err != nil {
		return nil, err
	}
	if pending.Sign() > 0 {
		if err := s.userRewards.Set(account, new(big.Int)); err != nil {
			return nil, errors.Wrap(err, "failed to reset user rewards")
		}
	}
	return pending, nil
}

// Checkpoint records the account's current voice credits and folds the
// difference into the global total. Must be called after every mutation
// that changes the account's weight.
func (s *Service) Checkpoint(account stakelock.Address, newCredits *big.Int) error {
	old, err := s.CreditsOf(account)
	if err != nil {
		return err
	}
	if err := s.totalVoiceCredits.Add(newCredits); err != nil {
		return err
	}
	if err := s.totalVoiceCredits.Sub(old); err != nil {
		return err
	}
	if err := s.userCredits.Set(account, newCredits); err != nil {
		return errors.Wrap(err, "failed to set user credits")
	}
	return nil
}

// NotifyReward folds amount into the emission schedule. held is the token
// balance backing the promise; the implied total emission may not exceed it.
func (s *Service) NotifyReward(amount *big.Int, now uint64, held *big.Int) error {
	duration := new(big.Int).SetUint64(s.rewardsDuration)

	finish, err := s.periodFinish.Get()
	if err != nil {
		return err
	}
	rate := new(big.Int).Set(amount)
	if now < finish {
		// fold the undistributed remainder of the running period into the new rate
		currentRate, err := s.rewardRate.Get()
		if err != nil {
			return err
		}
		leftover := new(big.Int).SetUint64(finish - now)
		leftover.Mul(leftover, currentRate)
		rate.Add(rate, leftover)
	}
	rate.Div(rate, duration)

	promised := new(big.Int).Mul(rate, duration)
	if promised.Cmp(held) > 0 {
		return reverts.ErrRewardTooHigh
	}

	s.rewardRate.Set(rate)
	s.lastUpdateTime.Set(now)
	s.periodFinish.Set(now + s.rewardsDuration)
	return nil
}

// SetPeriodFinish overrides the end of the emission period. The caller is
// expected to have settled the accumulator first.
func (s *Service) SetPeriodFinish(timestamp uint64) {
	s.periodFinish.Set(timestamp)
}

//
// Getters - no state change
//

func (s *Service) RewardRate() (*big.Int, error) {
	return s.rewardRate.Get()
}

func (s *Service) PeriodFinish() (uint64, error) {
	return s.periodFinish.Get()
}

func (s *Service) TotalVoiceCredits() (*big.Int, error) {
	return s.totalVoiceCredits.Get()
}

// CreditsOf returns the voice credits captured at the account's last
// checkpoint.
func (s *Service) CreditsOf(account stakelock.Address) (*big.Int, error) {
	return s.getBig(s.userCredits, account)
}

func (s *Service) getBig(m *slot.Mapping[stakelock.Address, *big.Int], account stakelock.Address) (*big.Int, error) {
	v, err := m.Get(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get accrual record")
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}
