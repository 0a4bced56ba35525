// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking implements the time-locked staking ledger. Accounts lock
// token balances for a bounded duration; a lock carries governance weight
// (voice credits) that decays linearly to zero at the unlock time, and
// accrues a pro-rata share of the streamed reward emission while it lasts.
//
// Every mutating operation settles the reward accumulator before touching
// balances, and either applies all of its effects or none.
package staking

import (
	"math/big"

	"github.com/lockfi/stakelock/log"
	"github.com/lockfi/stakelock/metrics"
	"github.com/lockfi/stakelock/reverts"
	"github.com/lockfi/stakelock/slot"
	"github.com/lockfi/stakelock/stakelock"
	"github.com/lockfi/stakelock/staking/accrual"
	"github.com/lockfi/stakelock/staking/credits"
	"github.com/lockfi/stakelock/staking/locks"
	"github.com/lockfi/stakelock/state"
)

var (
	logger = log.WithContext("pkg", "staking")

	metricOpCount      = metrics.LazyLoadCounterVec("staking_ops_total", []string{"op"})
	metricTotalCredits = metrics.LazyLoadGauge("staking_total_voice_credits")

	// RewardsDuration is the length of one reward emission period. Test
	// networks may shorten it through its state slot.
	RewardsDuration = slot.NewConfigVariable("staking-rewards-duration", stakelock.DefaultRewardsDuration)

	slotOwner = stakelock.BytesToBytes32([]byte("staking-owner"))
)

// TokenLedger is the token collaborator: principal moves in on stake and
// out on withdraw, and the component's own balance backs reward emissions.
type TokenLedger interface {
	BalanceOf(addr stakelock.Address) (*big.Int, error)
	Transfer(from, to stakelock.Address, amount *big.Int) error
}

// RewardEscrow receives claimed rewards. Lock transfers amount from the
// caller into escrow and opens a vesting record for the account.
type RewardEscrow interface {
	Lock(caller, account stakelock.Address, amount *big.Int, now uint64) error
}

// Staking is the operation surface of the staking component.
type Staking struct {
	addr    stakelock.Address
	state   *state.State
	token   TokenLedger
	escrow  RewardEscrow
	owner   *slot.Address
	locks   *locks.Service
	accrual *accrual.Service
}

// New creates a staking instance bound to the given component address.
func New(addr stakelock.Address, st *state.State, token TokenLedger, escrow RewardEscrow) *Staking {
	sctx := slot.NewContext(addr, st)
	RewardsDuration.Override(sctx)
	return &Staking{
		addr:    addr,
		state:   st,
		token:   token,
		escrow:  escrow,
		owner:   slot.NewAddress(sctx, slotOwner),
		locks:   locks.New(sctx),
		accrual: accrual.New(sctx, RewardsDuration.Get()),
	}
}

// Address returns the component address holding staked principal.
func (s *Staking) Address() stakelock.Address {
	return s.addr
}

// Initialize sets the component owner. It may be called once.
func (s *Staking) Initialize(owner stakelock.Address) error {
	current, err := s.owner.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.ErrUnauthorized
	}
	s.owner.Set(owner)
	logger.Info("initialized staking", "owner", owner)
	return nil
}

// transact runs fn inside a checkpoint and reverts every write on failure.
func (s *Staking) transact(op string, fn func() error) error {
	cp := s.state.NewCheckpoint()
	if err := fn(); err != nil {
		s.state.RevertTo(cp)
		return err
	}
	metricOpCount().AddWithLabel(1, map[string]string{"op": op})
	return nil
}

//
// Mutating operations
//

// Stake locks amount of the caller's tokens for duration seconds. An
// existing lock absorbs the amount and keeps the later of its current end
// and now+duration.
func (s *Staking) Stake(caller stakelock.Address, amount *big.Int, duration, now uint64) error {
	return s.StakeFor(caller, caller, amount, duration, now)
}

// StakeFor is Stake with the lock credited to account while caller funds it.
func (s *Staking) StakeFor(caller, account stakelock.Address, amount *big.Int, duration, now uint64) error {
	logger.Debug("attempting to stake", "caller", caller, "account", account, "amount", amount, "duration", duration)
	return s.transact("stake", func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrInvalidAmount
		}
		if err := validateDuration(duration); err != nil {
			return err
		}
		if err := s.accrual.Settle(account, now); err != nil {
			return err
		}
		lock, err := s.locks.Get(account)
		if err != nil {
			return err
		}
		if err := s.token.Transfer(caller, s.addr, amount); err != nil {
			return err
		}
		lock.Balance = new(big.Int).Add(lock.Balance, amount)
		lock.End = max(lock.End, now+duration)
		if err := s.locks.Set(account, lock); err != nil {
			return err
		}
		if err := s.checkpoint(account, lock, now); err != nil {
			return err
		}
		logger.Info("staked", "account", account, "balance", lock.Balance, "end", lock.End)
		return nil
	})
}

// IncreaseStake adds amount to the caller's live lock without changing its
// end time.
func (s *Staking) IncreaseStake(caller stakelock.Address, amount *big.Int, now uint64) error {
	logger.Debug("attempting to increase stake", "caller", caller, "amount", amount)
	return s.transact("increase_stake", func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrInvalidAmount
		}
		if err := s.accrual.Settle(caller, now); err != nil {
			return err
		}
		lock, err := s.locks.Get(caller)
		if err != nil {
			return err
		}
		if lock.IsEmpty() {
			return reverts.ErrNoLockedBalance
		}
		if !lock.Locked(now) {
			return reverts.ErrLockExpired
		}
		if err := s.token.Transfer(caller, s.addr, amount); err != nil {
			return err
		}
		lock.Balance = new(big.Int).Add(lock.Balance, amount)
		if err := s.locks.Set(caller, lock); err != nil {
			return err
		}
		if err := s.checkpoint(caller, lock, now); err != nil {
			return err
		}
		logger.Info("increased stake", "account", caller, "balance", lock.Balance)
		return nil
	})
}

// IncreaseLock pushes the caller's unlock time out by duration seconds. The
// resulting remaining duration must stay within the allowed bounds.
func (s *Staking) IncreaseLock(caller stakelock.Address, duration, now uint64) error {
	logger.Debug("attempting to increase lock", "caller", caller, "duration", duration)
	return s.transact("increase_lock", func() error {
		if duration == 0 {
			return reverts.ErrInvalidAmount
		}
		if err := s.accrual.Settle(caller, now); err != nil {
			return err
		}
		lock, err := s.locks.Get(caller)
		if err != nil {
			return err
		}
		if lock.IsEmpty() {
			return reverts.ErrNoLockedBalance
		}
		if !lock.Locked(now) {
			return reverts.ErrLockExpired
		}
		newEnd := lock.End + duration
		if err := validateDuration(newEnd - now); err != nil {
			return err
		}
		lock.End = newEnd
		if err := s.locks.Set(caller, lock); err != nil {
			return err
		}
		if err := s.checkpoint(caller, lock, now); err != nil {
			return err
		}
		logger.Info("increased lock", "account", caller, "end", lock.End)
		return nil
	})
}

// Withdraw returns amount of unlocked principal to the caller. The lock end
// applies to the whole balance, so nothing is withdrawable before it.
func (s *Staking) Withdraw(caller stakelock.Address, amount *big.Int, now uint64) error {
	logger.Debug("attempting to withdraw", "caller", caller, "amount", amount)
	return s.transact("withdraw", func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrInvalidAmount
		}
		if err := s.accrual.Settle(caller, now); err != nil {
			return err
		}
		return s.withdraw(caller, amount, now)
	})
}

// withdraw applies the withdrawal effects. The caller must have settled.
func (s *Staking) withdraw(account stakelock.Address, amount *big.Int, now uint64) error {
	lock, err := s.locks.Get(account)
	if err != nil {
		return err
	}
	if amount.Cmp(lock.Withdrawable(now)) > 0 {
		return reverts.ErrExceedsWithdrawable
	}
	if err := s.token.Transfer(s.addr, account, amount); err != nil {
		return err
	}
	lock.Balance = new(big.Int).Sub(lock.Balance, amount)
	if lock.Balance.Sign() == 0 {
		lock.End = 0
	}
	if err := s.locks.Set(account, lock); err != nil {
		return err
	}
	if err := s.checkpoint(account, lock, now); err != nil {
		return err
	}
	logger.Info("withdrawn", "account", account, "amount", amount, "remaining", lock.Balance)
	return nil
}

// Exit withdraws whatever principal is unlocked and sends the caller's
// settled reward to escrow. It never fails for lack of either.
func (s *Staking) Exit(caller stakelock.Address, now uint64) error {
	logger.Debug("attempting to exit", "caller", caller)
	return s.transact("exit", func() error {
		if err := s.accrual.Settle(caller, now); err != nil {
			return err
		}
		lock, err := s.locks.Get(caller)
		if err != nil {
			return err
		}
		if withdrawable := lock.Withdrawable(now); withdrawable.Sign() > 0 {
			if err := s.withdraw(caller, withdrawable, now); err != nil {
				return err
			}
		}
		return s.payReward(caller, now)
	})
}

// GetReward moves the caller's settled reward into a fresh escrow vesting
// record. A zero reward is a no-op.
func (s *Staking) GetReward(caller stakelock.Address, now uint64) error {
	logger.Debug("attempting to get reward", "caller", caller)
	return s.transact("get_reward", func() error {
		if err := s.accrual.Settle(caller, now); err != nil {
			return err
		}
		return s.payReward(caller, now)
	})
}

func (s *Staking) payReward(account stakelock.Address, now uint64) error {
	reward, err := s.accrual.TakeReward(account)
	if err != nil {
		return err
	}
	if reward.Sign() == 0 {
		return nil
	}
	if err := s.escrow.Lock(s.addr, account, reward, now); err != nil {
		return err
	}
	logger.Info("reward escrowed", "account", account, "amount", reward)
	return nil
}

// NotifyRewardAmount folds amount into the emission schedule. The tokens
// backing it must already sit on the component's balance; the implied total
// emission is checked against that balance. Owner only.
func (s *Staking) NotifyRewardAmount(caller stakelock.Address, amount *big.Int, now uint64) error {
	logger.Debug("attempting to notify reward", "caller", caller, "amount", amount)
	return s.transact("notify_reward", func() error {
		if err := s.checkOwner(caller); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrInvalidAmount
		}
		if err := s.accrual.Settle(stakelock.Address{}, now); err != nil {
			return err
		}
		held, err := s.token.BalanceOf(s.addr)
		if err != nil {
			return err
		}
		if err := s.accrual.NotifyReward(amount, now, held); err != nil {
			return err
		}
		rate, err := s.accrual.RewardRate()
		if err != nil {
			return err
		}
		logger.Info("reward notified", "amount", amount, "rate", rate)
		return nil
	})
}

// UpdatePeriodFinish moves the end of the running emission period. Accrual
// up to now is settled first so history is unaffected. Owner only.
func (s *Staking) UpdatePeriodFinish(caller stakelock.Address, timestamp, now uint64) error {
	logger.Debug("attempting to update period finish", "caller", caller, "timestamp", timestamp)
	return s.transact("update_period_finish", func() error {
		if err := s.checkOwner(caller); err != nil {
			return err
		}
		if timestamp < now {
			return reverts.ErrTimestampInPast
		}
		if err := s.accrual.Settle(stakelock.Address{}, now); err != nil {
			return err
		}
		s.accrual.SetPeriodFinish(timestamp)
		logger.Info("period finish updated", "timestamp", timestamp)
		return nil
	})
}

//
// Read operations
//

// GetLockedBalance returns the account's lock record. Accounts without a
// lock read as an empty record.
func (s *Staking) GetLockedBalance(account stakelock.Address) (*locks.LockedBalance, error) {
	return s.locks.Get(account)
}

// GetVoiceCredits returns the account's live governance weight at the given
// time, decayed from its current lock.
func (s *Staking) GetVoiceCredits(account stakelock.Address, now uint64) (*big.Int, error) {
	lock, err := s.locks.Get(account)
	if err != nil {
		return nil, err
	}
	return credits.VoiceCredits(lock.Balance, lock.End, now), nil
}

// TotalVoiceCredits returns the sum of all checkpointed voice credits. It
// moves at checkpoint cadence, not continuously.
func (s *Staking) TotalVoiceCredits() (*big.Int, error) {
	return s.accrual.TotalVoiceCredits()
}

// GetWithdrawableBalance returns the amount of principal the account could
// withdraw at the given time.
func (s *Staking) GetWithdrawableBalance(account stakelock.Address, now uint64) (*big.Int, error) {
	lock, err := s.locks.Get(account)
	if err != nil {
		return nil, err
	}
	return lock.Withdrawable(now), nil
}

// Earned returns the account's accrued-but-unclaimed reward at the given
// time.
func (s *Staking) Earned(account stakelock.Address, now uint64) (*big.Int, error) {
	return s.accrual.Earned(account, now)
}

// RewardPerToken returns the cumulative reward per voice credit at the
// given time, scaled by Precision.
func (s *Staking) RewardPerToken(now uint64) (*big.Int, error) {
	return s.accrual.RewardPerToken(now)
}

// RewardRate returns the current emission rate in tokens per second.
func (s *Staking) RewardRate() (*big.Int, error) {
	return s.accrual.RewardRate()
}

// PeriodFinish returns the end of the current emission period.
func (s *Staking) PeriodFinish() (uint64, error) {
	return s.accrual.PeriodFinish()
}

//
// internals
//

func (s *Staking) checkOwner(caller stakelock.Address) error {
	owner, err := s.owner.Get()
	if err != nil {
		return err
	}
	if owner.IsZero() || owner != caller {
		return reverts.ErrUnauthorized
	}
	return nil
}

// checkpoint refreshes the account's accrual weight from its lock record.
func (s *Staking) checkpoint(account stakelock.Address, lock *locks.LockedBalance, now uint64) error {
	if err := s.accrual.Checkpoint(account, credits.VoiceCredits(lock.Balance, lock.End, now)); err != nil {
		return err
	}
	total, err := s.accrual.TotalVoiceCredits()
	if err != nil {
		return err
	}
	if total.IsInt64() {
		metricTotalCredits().Set(total.Int64())
	}
	return nil
}

func validateDuration(duration uint64) error {
	if duration < stakelock.MinLockDuration {
		return reverts.ErrLockTooShort
	}
	if duration > stakelock.MaxLockDuration {
		return reverts.ErrLockTooLong
	}
	return nil
}
