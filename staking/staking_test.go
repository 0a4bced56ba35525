// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockfi/stakelock/escrow"
	"github.com/lockfi/stakelock/reverts"
	"github.com/lockfi/stakelock/stakelock"
	"github.com/lockfi/stakelock/staking"
	"github.com/lockfi/stakelock/state"
	"github.com/lockfi/stakelock/token"
)

var (
	tokenAddr   = stakelock.BytesToAddress([]byte("token"))
	stakingAddr = stakelock.BytesToAddress([]byte("staking"))
	escrowAddr  = stakelock.BytesToAddress([]byte("escrow"))
	owner       = stakelock.BytesToAddress([]byte("owner"))
	alice       = stakelock.BytesToAddress([]byte("alice"))
	bob         = stakelock.BytesToAddress([]byte("bob"))
)

const (
	t0  = uint64(1_700_000_000)
	day = uint64(86400)

	// one credit per second of a maximal lock, so reward shares divide evenly
	stakeAmount = int64(86400)

	weekReward = int64(7 * 86400 * 1000) // rate of 1000 per second
)

type fixture struct {
	ledger *token.Ledger
	esc    *escrow.Escrow
	stk    *staking.Staking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := state.New()
	ledger := token.New(tokenAddr, st)
	esc := escrow.New(escrowAddr, st, ledger)
	stk := staking.New(stakingAddr, st, ledger, esc)
	require.NoError(t, stk.Initialize(owner))
	require.NoError(t, esc.Initialize(owner))
	require.NoError(t, esc.AddStakingContract(owner, stakingAddr))
	require.NoError(t, ledger.Mint(alice, big.NewInt(1_000_000_000)))
	require.NoError(t, ledger.Mint(bob, big.NewInt(1_000_000_000)))
	require.NoError(t, ledger.Mint(owner, big.NewInt(10_000_000_000)))
	return &fixture{ledger: ledger, esc: esc, stk: stk}
}

// startEmission funds the staking component and begins a reward period.
func (f *fixture) startEmission(t *testing.T, amount int64, now uint64) {
	t.Helper()
	require.NoError(t, f.ledger.Transfer(owner, stakingAddr, big.NewInt(amount)))
	require.NoError(t, f.stk.NotifyRewardAmount(owner, big.NewInt(amount), now))
}

func (f *fixture) balance(t *testing.T, addr stakelock.Address) *big.Int {
	t.Helper()
	bal, err := f.ledger.BalanceOf(addr)
	require.NoError(t, err)
	return bal
}

func (f *fixture) credits(t *testing.T, addr stakelock.Address, now uint64) *big.Int {
	t.Helper()
	c, err := f.stk.GetVoiceCredits(addr, now)
	require.NoError(t, err)
	return c
}

func (f *fixture) earned(t *testing.T, addr stakelock.Address, now uint64) *big.Int {
	t.Helper()
	e, err := f.stk.Earned(addr, now)
	require.NoError(t, err)
	return e
}

func (f *fixture) escrows(t *testing.T, addr stakelock.Address) []*escrow.Record {
	t.Helper()
	ids, err := f.esc.GetEscrowIdsByUser(addr)
	require.NoError(t, err)
	records, err := f.esc.GetEscrows(ids)
	require.NoError(t, err)
	return records
}

func TestInitializeOnce(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.stk.Initialize(alice), reverts.ErrUnauthorized)
}

func TestStakeValidation(t *testing.T) {
	f := newFixture(t)

	err := f.stk.Stake(alice, new(big.Int), stakelock.MinLockDuration, t0)
	assert.ErrorIs(t, err, reverts.ErrInvalidAmount)

	err = f.stk.Stake(alice, big.NewInt(100), stakelock.MinLockDuration-1, t0)
	assert.ErrorIs(t, err, reverts.ErrLockTooShort)

	err = f.stk.Stake(alice, big.NewInt(100), stakelock.MaxLockDuration+1, t0)
	assert.ErrorIs(t, err, reverts.ErrLockTooLong)
}

func TestStakeCreatesLock(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(1000), stakelock.MinLockDuration, t0))

	lock, err := f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), lock.Balance)
	assert.Equal(t, t0+stakelock.MinLockDuration, lock.End)

	assert.Equal(t, big.NewInt(1000), f.balance(t, stakingAddr))
	assert.Equal(t, big.NewInt(1_000_000_000-1000), f.balance(t, alice))
}

func TestStakeFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	poor := stakelock.BytesToAddress([]byte("poor"))

	err := f.stk.Stake(poor, big.NewInt(100), stakelock.MinLockDuration, t0)
	assert.ErrorIs(t, err, reverts.ErrInsufficientBalance)

	lock, err := f.stk.GetLockedBalance(poor)
	require.NoError(t, err)
	assert.True(t, lock.IsEmpty())

	total, err := f.stk.TotalVoiceCredits()
	require.NoError(t, err)
	assert.Zero(t, total.Sign())
}

func TestVoiceCreditsDecayToZero(t *testing.T) {
	f := newFixture(t)
	duration := uint64(2 * stakelock.MinLockDuration)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(int64(stakelock.MaxLockDuration)), duration, t0))

	prev := f.credits(t, alice, t0)
	assert.Positive(t, prev.Sign())

	// strictly decreasing hour by hour, exactly zero at the end
	for _, dt := range []uint64{stakelock.SecondsPerHour, day, duration / 2, duration - stakelock.SecondsPerHour} {
		cur := f.credits(t, alice, t0+dt)
		assert.Negative(t, cur.Cmp(prev), "credits must decay as time advances")
		prev = cur
	}
	assert.Zero(t, f.credits(t, alice, t0+duration).Sign())
	assert.Zero(t, f.credits(t, alice, t0+duration+day).Sign())
}

func TestStakeOnExistingLockExtends(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(1000), 2*stakelock.MinLockDuration, t0))
	// a shorter re-stake keeps the later end
	require.NoError(t, f.stk.Stake(alice, big.NewInt(500), stakelock.MinLockDuration, t0))

	lock, err := f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), lock.Balance)
	assert.Equal(t, t0+2*stakelock.MinLockDuration, lock.End)

	// a longer re-stake pushes it out
	require.NoError(t, f.stk.Stake(alice, big.NewInt(1), stakelock.MaxLockDuration, t0+day))
	lock, err = f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, t0+day+stakelock.MaxLockDuration, lock.End)
}

func TestStakeFor(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.StakeFor(alice, bob, big.NewInt(1000), stakelock.MinLockDuration, t0))

	lock, err := f.stk.GetLockedBalance(bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), lock.Balance, "the lock belongs to the beneficiary")
	assert.Equal(t, big.NewInt(1_000_000_000-1000), f.balance(t, alice), "the caller funds it")
}

func TestIncreaseStake(t *testing.T) {
	f := newFixture(t)

	err := f.stk.IncreaseStake(alice, big.NewInt(100), t0)
	assert.ErrorIs(t, err, reverts.ErrNoLockedBalance)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(1000), stakelock.MinLockDuration, t0))
	require.NoError(t, f.stk.IncreaseStake(alice, big.NewInt(500), t0+day))

	lock, err := f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), lock.Balance)
	assert.Equal(t, t0+stakelock.MinLockDuration, lock.End, "the end time is unchanged")

	err = f.stk.IncreaseStake(alice, big.NewInt(100), t0+stakelock.MinLockDuration)
	assert.ErrorIs(t, err, reverts.ErrLockExpired)
}

func TestIncreaseLock(t *testing.T) {
	f := newFixture(t)

	err := f.stk.IncreaseLock(alice, day, t0)
	assert.ErrorIs(t, err, reverts.ErrNoLockedBalance)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(1000), stakelock.MinLockDuration, t0))
	require.NoError(t, f.stk.IncreaseLock(alice, stakelock.MinLockDuration, t0))

	lock, err := f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, t0+2*stakelock.MinLockDuration, lock.End)

	err = f.stk.IncreaseLock(alice, stakelock.MaxLockDuration, t0)
	assert.ErrorIs(t, err, reverts.ErrLockTooLong, "the remaining duration stays bounded")

	err = f.stk.IncreaseLock(alice, day, t0+2*stakelock.MinLockDuration)
	assert.ErrorIs(t, err, reverts.ErrLockExpired)
}

func TestWithdrawRoundTrip(t *testing.T) {
	f := newFixture(t)
	initial := f.balance(t, alice)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(1000), stakelock.MinLockDuration, t0))

	err := f.stk.Withdraw(alice, new(big.Int), t0)
	assert.ErrorIs(t, err, reverts.ErrInvalidAmount)

	err = f.stk.Withdraw(alice, big.NewInt(1000), t0+stakelock.MinLockDuration-1)
	assert.ErrorIs(t, err, reverts.ErrExceedsWithdrawable, "the whole balance stays locked until the end")

	end := t0 + stakelock.MinLockDuration
	require.NoError(t, f.stk.Withdraw(alice, big.NewInt(400), end))
	require.NoError(t, f.stk.Withdraw(alice, big.NewInt(600), end))

	assert.Equal(t, initial, f.balance(t, alice), "a full round trip restores the balance")
	lock, err := f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.True(t, lock.IsEmpty(), "an emptied lock clears its record")

	err = f.stk.Withdraw(alice, big.NewInt(1), end)
	assert.ErrorIs(t, err, reverts.ErrExceedsWithdrawable)
}

func TestNotifyRewardAmount(t *testing.T) {
	f := newFixture(t)

	err := f.stk.NotifyRewardAmount(alice, big.NewInt(weekReward), t0)
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)

	err = f.stk.NotifyRewardAmount(owner, new(big.Int), t0)
	assert.ErrorIs(t, err, reverts.ErrInvalidAmount)

	// nothing transferred in yet, the emission cannot be backed
	err = f.stk.NotifyRewardAmount(owner, big.NewInt(weekReward), t0)
	assert.ErrorIs(t, err, reverts.ErrRewardTooHigh)
	rate, err := f.stk.RewardRate()
	require.NoError(t, err)
	assert.Zero(t, rate.Sign(), "a failed notify leaves the schedule untouched")

	f.startEmission(t, weekReward, t0)
	rate, err = f.stk.RewardRate()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), rate)
	finish, err := f.stk.PeriodFinish()
	require.NoError(t, err)
	assert.Equal(t, t0+stakelock.DefaultRewardsDuration, finish)
}

func TestSingleStakerEarnsWholeEmission(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0))
	f.startEmission(t, weekReward, t0)

	assert.Equal(t, big.NewInt(86400*1000), f.earned(t, alice, t0+day))
	assert.Equal(t, big.NewInt(weekReward), f.earned(t, alice, t0+7*day))
	assert.Equal(t, big.NewInt(weekReward), f.earned(t, alice, t0+8*day), "accrual stops at period finish")
}

func TestSecondStakerDilutes(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0))
	f.startEmission(t, weekReward, t0)

	// day one: alice alone
	assert.Equal(t, big.NewInt(86400*1000), f.earned(t, alice, t0+day))

	// bob joins with the same weight; day two splits evenly
	require.NoError(t, f.stk.Stake(bob, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0+day))

	assert.Equal(t, big.NewInt(86400*1000+43200*1000), f.earned(t, alice, t0+2*day))
	assert.Equal(t, big.NewInt(43200*1000), f.earned(t, bob, t0+2*day))
}

func TestGetRewardEscrowsEarnings(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0))
	f.startEmission(t, weekReward, t0)

	require.NoError(t, f.stk.GetReward(alice, t0+day))

	assert.Zero(t, f.earned(t, alice, t0+day).Sign(), "claiming resets the accrued reward")

	records := f.escrows(t, alice)
	require.Len(t, records, 1)
	assert.Equal(t, big.NewInt(86400*1000), records[0].Balance)
	assert.Equal(t, t0+day, records[0].Start)
	assert.Equal(t, big.NewInt(86400*1000), f.balance(t, escrowAddr))

	// claiming again with nothing accrued is a quiet no-op
	require.NoError(t, f.stk.GetReward(alice, t0+day))
	assert.Len(t, f.escrows(t, alice), 1)
}

func TestEachClaimOpensNewEscrowRecord(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0))
	f.startEmission(t, weekReward, t0)

	require.NoError(t, f.stk.GetReward(alice, t0+day))
	require.NoError(t, f.stk.GetReward(alice, t0+2*day))

	ids, err := f.esc.GetEscrowIdsByUser(alice)
	require.NoError(t, err)
	assert.Len(t, ids, 2, "each claim vests on its own clock")
}

func TestExit(t *testing.T) {
	f := newFixture(t)
	initial := f.balance(t, alice)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(stakeAmount), stakelock.MinLockDuration, t0))
	f.startEmission(t, weekReward, t0)

	// exiting before the lock ends still claims the reward
	require.NoError(t, f.stk.Exit(alice, t0+day))
	lock, err := f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(stakeAmount), lock.Balance, "locked principal survives an early exit")
	assert.Len(t, f.escrows(t, alice), 1)

	// after the lock ends, exit withdraws everything as well
	require.NoError(t, f.stk.Exit(alice, t0+stakelock.MinLockDuration))
	lock, err = f.stk.GetLockedBalance(alice)
	require.NoError(t, err)
	assert.True(t, lock.IsEmpty())
	assert.Equal(t, initial, f.balance(t, alice))

	// an exit with nothing to do is a no-op
	require.NoError(t, f.stk.Exit(alice, t0+stakelock.MinLockDuration+day))
}

func TestUpdatePeriodFinish(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0))
	f.startEmission(t, weekReward, t0)

	err := f.stk.UpdatePeriodFinish(alice, t0+day, t0+day)
	assert.ErrorIs(t, err, reverts.ErrUnauthorized)

	err = f.stk.UpdatePeriodFinish(owner, t0-1, t0)
	assert.ErrorIs(t, err, reverts.ErrTimestampInPast)

	// cut the emission short after one day
	require.NoError(t, f.stk.UpdatePeriodFinish(owner, t0+day, t0+day))
	assert.Equal(t, big.NewInt(86400*1000), f.earned(t, alice, t0+day))
	assert.Equal(t, big.NewInt(86400*1000), f.earned(t, alice, t0+7*day), "no accrual past the new finish")
}

func TestTotalVoiceCreditsTracksCheckpoints(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0))
	require.NoError(t, f.stk.Stake(bob, big.NewInt(stakeAmount), stakelock.MaxLockDuration, t0))

	total, err := f.stk.TotalVoiceCredits()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2*stakeAmount), total)

	// a withdraw re-checkpoints the account at zero weight
	require.NoError(t, f.stk.Withdraw(alice, big.NewInt(stakeAmount), t0+stakelock.MaxLockDuration))
	total, err = f.stk.TotalVoiceCredits()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(stakeAmount), total, "only the expired account drops out at its checkpoint")
}

func TestWithdrawableBalance(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.stk.Stake(alice, big.NewInt(1000), stakelock.MinLockDuration, t0))

	w, err := f.stk.GetWithdrawableBalance(alice, t0+stakelock.MinLockDuration-1)
	require.NoError(t, err)
	assert.Zero(t, w.Sign())

	w, err = f.stk.GetWithdrawableBalance(alice, t0+stakelock.MinLockDuration)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), w)
}
