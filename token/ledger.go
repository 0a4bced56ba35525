// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token implements a fungible token ledger held in world state.
// It is the funding collaborator of the staking and escrow components:
// principal, rewards and vested payouts all move through it.
package token

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lockfi/stakelock/reverts"
	"github.com/lockfi/stakelock/slot"
	"github.com/lockfi/stakelock/stakelock"
	"github.com/lockfi/stakelock/state"
)

var (
	slotTotalSupply = stakelock.BytesToBytes32([]byte("token-total-supply"))
	slotBalances    = stakelock.BytesToBytes32([]byte("token-balances"))
)

// Ledger holds per-account token balances.
type Ledger struct {
	totalSupply *slot.Uint256
	balances    *slot.Mapping[stakelock.Address, *big.Int]
}

// New creates a ledger instance bound to the given component address.
func New(addr stakelock.Address, st *state.State) *Ledger {
	sctx := slot.NewContext(addr, st)
	return &Ledger{
		totalSupply: slot.NewUint256(sctx, slotTotalSupply),
		balances:    slot.NewMapping[stakelock.Address, *big.Int](sctx, slotBalances),
	}
}

// TotalSupply returns the sum of all minted balances.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	return l.totalSupply.Get()
}

// BalanceOf returns the token balance of an account.
func (l *Ledger) BalanceOf(addr stakelock.Address) (*big.Int, error) {
	bal, err := l.balances.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	if bal == nil {
		return new(big.Int), nil
	}
	return bal, nil
}

// Mint credits an account with freshly issued tokens.
func (l *Ledger) Mint(addr stakelock.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return reverts.ErrInvalidAmount
	}
	bal, err := l.BalanceOf(addr)
	if err != nil {
		return err
	}
	if err := l.balances.Set(addr, new(big.Int).Add(bal, amount)); err != nil {
		return errors.Wrap(err, "failed to set balance")
	}
	return l.totalSupply.Add(amount)
}

// Transfer moves amount from one account to another.
// It fails with the funding revert when the sender cannot cover amount.
func (l *Ledger) Transfer(from, to stakelock.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	// a funded self-transfer moves nothing
	if from == to {
		return nil
	}
	toBal, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := l.balances.Set(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return errors.Wrap(err, "failed to debit sender")
	}
	if err := l.balances.Set(to, new(big.Int).Add(toBal, amount)); err != nil {
		return errors.Wrap(err, "failed to credit receiver")
	}
	return nil
}
