// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package slot provides typed storage-slot wrappers for ledger components,
// similar to declaring state variables in a smart contract.
package slot

import (
	"github.com/lockfi/stakelock/stakelock"
	"github.com/lockfi/stakelock/state"
)

// Context binds a component address to the world state. Every slot wrapper
// of a component shares one context.
type Context struct {
	address stakelock.Address
	state   *state.State
}

func NewContext(address stakelock.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() stakelock.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}
