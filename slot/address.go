// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"github.com/lockfi/stakelock/stakelock"
)

// Address is a wrapper for storage and retrieval of a single address, used
// for roles such as the component owner.
type Address struct {
	context *Context
	pos     stakelock.Bytes32
}

func NewAddress(context *Context, pos stakelock.Bytes32) *Address {
	return &Address{context: context, pos: pos}
}

func (a *Address) Get() (stakelock.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return stakelock.Address{}, err
	}
	return stakelock.BytesToAddress(storage.Bytes()), nil
}

func (a *Address) Set(addr stakelock.Address) {
	var storage stakelock.Bytes32
	if !addr.IsZero() {
		storage = stakelock.BytesToBytes32(addr.Bytes())
	}
	a.context.state.SetStorage(a.context.address, a.pos, storage)
}
