// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"math/big"

	"github.com/lockfi/stakelock/log"
	"github.com/lockfi/stakelock/stakelock"
)

// ConfigVariable is a protocol parameter with a compile-time default that
// can be overridden by writing a non-zero value into its state slot. Used
// to shorten durations in test networks.
type ConfigVariable struct {
	slot        stakelock.Bytes32
	name        string
	value       uint64
	initialised bool
}

func NewConfigVariable(name string, defaultValue uint64) *ConfigVariable {
	return &ConfigVariable{
		slot:  stakelock.BytesToBytes32([]byte(name)),
		name:  name,
		value: defaultValue,
	}
}

func (c *ConfigVariable) Get() uint64 {
	return c.value
}

func (c *ConfigVariable) Name() string {
	return c.name
}

func (c *ConfigVariable) Slot() stakelock.Bytes32 {
	return c.slot
}

// Override reads the variable's slot once and adopts a non-zero value.
func (c *ConfigVariable) Override(ctx *Context) {
	if c.initialised { // early return to prevent subsequent reads
		return
	}
	storage, err := ctx.state.GetStorage(ctx.address, c.slot)
	if err != nil {
		log.Warn("failed to read config value", "slot", c.name, "error", err)
		return
	}
	num := new(big.Int).SetBytes(storage.Bytes())

	c.initialised = true

	if num.Uint64() != 0 {
		c.value = num.Uint64()
		log.Debug("override found new config value", "slot", c.name, "value", c.value)
	} else {
		log.Debug("using default config value", "slot", c.name, "value", c.value)
	}
}
