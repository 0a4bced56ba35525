// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lockfi/stakelock/stakelock"
)

// Scenario drives one simulation run. Timestamps in steps are offsets in
// seconds from the start time.
type Scenario struct {
	Start    uint64    `yaml:"start"`
	Accounts []Account `yaml:"accounts"`
	Steps    []Step    `yaml:"steps"`
}

type Account struct {
	Name    string `yaml:"name"`
	Balance int64  `yaml:"balance"`
}

// Step is one operation against the ledger. Which fields matter depends on
// the op:
//
//	stake           account, amount, duration
//	increase-stake  account, amount
//	increase-lock   account, duration
//	withdraw        account, amount
//	get-reward      account
//	exit            account
//	claim           account (claims all of the account's escrow records)
//	notify-reward   amount (funded and sent by the owner)
type Step struct {
	At       uint64 `yaml:"at"`
	Op       string `yaml:"op"`
	Account  string `yaml:"account,omitempty"`
	Amount   int64  `yaml:"amount,omitempty"`
	Duration uint64 `yaml:"duration,omitempty"`
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse scenario file")
	}
	if s.Start == 0 {
		return nil, errors.New("scenario start time must be set")
	}
	if len(s.Accounts) == 0 {
		return nil, errors.New("scenario needs at least one account")
	}
	return &s, nil
}

// defaultScenario is a week of staking activity: two stakers joining a day
// apart, a reward emission, claims and an exit.
func defaultScenario() *Scenario {
	const day = 86400
	return &Scenario{
		Start: 1_700_000_000,
		Accounts: []Account{
			{Name: "alice", Balance: 1_000_000_000},
			{Name: "bob", Balance: 1_000_000_000},
		},
		Steps: []Step{
			{At: 0, Op: "stake", Account: "alice", Amount: 86400, Duration: stakelock.MaxLockDuration},
			{At: 0, Op: "notify-reward", Amount: 7 * day * 1000},
			{At: day, Op: "stake", Account: "bob", Amount: 86400, Duration: stakelock.MinLockDuration},
			{At: 2 * day, Op: "get-reward", Account: "alice"},
			{At: 3 * day, Op: "increase-stake", Account: "bob", Amount: 43200},
			{At: 4 * day, Op: "increase-lock", Account: "bob", Duration: stakelock.MinLockDuration},
			{At: 7 * day, Op: "get-reward", Account: "bob"},
			{At: 30 * day, Op: "claim", Account: "alice"},
			{At: stakelock.MinLockDuration + 5*day, Op: "exit", Account: "bob"},
			{At: 400 * day, Op: "claim", Account: "alice"},
			{At: 400 * day, Op: "claim", Account: "bob"},
		},
	}
}
