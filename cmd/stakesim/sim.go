// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lockfi/stakelock/escrow"
	"github.com/lockfi/stakelock/log"
	"github.com/lockfi/stakelock/reverts"
	"github.com/lockfi/stakelock/stakelock"
	"github.com/lockfi/stakelock/staking"
	"github.com/lockfi/stakelock/state"
	"github.com/lockfi/stakelock/token"
)

var (
	tokenAddr   = stakelock.BytesToAddress([]byte("sim-token"))
	stakingAddr = stakelock.BytesToAddress([]byte("sim-staking"))
	escrowAddr  = stakelock.BytesToAddress([]byte("sim-escrow"))
	ownerAddr   = stakelock.BytesToAddress([]byte("sim-owner"))
)

// sim replays a scenario against a fresh in-memory ledger.
type sim struct {
	scenario *Scenario
	ledger   *token.Ledger
	esc      *escrow.Escrow
	stk      *staking.Staking
	accounts map[string]stakelock.Address
	logger   log.Logger
}

func newSim(scenario *Scenario) (*sim, error) {
	st := state.New()
	ledger := token.New(tokenAddr, st)
	esc := escrow.New(escrowAddr, st, ledger)
	stk := staking.New(stakingAddr, st, ledger, esc)

	if err := stk.Initialize(ownerAddr); err != nil {
		return nil, err
	}
	if err := esc.Initialize(ownerAddr); err != nil {
		return nil, err
	}
	if err := esc.AddStakingContract(ownerAddr, stakingAddr); err != nil {
		return nil, err
	}

	accounts := make(map[string]stakelock.Address, len(scenario.Accounts))
	for _, acc := range scenario.Accounts {
		addr := stakelock.BytesToAddress([]byte(acc.Name))
		accounts[acc.Name] = addr
		if acc.Balance > 0 {
			if err := ledger.Mint(addr, big.NewInt(acc.Balance)); err != nil {
				return nil, errors.Wrapf(err, "mint for %s", acc.Name)
			}
		}
	}

	// the owner funds every reward emission of the scenario
	rewardBudget := new(big.Int)
	for _, step := range scenario.Steps {
		if step.Op == "notify-reward" {
			rewardBudget.Add(rewardBudget, big.NewInt(step.Amount))
		}
	}
	if rewardBudget.Sign() > 0 {
		if err := ledger.Mint(ownerAddr, rewardBudget); err != nil {
			return nil, errors.Wrap(err, "mint reward budget")
		}
	}

	return &sim{
		scenario: scenario,
		ledger:   ledger,
		esc:      esc,
		stk:      stk,
		accounts: accounts,
		logger:   log.WithContext("pkg", "sim"),
	}, nil
}

// run executes the steps in order. A revert is an expected outcome and only
// logged; anything else aborts the run.
func (s *sim) run() error {
	for i, step := range s.scenario.Steps {
		now := s.scenario.Start + step.At
		err := s.apply(step, now)
		switch {
		case err == nil:
		case reverts.IsRevertErr(err):
			s.logger.Warn("step reverted",
				"step", i, "op", step.Op, "account", step.Account,
				"kind", reverts.KindOf(err), "reason", err.Error())
		default:
			return errors.Wrapf(err, "step %d (%s)", i, step.Op)
		}
	}
	return s.report()
}

func (s *sim) apply(step Step, now uint64) error {
	account, ok := s.accounts[step.Account]
	if !ok && step.Op != "notify-reward" {
		return errors.Errorf("unknown account %q", step.Account)
	}

	switch step.Op {
	case "stake":
		return s.stk.Stake(account, big.NewInt(step.Amount), step.Duration, now)
	case "increase-stake":
		return s.stk.IncreaseStake(account, big.NewInt(step.Amount), now)
	case "increase-lock":
		return s.stk.IncreaseLock(account, step.Duration, now)
	case "withdraw":
		return s.stk.Withdraw(account, big.NewInt(step.Amount), now)
	case "get-reward":
		return s.stk.GetReward(account, now)
	case "exit":
		return s.stk.Exit(account, now)
	case "claim":
		ids, err := s.esc.GetEscrowIdsByUser(account)
		if err != nil {
			return err
		}
		return s.esc.ClaimRewards(account, ids, now)
	case "notify-reward":
		amount := big.NewInt(step.Amount)
		if err := s.ledger.Transfer(ownerAddr, stakingAddr, amount); err != nil {
			return err
		}
		return s.stk.NotifyRewardAmount(ownerAddr, amount, now)
	default:
		return errors.Errorf("unknown op %q", step.Op)
	}
}

// report logs the final position of every account.
func (s *sim) report() error {
	end := s.scenario.Start
	for _, step := range s.scenario.Steps {
		if s.scenario.Start+step.At > end {
			end = s.scenario.Start + step.At
		}
	}

	for _, acc := range s.scenario.Accounts {
		addr := s.accounts[acc.Name]
		balance, err := s.ledger.BalanceOf(addr)
		if err != nil {
			return err
		}
		lock, err := s.stk.GetLockedBalance(addr)
		if err != nil {
			return err
		}
		credits, err := s.stk.GetVoiceCredits(addr, end)
		if err != nil {
			return err
		}
		earned, err := s.stk.Earned(addr, end)
		if err != nil {
			return err
		}
		ids, err := s.esc.GetEscrowIdsByUser(addr)
		if err != nil {
			return err
		}
		records, err := s.esc.GetEscrows(ids)
		if err != nil {
			return err
		}
		vesting := new(big.Int)
		for _, r := range records {
			vesting.Add(vesting, r.Balance)
		}
		s.logger.Info("final position",
			"account", acc.Name,
			"balance", balance,
			"locked", lock.Balance,
			"lockEnd", lock.End,
			"voiceCredits", credits,
			"earned", earned,
			"vesting", vesting,
			"escrowRecords", len(records))
	}

	total, err := s.stk.TotalVoiceCredits()
	if err != nil {
		return err
	}
	s.logger.Info("final totals", "totalVoiceCredits", total, "time", end)
	return nil
}
