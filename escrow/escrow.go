// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package escrow implements the vesting reward distributor. Authorized
// staking components deposit claimed rewards here; each deposit opens an
// independent vesting record that releases linearly over the escrow
// duration and can be claimed piecemeal by its beneficiary.
package escrow

import (
	"math/big"

	"github.com/lockfi/stakelock/log"
	"github.com/lockfi/stakelock/metrics"
	"github.com/lockfi/stakelock/reverts"
	"github.com/lockfi/stakelock/slot"
	"github.com/lockfi/stakelock/stakelock"
	"github.com/lockfi/stakelock/state"
)

var (
	logger = log.WithContext("pkg", "escrow")

	metricOpCount = metrics.LazyLoadCounterVec("escrow_ops_total", []string{"op"})
	metricRecords = metrics.LazyLoadGauge("escrow_records_total")

	slotOwner      = stakelock.BytesToBytes32([]byte("escrow-owner"))
	slotDuration   = stakelock.BytesToBytes32([]byte("escrow-duration"))
	slotIDCounter  = stakelock.BytesToBytes32([]byte("escrow-id-counter"))
	slotRecords    = stakelock.BytesToBytes32([]byte("escrow-records"))
	slotAuthorized = stakelock.BytesToBytes32([]byte("escrow-authorized"))
	slotIndexCount = stakelock.BytesToBytes32([]byte("escrow-user-index-count"))
	slotIndexEntry = stakelock.BytesToBytes32([]byte("escrow-user-index-entry"))
)

// TokenLedger is the token collaborator: deposits move in on Lock and out
// on claims.
type TokenLedger interface {
	Transfer(from, to stakelock.Address, amount *big.Int) error
}

// Escrow is the operation surface of the vesting distributor.
type Escrow struct {
	addr       stakelock.Address
	state      *state.State
	token      TokenLedger
	owner      *slot.Address
	duration   *slot.Uint64
	ids        *slot.Counter
	records    *slot.Mapping[*big.Int, *Record]
	authorized *slot.Mapping[stakelock.Address, bool]
	index      *index
}

// New creates an escrow instance bound to the given component address.
func New(addr stakelock.Address, st *state.State, token TokenLedger) *Escrow {
	sctx := slot.NewContext(addr, st)
	return &Escrow{
		addr:       addr,
		state:      st,
		token:      token,
		owner:      slot.NewAddress(sctx, slotOwner),
		duration:   slot.NewUint64(sctx, slotDuration),
		ids:        slot.NewCounter(sctx, slotIDCounter),
		records:    slot.NewMapping[*big.Int, *Record](sctx, slotRecords),
		authorized: slot.NewMapping[stakelock.Address, bool](sctx, slotAuthorized),
		index:      newIndex(sctx, slotIndexCount, slotIndexEntry),
	}
}

// Address returns the component address holding escrowed balances.
func (e *Escrow) Address() stakelock.Address {
	return e.addr
}

// Initialize sets the component owner. It may be called once.
func (e *Escrow) Initialize(owner stakelock.Address) error {
	current, err := e.owner.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.ErrUnauthorized
	}
	e.owner.Set(owner)
	logger.Info("initialized escrow", "owner", owner)
	return nil
}

func (e *Escrow) transact(op string, fn func() error) error {
	cp := e.state.NewCheckpoint()
	if err := fn(); err != nil {
		e.state.RevertTo(cp)
		return err
	}
	metricOpCount().AddWithLabel(1, map[string]string{"op": op})
	return nil
}

//
// Mutating operations
//

// Lock transfers amount from the caller and opens a vesting record for
// account, starting now and releasing over the escrow duration. Only
// authorized staking components may deposit.
func (e *Escrow) Lock(caller, account stakelock.Address, amount *big.Int, now uint64) error {
	logger.Debug("attempting to lock reward", "caller", caller, "account", account, "amount", amount)
	return e.transact("lock", func() error {
		auth, err := e.authorized.Get(caller)
		if err != nil {
			return err
		}
		if !auth {
			return reverts.ErrUnauthorized
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrInvalidAmount
		}
		if err := e.token.Transfer(caller, e.addr, amount); err != nil {
			return err
		}
		duration, err := e.EscrowDuration()
		if err != nil {
			return err
		}
		id, err := e.ids.Next()
		if err != nil {
			return err
		}
		record := &Record{
			Account: account,
			Balance: new(big.Int).Set(amount),
			Start:   now,
			End:     now + duration,
		}
		if err := e.records.Set(id, record); err != nil {
			return err
		}
		if err := e.index.append(account, id); err != nil {
			return err
		}
		if id.IsInt64() {
			metricRecords().Set(id.Int64())
		}
		logger.Info("reward locked", "id", id, "account", account, "amount", amount, "end", record.End)
		return nil
	})
}

// ClaimReward pays out the vested portion of one record to its beneficiary.
func (e *Escrow) ClaimReward(caller stakelock.Address, id *big.Int, now uint64) error {
	logger.Debug("attempting to claim reward", "caller", caller, "id", id)
	return e.transact("claim", func() error {
		record, err := e.records.Get(id)
		if err != nil {
			return err
		}
		if record.IsEmpty() {
			return reverts.ErrNoRewardsAvailable
		}
		if record.Account != caller {
			return reverts.ErrUnauthorized
		}
		claimable := record.Claimable(now)
		if claimable.Sign() == 0 {
			return reverts.ErrNoRewardsAvailable
		}
		if err := e.settleClaim(id, record, claimable, now); err != nil {
			return err
		}
		if err := e.token.Transfer(e.addr, caller, claimable); err != nil {
			return err
		}
		logger.Info("reward claimed", "id", id, "account", caller, "amount", claimable)
		return nil
	})
}

// ClaimRewards pays out the vested portions of several records in one go.
// Every id must belong to the caller; the payouts are summed into a single
// transfer. It fails if nothing at all is claimable.
func (e *Escrow) ClaimRewards(caller stakelock.Address, ids []*big.Int, now uint64) error {
	logger.Debug("attempting to claim rewards", "caller", caller, "count", len(ids))
	return e.transact("claim_batch", func() error {
		// ownership is checked for the whole batch before anything pays out.
		// Unlike the single-claim path, an unknown id here is treated as not
		// owned by the caller and fails the batch with the authorization
		// revert.
		for _, id := range ids {
			record, err := e.records.Get(id)
			if err != nil {
				return err
			}
			if record.IsEmpty() || record.Account != caller {
				return reverts.ErrUnauthorized
			}
		}
		// settle record by record, re-reading each one so a repeated id sees
		// the already-settled state and contributes nothing twice
		total := new(big.Int)
		for _, id := range ids {
			record, err := e.records.Get(id)
			if err != nil {
				return err
			}
			claimable := record.Claimable(now)
			if claimable.Sign() == 0 {
				continue
			}
			if err := e.settleClaim(id, record, claimable, now); err != nil {
				return err
			}
			total.Add(total, claimable)
		}
		if total.Sign() == 0 {
			return reverts.ErrNoRewardsAvailable
		}
		if err := e.token.Transfer(e.addr, caller, total); err != nil {
			return err
		}
		logger.Info("rewards claimed", "account", caller, "records", len(ids), "amount", total)
		return nil
	})
}

// settleClaim folds a payout into the record: the balance shrinks and the
// clock restarts at now, which keeps the overall release linear.
func (e *Escrow) settleClaim(id *big.Int, record *Record, claimed *big.Int, now uint64) error {
	record.Balance = new(big.Int).Sub(record.Balance, claimed)
	if now < record.End {
		record.Start = now
	} else {
		record.Start = record.End
	}
	return e.records.Set(id, record)
}

//
// Admin operations
//

// AddStakingContract authorizes a staking component to deposit. Owner only.
func (e *Escrow) AddStakingContract(caller, contract stakelock.Address) error {
	return e.transact("add_staking", func() error {
		if err := e.checkOwner(caller); err != nil {
			return err
		}
		if err := e.authorized.Set(contract, true); err != nil {
			return err
		}
		logger.Info("staking contract added", "contract", contract)
		return nil
	})
}

// RemoveStakingContract revokes a depositor. Owner only. Existing records
// are unaffected.
func (e *Escrow) RemoveStakingContract(caller, contract stakelock.Address) error {
	return e.transact("remove_staking", func() error {
		if err := e.checkOwner(caller); err != nil {
			return err
		}
		if err := e.authorized.Clear(contract); err != nil {
			return err
		}
		logger.Info("staking contract removed", "contract", contract)
		return nil
	})
}

// UpdateEscrowDuration changes the vesting duration for records opened from
// now on. Owner only.
func (e *Escrow) UpdateEscrowDuration(caller stakelock.Address, duration uint64) error {
	return e.transact("update_duration", func() error {
		if err := e.checkOwner(caller); err != nil {
			return err
		}
		if duration == 0 {
			return reverts.ErrInvalidAmount
		}
		e.duration.Set(duration)
		logger.Info("escrow duration updated", "duration", duration)
		return nil
	})
}

//
// Read operations
//

// GetEscrow returns the record with the given id. Unknown ids read as an
// empty record.
func (e *Escrow) GetEscrow(id *big.Int) (*Record, error) {
	return e.records.Get(id)
}

// GetEscrowIdsByUser returns the account's record ids in creation order.
func (e *Escrow) GetEscrowIdsByUser(account stakelock.Address) ([]*big.Int, error) {
	return e.index.ids(account)
}

// GetEscrows returns the records with the given ids.
func (e *Escrow) GetEscrows(ids []*big.Int) ([]*Record, error) {
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		record, err := e.records.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// GetClaimable returns the vested, unclaimed amount of a record at the
// given time.
func (e *Escrow) GetClaimable(id *big.Int, now uint64) (*big.Int, error) {
	record, err := e.records.Get(id)
	if err != nil {
		return nil, err
	}
	return record.Claimable(now), nil
}

// IsClaimable reports whether the id refers to a record that was ever
// created. Callers check the balance (or GetClaimable) for what is left.
func (e *Escrow) IsClaimable(id *big.Int) (bool, error) {
	record, err := e.records.Get(id)
	if err != nil {
		return false, err
	}
	return !record.IsEmpty(), nil
}

// IsAuthorized reports whether the address may deposit.
func (e *Escrow) IsAuthorized(addr stakelock.Address) (bool, error) {
	return e.authorized.Get(addr)
}

// EscrowDuration returns the vesting duration applied to new records.
func (e *Escrow) EscrowDuration() (uint64, error) {
	duration, err := e.duration.Get()
	if err != nil {
		return 0, err
	}
	if duration == 0 {
		return stakelock.DefaultEscrowDuration, nil
	}
	return duration, nil
}

func (e *Escrow) checkOwner(caller stakelock.Address) error {
	owner, err := e.owner.Get()
	if err != nil {
		return err
	}
	if owner.IsZero() || owner != caller {
		return reverts.ErrUnauthorized
	}
	return nil
}
