// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the ledger's world state: raw and structured storage
// slots keyed by (address, key), with checkpoint/revert semantics. Durable
// persistence is an external concern; the engine only requires the
// transactional view implemented here.
package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/lockfi/stakelock/stackedmap"
	"github.com/lockfi/stakelock/stakelock"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

type storageKey struct {
	addr stakelock.Address
	key  stakelock.Bytes32
}

// State manages the world state.
type State struct {
	genesis map[storageKey]rlp.RawValue
	sm      *stackedmap.StackedMap // keeps revisions of storage writes
}

// New creates an empty state object.
func New() *State {
	s := &State{
		genesis: make(map[storageKey]rlp.RawValue),
	}
	s.sm = stackedmap.New(func(key any) (any, bool) {
		if raw, ok := s.genesis[key.(storageKey)]; ok {
			return raw, true
		}
		// missing slots read as empty values
		return rlp.RawValue(nil), true
	})
	// the base level holds all committed writes and is never popped
	s.sm.Push()
	return s
}

// GetRawStorage gets the RLP encoded storage value for the given key.
func (s *State) GetRawStorage(addr stakelock.Address, key stakelock.Bytes32) (rlp.RawValue, error) {
	raw, _ := s.sm.Get(storageKey{addr, key})
	return raw.(rlp.RawValue), nil
}

// SetRawStorage sets the RLP encoded storage value for the given key.
func (s *State) SetRawStorage(addr stakelock.Address, key stakelock.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns storage value for the given key.
func (s *State) GetStorage(addr stakelock.Address, key stakelock.Bytes32) (stakelock.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return stakelock.Bytes32{}, err
	}
	if len(raw) == 0 {
		return stakelock.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return stakelock.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		return stakelock.Bytes32{}, &Error{fmt.Errorf("invalid storage value encoding at %v/%v", addr, key)}
	}
	return stakelock.BytesToBytes32(content), nil
}

// SetStorage sets storage value for the given key.
// Setting a zero value clears the slot.
func (s *State) SetStorage(addr stakelock.Address, key, value stakelock.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(trimLeadingZeros(value.Bytes()))
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage sets storage value encoded by the given enc method.
// An empty encoded value clears the slot.
func (s *State) EncodeStorage(addr stakelock.Address, key stakelock.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage gets and decodes storage value using the given dec method.
func (s *State) DecodeStorage(addr stakelock.Address, key stakelock.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of the current state.
// The state can be reverted to the checkpoint later.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}
