// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package escrow

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/lockfi/stakelock/slot"
	"github.com/lockfi/stakelock/stakelock"
)

// index maintains the per-account list of record ids. The list length lives
// in a mapping keyed by account; entry i lives at a slot derived from the
// account and i.
type index struct {
	ctx     *slot.Context
	basePos stakelock.Bytes32
	counts  *slot.Mapping[stakelock.Address, uint64]
}

func newIndex(ctx *slot.Context, countPos, entryPos stakelock.Bytes32) *index {
	return &index{
		ctx:     ctx,
		basePos: entryPos,
		counts:  slot.NewMapping[stakelock.Address, uint64](ctx, countPos),
	}
}

func (i *index) entrySlot(account stakelock.Address, n uint64) stakelock.Bytes32 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return stakelock.Blake2b(account.Bytes(), buf[:], i.basePos.Bytes())
}

// append adds id to the end of the account's list.
func (i *index) append(account stakelock.Address, id *big.Int) error {
	n, err := i.counts.Get(account)
	if err != nil {
		return errors.Wrap(err, "failed to get index length")
	}
	err = i.ctx.State().EncodeStorage(i.ctx.Address(), i.entrySlot(account, n), func() ([]byte, error) {
		return rlp.EncodeToBytes(id)
	})
	if err != nil {
		return errors.Wrap(err, "failed to store index entry")
	}
	if err := i.counts.Set(account, n+1); err != nil {
		return errors.Wrap(err, "failed to set index length")
	}
	return nil
}

// ids returns the account's record ids in creation order.
func (i *index) ids(account stakelock.Address) ([]*big.Int, error) {
	n, err := i.counts.Get(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get index length")
	}
	out := make([]*big.Int, 0, n)
	for k := uint64(0); k < n; k++ {
		id := new(big.Int)
		err := i.ctx.State().DecodeStorage(i.ctx.Address(), i.entrySlot(account, k), func(raw []byte) error {
			if len(raw) == 0 {
				return nil
			}
			return rlp.DecodeBytes(raw, id)
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to load index entry")
		}
		out = append(out, id)
	}
	return out, nil
}
