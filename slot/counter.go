// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lockfi/stakelock/stakelock"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Counter is a monotonically increasing uint256 used to generate record ids.
// Ids start at 1; zero means "never assigned".
type Counter struct {
	inner *Uint256
}

func NewCounter(context *Context, pos stakelock.Bytes32) *Counter {
	return &Counter{inner: NewUint256(context, pos)}
}

// Next assigns and returns the next id.
func (c *Counter) Next() (*big.Int, error) {
	id, err := c.inner.Get()
	if err != nil {
		return nil, err
	}
	id.Add(id, big.NewInt(1))
	if id.Cmp(maxUint256) >= 0 {
		return nil, errors.New("id counter overflow")
	}
	c.inner.Set(id)
	return id, nil
}

// Current returns the last assigned id, zero if none.
func (c *Counter) Current() (*big.Int, error) {
	return c.inner.Get()
}
