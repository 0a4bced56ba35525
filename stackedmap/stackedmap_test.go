// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lockfi/stakelock/stackedmap"
)

func TestStackedMap(t *testing.T) {
	src := map[string]string{"base": "b"}
	sm := stackedmap.New(func(key any) (any, bool) {
		v, ok := src[key.(string)]
		return v, ok
	})

	assert.Equal(t, 0, sm.Depth())

	sm.Push()
	sm.Put("k1", "v1")

	v, ok := sm.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	// values fall through to the source
	v, ok = sm.Get("base")
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	sm.Push()
	sm.Put("k1", "v1'")
	sm.Put("k2", "v2")

	v, _ = sm.Get("k1")
	assert.Equal(t, "v1'", v)

	sm.Pop()

	v, _ = sm.Get("k1")
	assert.Equal(t, "v1", v, "pop should revert writes of the top level")

	_, ok = sm.Get("k2")
	assert.False(t, ok)

	sm.Pop()
	_, ok = sm.Get("k1")
	assert.False(t, ok)
}

func TestStackedMapPopTo(t *testing.T) {
	sm := stackedmap.New(func(any) (any, bool) { return nil, false })

	depth := sm.Push()
	sm.Put("k", "a")
	sm.Push()
	sm.Put("k", "b")
	sm.Push()
	sm.Put("k", "c")

	sm.PopTo(depth + 1)
	v, ok := sm.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	sm.PopTo(depth)
	_, ok = sm.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, sm.Depth())
}

func TestStackedMapOverwriteSameLevel(t *testing.T) {
	sm := stackedmap.New(func(any) (any, bool) { return nil, false })

	sm.Push()
	sm.Put("k", "a")
	sm.Put("k", "b")
	v, _ := sm.Get("k")
	assert.Equal(t, "b", v)

	sm.Pop()
	_, ok := sm.Get("k")
	assert.False(t, ok)
}
