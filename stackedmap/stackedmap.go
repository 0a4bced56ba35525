// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stackedmap implements a key/value map with stacked revisions.
// Pushing opens a new revision; popping discards every write made since the
// matching push. It is the substrate that makes ledger operations
// all-or-nothing.
package stackedmap

// MapGetter defines the getter for the backing data source.
type MapGetter func(key any) (value any, exist bool)

// StackedMap maintains maps in a stack.
// Each level inherits the key/value pairs of the levels below it.
type StackedMap struct {
	src       MapGetter
	levels    []map[any]any
	revisions map[any][]int // per key, the stack of level indices that wrote it
}

// New creates an instance of StackedMap. src acts as the source of data.
func New(src MapGetter) *StackedMap {
	return &StackedMap{
		src:       src,
		revisions: make(map[any][]int),
	}
}

// Depth returns the depth of the stack.
func (sm *StackedMap) Depth() int {
	return len(sm.levels)
}

// Push pushes a new level onto the stack and
// returns the stack depth before the push.
func (sm *StackedMap) Push() int {
	sm.levels = append(sm.levels, make(map[any]any))
	return len(sm.levels) - 1
}

// Pop removes the topmost level, reverting all writes made since the
// matching Push.
func (sm *StackedMap) Pop() {
	top := sm.levels[len(sm.levels)-1]
	for key := range top {
		revs := sm.revisions[key]
		revs = revs[:len(revs)-1]
		if len(revs) == 0 {
			delete(sm.revisions, key)
		} else {
			sm.revisions[key] = revs
		}
	}
	sm.levels = sm.levels[:len(sm.levels)-1]
}

// PopTo pops levels until the stack depth reaches depth.
func (sm *StackedMap) PopTo(depth int) {
	for len(sm.levels) > depth {
		sm.Pop()
	}
}

// Get gets the value for the given key. The second return value indicates
// whether the key was found.
func (sm *StackedMap) Get(key any) (any, bool) {
	if revs, ok := sm.revisions[key]; ok {
		lvl := sm.levels[revs[len(revs)-1]]
		if v, ok := lvl[key]; ok {
			return v, true
		}
	}
	return sm.src(key)
}

// Put puts the key/value pair into the level at the top of the stack.
// It panics if the stack is empty.
func (sm *StackedMap) Put(key, value any) {
	rev := len(sm.levels) - 1
	top := sm.levels[rev]
	if _, ok := top[key]; !ok {
		sm.revisions[key] = append(sm.revisions[key], rev)
	}
	top[key] = value
}
