package watch

import (
	"slices"
	"sync"
)

// Value holds a single value of type T and pushes every write to its
// subscribers. It is the primitive under the session's reactive state: the
// derived pieces subscribe to their inputs instead of polling them.
//
// Subscribers run synchronously on the goroutine that called Set, after the
// internal lock is released. A subscriber may read the Value or write other
// Values; writing the same Value from its own subscriber will recurse and
// must terminate on its own.
type Value[T any] struct {
	mu     sync.Mutex
	val    T
	subs   map[int]func(T)
	nextID int
}

// NewValue returns a Value seeded with initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{val: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val
}

// Set stores val and notifies every subscriber in subscription order, even
// when the new value compares equal to the old one. Dependents re-evaluate
// on every write, not just on distinct writes.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.val = val

	// Snapshot the subscriber set so callbacks run without the lock held.
	ids := make([]int, 0, len(v.subs))
	for id := range v.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, v.subs[id])
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(val)
	}
}

// Subscribe registers fn to run on every subsequent Set. It returns a cancel
// function that removes the subscription; cancel is idempotent.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.subs == nil {
		v.subs = make(map[int]func(T))
	}
	id := v.nextID
	v.nextID++
	v.subs[id] = fn

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}
