// Package store holds the per-session state the web tier keeps in sync with
// the tracker API: observable values and the resource stores built on them.
package store

import (
	"sync"
)

// Value is an observable holder. Subscribers run after every change, outside
// the lock, with the new value.
type Value[T any] struct {
	mu     sync.Mutex
	value  T
	set    bool
	nextID int
	subs   map[int]func(T)
}

func NewValue[T any]() *Value[T] {
	return &Value[T]{subs: make(map[int]func(T))}
}

// Get returns the current value and whether one was ever set.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.set
}

func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	v.set = true
	subs := v.snapshotSubs()
	v.mu.Unlock()
	notify(subs, value)
}

// Update applies fn to the current value. It is a no-op while the value is
// unset, so a partial update can never invent a whole value.
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	if !v.set {
		v.mu.Unlock()
		return
	}
	v.value = fn(v.value)
	value := v.value
	subs := v.snapshotSubs()
	v.mu.Unlock()
	notify(subs, value)
}

// Subscribe registers fn and returns a func that removes it.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

func (v *Value[T]) snapshotSubs() []func(T) {
	subs := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify[T any](subs []func(T), value T) {
	for _, fn := range subs {
		fn(value)
	}
}
