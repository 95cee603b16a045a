package state

import (
	"slices"
	"sync"
)

// Value is an observable value. Subscribers are called synchronously on the
// goroutine that changed it, in subscription order.
type Value[T any] struct {
	mu      sync.RWMutex
	current T
	subs    []subscriber[T]
	nextID  int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// NewValue creates a Value holding initial
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

// Get returns the current value
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set replaces the value and notifies subscribers
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.current = val
	subs := slices.Clone(v.subs)
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(val)
	}
}

// Update sets the value to fn applied to the current one
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	val := fn(v.current)
	v.current = val
	subs := slices.Clone(v.subs)
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(val)
	}
}

// Subscribe calls fn with the current value now and with every later value.
// The returned function removes the subscription.
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs = append(v.subs, subscriber[T]{id: id, fn: fn})
	current := v.current
	v.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			v.subs = slices.DeleteFunc(v.subs, func(s subscriber[T]) bool {
				return s.id == id
			})
		})
	}
}

// Derive returns a read-only Value computed from a and b, recomputed
// whenever either changes. Each recompute reads both sources under one lock,
// so after concurrent Sets settle the result reflects the latest a and b.
// Subscribers of the derived value must not set a or b.
func Derive[A, B, R any](a *Value[A], b *Value[B], fn func(A, B) R) *Value[R] {
	out := NewValue(fn(a.Get(), b.Get()))

	var mu sync.Mutex
	recompute := func() {
		mu.Lock()
		defer mu.Unlock()
		out.Set(fn(a.Get(), b.Get()))
	}

	a.Subscribe(func(A) { recompute() })
	b.Subscribe(func(B) { recompute() })
	return out
}
