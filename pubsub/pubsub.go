// Package pubsub holds a minimal in-process observable value. Subscribers
// are notified synchronously on the publishing goroutine; de-duplication
// of equal values is left to the caller.
package pubsub

import "sync"

type Topic[T any] struct {
	mux    sync.Mutex
	next   int
	subs   map[int]func(T)
	latest T
	seeded bool
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: map[int]func(T){}}
}

// Subscribe registers fn and replays the latest published value, if any.
// The returned func removes the subscription.
func (t *Topic[T]) Subscribe(fn func(T)) func() {
	t.mux.Lock()
	id := t.next
	t.next++
	t.subs[id] = fn
	replay, seeded := t.latest, t.seeded
	t.mux.Unlock()

	if seeded {
		fn(replay)
	}

	return func() {
		t.mux.Lock()
		delete(t.subs, id)
		t.mux.Unlock()
	}
}

func (t *Topic[T]) Publish(v T) {
	t.mux.Lock()
	t.latest = v
	t.seeded = true
	fns := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mux.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Latest returns the most recently published value.
func (t *Topic[T]) Latest() (T, bool) {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.latest, t.seeded
}
