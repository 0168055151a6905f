// Package notify is a synchronous in-process publish/subscribe bus.
//
// Delivery happens on the publishing goroutine in subscription order. There
// is no persistence and no replay: a handler registered after an event was
// published never sees it.
package notify

import (
	"sync"
	"sync/atomic"
)

// Handler receives published events.
type Handler[E any] func(E)

type subscriber[E any] struct {
	id uint64
	fn Handler[E]
}

// Bus fans events of type E out to registered handlers.
type Bus[E any] struct {
	mu   sync.RWMutex
	subs []subscriber[E]
	seq  atomic.Uint64
}

func NewBus[E any]() *Bus[E] {
	return &Bus[E]{}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops delivery. Safe to call more than once and from inside a handler.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

func (b *Bus[E]) Subscribe(fn Handler[E]) *Subscription {
	id := b.seq.Add(1)
	b.mu.Lock()
	b.subs = append(b.subs, subscriber[E]{id: id, fn: fn})
	b.mu.Unlock()
	return &Subscription{cancel: func() { b.remove(id) }}
}

// Publish delivers event to every current subscriber and returns how many
// handlers were called. Handlers run outside the bus lock.
func (b *Bus[E]) Publish(event E) int {
	b.mu.RLock()
	subs := make([]subscriber[E], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(event)
	}
	return len(subs)
}

// Len reports the number of active subscribers.
func (b *Bus[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus[E]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
