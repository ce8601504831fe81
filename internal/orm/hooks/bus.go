package hooks

import (
	"context"
	"fmt"
	"sync"
)

// Bus delivers events to subscribers synchronously, in subscription order
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	nextID uint64
}

// Subscription is a registered handler
type Subscription struct {
	bus       *Bus
	id        uint64
	kind      Kind
	predicate Predicate
	handler   Handler
}

// Subscriptions is a set of subscriptions removed together
type Subscriptions []*Subscription

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for events of kind matching predicate. A nil
// predicate matches every event.
func (b *Bus) Subscribe(kind Kind, predicate Predicate, handler Handler) *Subscription {
	if predicate == nil {
		predicate = Any
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		bus:       b,
		id:        b.nextID,
		kind:      kind,
		predicate: predicate,
		handler:   handler,
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Unsubscribe removes the subscription. It is safe to call more than once
// and from inside the handler itself.
func (s *Subscription) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == s.id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Unsubscribe removes every subscription in the set
func (s Subscriptions) Unsubscribe() {
	for _, sub := range s {
		sub.Unsubscribe()
	}
}

// Len returns the number of live subscriptions
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Emit delivers ev to every matching subscriber. Handlers subscribed while
// the event is being delivered do not receive it. The first handler error
// stops delivery and is returned.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.kind != ev.Kind || !b.live(sub) || !sub.predicate(ev) {
			continue
		}
		if err := sub.handler(ctx, ev); err != nil {
			return fmt.Errorf("%s handler: %w", ev.Kind, err)
		}
	}
	return nil
}

// live reports whether sub was not removed by an earlier handler
func (b *Bus) live(sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.id == sub.id {
			return true
		}
	}
	return false
}
