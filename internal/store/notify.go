package store

import (
	"sync"

	"github.com/rcliao/mission-control/internal/model"
)

// Subscription receives change signals for the entity collections.
// C carries at most one pending signal; Changes drains the set of
// collections modified since the previous call.
type Subscription struct {
	C <-chan struct{}

	signal  chan struct{}
	broker  *broker
	mu      sync.Mutex
	pending map[model.EntityType]bool
}

// Changes returns and clears the collections modified since the last call,
// in display order.
func (s *Subscription) Changes() []model.EntityType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EntityType
	for _, t := range model.EntityTypes {
		if s.pending[t] {
			out = append(out, t)
		}
	}
	clear(s.pending)
	return out
}

// Ready returns C.
func (s *Subscription) Ready() <-chan struct{} { return s.C }

// Close unregisters the subscription. C is not closed.
func (s *Subscription) Close() {
	s.broker.remove(s)
}

func (s *Subscription) notify(t model.EntityType) {
	s.mu.Lock()
	s.pending[t] = true
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

type broker struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[*Subscription]struct{})}
}

func (b *broker) subscribe() *Subscription {
	ch := make(chan struct{}, 1)
	sub := &Subscription{
		C:       ch,
		signal:  ch,
		broker:  b,
		pending: make(map[model.EntityType]bool),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *broker) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

func (b *broker) publish(types ...model.EntityType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		for _, t := range types {
			sub.notify(t)
		}
	}
}

// Subscribe registers for change notifications.
func (s *SQLiteStore) Subscribe() *Subscription {
	return s.changes.subscribe()
}
