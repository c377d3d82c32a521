package events

import (
	"context"
	"sync"
)

// Publisher receives committed domain events
type Publisher interface {
	Publish(ctx context.Context, events ...DomainEvent)
}

// Handler processes a single event. Handlers run on the publishing goroutine
// and must not block; long work belongs in a goroutine of their own.
type Handler func(ctx context.Context, event DomainEvent)

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, ...DomainEvent) {}

type subscription struct {
	types   map[string]struct{}
	handler Handler
}

// Bus is an in-process fan-out of domain events to subscribers
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]subscription
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe registers handler for the given event types, or for every event
// when no type is named. The returned func removes the subscription.
func (b *Bus) Subscribe(handler Handler, eventTypes ...string) func() {
	sub := subscription{handler: handler}
	if len(eventTypes) > 0 {
		sub.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers events in order to every matching subscriber
func (b *Bus) Publish(ctx context.Context, evts ...DomainEvent) {
	if len(evts) == 0 {
		return
	}

	b.mu.RLock()
	subs := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, evt := range evts {
		for _, s := range subs {
			if s.types != nil {
				if _, ok := s.types[evt.GetEventType()]; !ok {
					continue
				}
			}
			s.handler(ctx, evt)
		}
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
