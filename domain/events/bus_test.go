package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_FiltersByType(t *testing.T) {
	bus := NewBus()
	var all, created []string

	bus.Subscribe(func(_ context.Context, e DomainEvent) { all = append(all, e.GetEventType()) })
	unsubscribe := bus.Subscribe(func(_ context.Context, e DomainEvent) {
		created = append(created, e.GetAggregateID())
	}, TypeNodeCreated)

	now := time.Now()
	bus.Publish(context.Background(),
		NewNodeCreated("n1", "person", now),
		NewEdgeDeleted("e2", now),
	)

	assert.Equal(t, []string{TypeNodeCreated, TypeEdgeDeleted}, all)
	assert.Equal(t, []string{"n1"}, created)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.Publish(context.Background(), NewNodeCreated("n3", "note", now))
	assert.Equal(t, []string{"n1"}, created)
}

func TestBus_PublishNothing(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe(func(context.Context, DomainEvent) { called = true })
	bus.Publish(context.Background())
	assert.False(t, called)
}
