package eventbridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseb "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/messaging/eventbridge"
)

type fakeEventBridge struct {
	mu     sync.Mutex
	calls  [][]types.PutEventsRequestEntry
	err    error
	failAt map[int]string
}

func (f *fakeEventBridge) PutEvents(_ context.Context, in *awseb.PutEventsInput, _ ...func(*awseb.Options)) (*awseb.PutEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, in.Entries)

	out := &awseb.PutEventsOutput{Entries: make([]types.PutEventsResultEntry, len(in.Entries))}
	for i := range in.Entries {
		if code, ok := f.failAt[i]; ok {
			out.Entries[i] = types.PutEventsResultEntry{ErrorCode: aws.String(code), ErrorMessage: aws.String("rejected")}
			out.FailedEntryCount++
		}
	}
	return out, nil
}

func (f *fakeEventBridge) entries() []types.PutEventsRequestEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []types.PutEventsRequestEntry
	for _, c := range f.calls {
		all = append(all, c...)
	}
	return all
}

func nodeEvents(n int) []events.DomainEvent {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewNodeCreated(nodeID(i), "person", at)
	}
	return out
}

func TestPublisher_EntryShape(t *testing.T) {
	fake := &fakeEventBridge{}
	pub := eventbridge.NewPublisher(fake, "mindmap-bus", "", 10, nil)

	require.NoError(t, pub.PublishBatch(context.Background(), nodeEvents(1)))

	entries := fake.entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "mindmap-bus", aws.ToString(e.EventBusName))
	assert.Equal(t, eventbridge.DefaultSource, aws.ToString(e.Source))
	assert.Equal(t, events.TypeNodeCreated, aws.ToString(e.DetailType))
	assert.Equal(t, []string{"osint-mindmap:node-0"}, e.Resources)

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(e.Detail)), &detail))
	assert.Equal(t, "node-0", detail["node_id"])
	assert.Equal(t, "person", detail["node_type"])
}

func TestPublisher_Chunks(t *testing.T) {
	fake := &fakeEventBridge{}
	pub := eventbridge.NewPublisher(fake, "bus", "src", 4, nil)

	require.NoError(t, pub.PublishBatch(context.Background(), nodeEvents(10)))

	require.Len(t, fake.calls, 3)
	assert.Len(t, fake.calls[0], 4)
	assert.Len(t, fake.calls[1], 4)
	assert.Len(t, fake.calls[2], 2)
}

func TestPublisher_BatchSizeClamped(t *testing.T) {
	fake := &fakeEventBridge{}
	pub := eventbridge.NewPublisher(fake, "bus", "src", 50, nil)

	require.NoError(t, pub.PublishBatch(context.Background(), nodeEvents(15)))
	require.Len(t, fake.calls, 2)
	assert.Len(t, fake.calls[0], eventbridge.MaxBatchSize)
}

func TestPublisher_Errors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		fake := &fakeEventBridge{err: errors.New("connection reset")}
		pub := eventbridge.NewPublisher(fake, "bus", "src", 10, nil)
		assert.Error(t, pub.PublishBatch(context.Background(), nodeEvents(2)))
	})

	t.Run("partial failure", func(t *testing.T) {
		fake := &fakeEventBridge{failAt: map[int]string{1: "ThrottlingException"}}
		pub := eventbridge.NewPublisher(fake, "bus", "src", 10, nil)
		err := pub.PublishBatch(context.Background(), nodeEvents(3))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 events failed")
	})

	t.Run("empty", func(t *testing.T) {
		fake := &fakeEventBridge{}
		pub := eventbridge.NewPublisher(fake, "bus", "src", 10, nil)
		assert.NoError(t, pub.PublishBatch(context.Background(), nil))
		assert.Empty(t, fake.calls)
	})
}

func TestForwarder_DeliversBusEvents(t *testing.T) {
	fake := &fakeEventBridge{}
	bus := events.NewBus()
	fwd := eventbridge.NewForwarder(eventbridge.NewPublisher(fake, "bus", "src", 10, nil), bus, 3, 10*time.Millisecond, nil)

	bus.Publish(context.Background(), nodeEvents(7)...)

	assert.Eventually(t, func() bool { return len(fake.entries()) == 7 }, time.Second, 5*time.Millisecond)

	require.NoError(t, fwd.Close(context.Background()))
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestForwarder_CloseFlushes(t *testing.T) {
	fake := &fakeEventBridge{}
	bus := events.NewBus()
	fwd := eventbridge.NewForwarder(eventbridge.NewPublisher(fake, "bus", "src", 10, nil), bus, 10, time.Hour, nil)

	bus.Publish(context.Background(), nodeEvents(2)...)
	require.NoError(t, fwd.Close(context.Background()))
	require.NoError(t, fwd.Close(context.Background()))

	assert.Len(t, fake.entries(), 2)
}

func TestForwarder_CountsFailures(t *testing.T) {
	fake := &fakeEventBridge{err: errors.New("unavailable")}
	bus := events.NewBus()
	fwd := eventbridge.NewForwarder(eventbridge.NewPublisher(fake, "bus", "src", 10, nil), bus, 10, time.Hour, nil)

	bus.Publish(context.Background(), nodeEvents(4)...)
	require.NoError(t, fwd.Close(context.Background()))

	dropped, failed := fwd.Stats()
	assert.Zero(t, dropped)
	assert.Equal(t, 4, failed)
}

func nodeID(i int) valueobjects.NodeID {
	return valueobjects.NodeID(fmt.Sprintf("node-%d", i))
}

// capturingBus hands out the subscribed handler the way a Publish already in
// flight holds on to it
type capturingBus struct {
	handler events.Handler
}

func (b *capturingBus) Subscribe(handler events.Handler, _ ...string) func() {
	b.handler = handler
	return func() {}
}

func TestForwarder_EventAfterCloseIsDropped(t *testing.T) {
	fake := &fakeEventBridge{}
	bus := &capturingBus{}
	fwd := eventbridge.NewForwarder(eventbridge.NewPublisher(fake, "bus", "src", 10, nil), bus, 10, time.Hour, nil)
	require.NotNil(t, bus.handler)

	bus.handler(context.Background(), nodeEvents(1)[0])
	require.NoError(t, fwd.Close(context.Background()))

	assert.NotPanics(t, func() {
		bus.handler(context.Background(), nodeEvents(1)[0])
	})
	assert.Len(t, fake.entries(), 1)
	dropped, failed := fwd.Stats()
	assert.Equal(t, 1, dropped)
	assert.Zero(t, failed)
}

func TestForwarder_ConcurrentPublishDuringClose(t *testing.T) {
	fake := &fakeEventBridge{}
	bus := &capturingBus{}
	fwd := eventbridge.NewForwarder(eventbridge.NewPublisher(fake, "bus", "src", 10, nil), bus, 10, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, evt := range nodeEvents(50) {
				bus.handler(context.Background(), evt)
			}
		}()
	}
	require.NoError(t, fwd.Close(context.Background()))
	wg.Wait()

	dropped, _ := fwd.Stats()
	assert.Equal(t, 200, len(fake.entries())+dropped)
}
