package eventbridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
)

// Subscriber is the part of the event bus the forwarder needs
type Subscriber interface {
	Subscribe(handler events.Handler, eventTypes ...string) func()
}

// Forwarder buffers bus events and hands them to a sink from its own
// goroutine, so graph mutations never wait on the network. When the buffer
// is full new events are dropped and counted.
type Forwarder struct {
	sink          ports.EventSink
	logger        *zap.Logger
	batchSize     int
	flushInterval time.Duration

	queue       chan events.DomainEvent
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once

	mu      sync.Mutex
	closed  bool
	dropped int
	failed  int
}

// NewForwarder subscribes to bus and starts the delivery goroutine
func NewForwarder(sink ports.EventSink, bus Subscriber, batchSize int, flushInterval time.Duration, logger *zap.Logger) *Forwarder {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Forwarder{
		sink:          sink,
		logger:        logger,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		queue:         make(chan events.DomainEvent, 1024),
		done:          make(chan struct{}),
	}
	f.unsubscribe = bus.Subscribe(f.enqueue)
	go f.run()
	return f
}

// enqueue may still run after Close when a publish was already under way;
// such events are counted as dropped
func (f *Forwarder) enqueue(_ context.Context, evt events.DomainEvent) {
	f.mu.Lock()
	if f.closed {
		f.dropped++
		f.mu.Unlock()
		f.logger.Debug("Forwarder closed, dropping event", zap.String("eventType", evt.GetEventType()))
		return
	}
	select {
	case f.queue <- evt:
		f.mu.Unlock()
	default:
		f.dropped++
		f.mu.Unlock()
		f.logger.Warn("Event buffer full, dropping event", zap.String("eventType", evt.GetEventType()))
	}
}

func (f *Forwarder) run() {
	defer close(f.done)

	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	batch := make([]events.DomainEvent, 0, f.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := f.sink.PublishBatch(ctx, batch); err != nil {
			f.mu.Lock()
			f.failed += len(batch)
			f.mu.Unlock()
			f.logger.Error("Failed to forward events", zap.Int("count", len(batch)), zap.Error(err))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case evt, ok := <-f.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, evt)
			if len(batch) >= f.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close unsubscribes, delivers what is buffered and waits for the goroutine
// or for ctx to end
func (f *Forwarder) Close(ctx context.Context) error {
	f.closeOnce.Do(func() {
		f.unsubscribe()
		f.mu.Lock()
		f.closed = true
		close(f.queue)
		f.mu.Unlock()
	})
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many events were dropped and how many failed delivery
func (f *Forwarder) Stats() (dropped, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped, f.failed
}
