package persistence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
)

// DefaultAutosaveDebounce is the quiet period after the last mutation
// before a snapshot is written
const DefaultAutosaveDebounce = 750 * time.Millisecond

// Subscriber is the part of the event bus the autosaver needs
type Subscriber interface {
	Subscribe(handler events.Handler, eventTypes ...string) func()
}

// Autosaver writes the graph to the snapshot slot a short while after the
// last mutation. Saves are postponed while an import is running.
type Autosaver struct {
	service *Service
	logger  *zap.Logger

	mu          sync.Mutex
	debounce    time.Duration
	timer       *time.Timer
	dirty       bool
	closed      bool
	unsubscribe func()
	saves       int
	onSave      func(error)
}

// NewAutosaver subscribes to every graph mutation on bus
func NewAutosaver(service *Service, bus Subscriber, debounce time.Duration, logger *zap.Logger) *Autosaver {
	if debounce <= 0 {
		debounce = DefaultAutosaveDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Autosaver{service: service, debounce: debounce, logger: logger}
	a.unsubscribe = bus.Subscribe(a.onEvent)
	return a
}

// OnSave registers a callback told about every snapshot write
func (a *Autosaver) OnSave(fn func(error)) {
	a.mu.Lock()
	a.onSave = fn
	a.mu.Unlock()
}

// SetDebounce changes the quiet period for saves scheduled from now on
func (a *Autosaver) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	a.mu.Lock()
	a.debounce = d
	a.mu.Unlock()
}

func (a *Autosaver) onEvent(_ context.Context, _ events.DomainEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.dirty = true
	a.scheduleLocked()
}

func (a *Autosaver) scheduleLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.fire)
}

func (a *Autosaver) fire() {
	if a.service.Importing() {
		a.mu.Lock()
		if !a.closed {
			a.scheduleLocked()
		}
		a.mu.Unlock()
		return
	}
	if err := a.save(context.Background()); err != nil {
		a.logger.Warn("Autosave failed", zap.Error(err))
	}
}

func (a *Autosaver) save(ctx context.Context) error {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	a.dirty = false
	a.mu.Unlock()

	err := a.service.Save(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.onSave != nil {
		a.onSave(err)
	}
	if err != nil {
		// keep the change pending so the next mutation or Flush retries
		a.dirty = true
		return err
	}
	a.saves++
	a.logger.Debug("Graph autosaved", zap.Int("saves", a.saves))
	return nil
}

// Pending reports whether unsaved changes exist
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Saves returns the number of successful snapshots written
func (a *Autosaver) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}

// Flush cancels the pending timer and writes unsaved changes immediately
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.save(ctx)
}

// Close stops listening for mutations and flushes what is pending
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.unsubscribe()
	return a.Flush(ctx)
}
