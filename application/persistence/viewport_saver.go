package persistence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/viewport"
)

// DefaultViewportDebounce is the quiet period after the last pan or zoom
// before the viewport is written to the slot
const DefaultViewportDebounce = 250 * time.Millisecond

// ViewportSaver caches the viewport in the background. Put never touches
// the slot; only the latest state is written once the view settles.
type ViewportSaver struct {
	service *Service
	logger  *zap.Logger

	// serialises slot writes so an older state never lands after a newer one
	writeMu sync.Mutex

	mu       sync.Mutex
	debounce time.Duration
	timer    *time.Timer
	pending  *viewport.State
	closed   bool
	saves    int
}

// NewViewportSaver creates a debounced viewport writer over service
func NewViewportSaver(service *Service, debounce time.Duration, logger *zap.Logger) *ViewportSaver {
	if debounce <= 0 {
		debounce = DefaultViewportDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewportSaver{service: service, debounce: debounce, logger: logger}
}

// SetDebounce changes the quiet period for writes scheduled from now on
func (v *ViewportSaver) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	v.mu.Lock()
	v.debounce = d
	v.mu.Unlock()
}

// Put records state as the one to cache and schedules a write
func (v *ViewportSaver) Put(state viewport.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.pending = &state
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.debounce, v.fire)
}

func (v *ViewportSaver) fire() {
	if err := v.write(context.Background()); err != nil {
		v.logger.Warn("Failed to cache viewport", zap.Error(err))
	}
}

func (v *ViewportSaver) write(ctx context.Context) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	state := v.pending
	v.pending = nil
	v.mu.Unlock()
	if state == nil {
		return nil
	}

	err := v.service.SaveViewport(ctx, *state)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		if v.pending == nil {
			v.pending = state
		}
		return err
	}
	v.saves++
	return nil
}

// Pending reports whether a viewport state is waiting to be written
func (v *ViewportSaver) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending != nil
}

// Saves returns the number of successful viewport writes
func (v *ViewportSaver) Saves() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saves
}

// Flush cancels the pending timer and writes the latest state now
func (v *ViewportSaver) Flush(ctx context.Context) error {
	v.mu.Lock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.mu.Unlock()
	return v.write(ctx)
}

// Close stops accepting states and flushes what is pending
func (v *ViewportSaver) Close(ctx context.Context) error {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return v.Flush(ctx)
}
