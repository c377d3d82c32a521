package viewport

import (
	"sync"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
)

// Snapshot is a consistent read of the main viewport and the minimap
type Snapshot struct {
	Viewport      State   `json:"viewport"`
	Visible       Rect    `json:"visible"`
	MinimapBounds Rect    `json:"minimap_bounds"`
	MinimapView   Rect    `json:"minimap_view"`
	MinimapScale  float64 `json:"minimap_scale"`
}

// Canvas guards the main viewport and its minimap for concurrent callers.
// Every method is synchronous and never waits on background work.
type Canvas struct {
	mu      sync.Mutex
	main    *Viewport
	minimap *Minimap
}

// NewCanvas creates a canvas holder
func NewCanvas(main *Viewport, minimap *Minimap) *Canvas {
	return &Canvas{main: main, minimap: minimap}
}

// Snapshot returns the current view state
func (c *Canvas) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Canvas) snapshotLocked() Snapshot {
	return Snapshot{
		Viewport:      c.main.State(),
		Visible:       c.main.VisibleRect(),
		MinimapBounds: c.minimap.Bounds(),
		MinimapView:   c.minimap.ViewRect(c.main),
		MinimapScale:  c.minimap.Scale(),
	}
}

// Pan shifts the main view by a screen delta
func (c *Canvas) Pan(dx, dy float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.main.Pan(dx, dy)
	return c.snapshotLocked()
}

// Zoom zooms around a screen anchor; ok is false for a rejected factor
func (c *Canvas) Zoom(factor, anchorX, anchorY float64) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.main.Zoom(factor, anchorX, anchorY)
	return c.snapshotLocked(), ok
}

// ZoomStep zooms one notch around a screen anchor
func (c *Canvas) ZoomStep(in bool, anchorX, anchorY float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.main.ZoomStep(in, anchorX, anchorY)
	return c.snapshotLocked()
}

// CenterOn centres the main view on a graph point
func (c *Canvas) CenterOn(gx, gy float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.main.CenterOn(gx, gy)
	return c.snapshotLocked()
}

// FitNodes frames the node boxes at positions; an empty graph frames DefaultExtent
func (c *Canvas) FitNodes(positions []valueobjects.Position, padding float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := NodeBounds(positions)
	if !ok {
		r = DefaultExtent
	}
	c.main.FitBounds(r, padding)
	return c.snapshotLocked()
}

// Resize changes the main screen size
func (c *Canvas) Resize(width, height float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.main.Resize(width, height)
	return c.snapshotLocked()
}

// RefreshMinimap reframes the minimap around the current node positions
func (c *Canvas) RefreshMinimap(positions []valueobjects.Position) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minimap.Fit(positions)
	return c.snapshotLocked()
}

// DragMinimap centres the main view on the graph point under a minimap pixel
func (c *Canvas) DragMinimap(mx, my float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minimap.DragTo(mx, my, c.main)
	return c.snapshotLocked()
}

// ScreenToGraph converts through the main viewport
func (c *Canvas) ScreenToGraph(px, py float64) (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main.ScreenToGraph(px, py)
}

// State returns the main viewport state for the session cache
func (c *Canvas) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main.State()
}

// Restore applies a cached main viewport state
func (c *Canvas) Restore(s State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main.Restore(s)
}
