package viewport

import (
	"math"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
)

// Node box size on the canvas, measured from the node position
const (
	NodeWidth  = 240.0
	NodeHeight = 140.0
)

// Minimap defaults
const (
	DefaultMinimapMargin = 80.0
	MinimapMinExtent     = 100.0
)

// DefaultExtent is the canvas scene rect, used when there is nothing to frame
var DefaultExtent = Rect{MinX: -5000, MinY: -5000, MaxX: 5000, MaxY: 5000}

// Minimap is a fixed-size overview of the whole graph. Its transform is
// derived from the node bounding box with a uniform, centred scale.
type Minimap struct {
	width, height float64
	margin        float64

	bounds     Rect
	scale      float64
	padX, padY float64
}

// NewMinimap creates a minimap of the given pixel size framing DefaultExtent
func NewMinimap(width, height float64) *Minimap {
	m := &Minimap{width: width, height: height, margin: DefaultMinimapMargin}
	m.SetBounds(DefaultExtent)
	return m
}

// Size returns the minimap size in pixels
func (m *Minimap) Size() (float64, float64) { return m.width, m.height }

// Bounds returns the graph-space rect the minimap frames
func (m *Minimap) Bounds() Rect { return m.bounds }

// Scale returns minimap pixels per graph unit
func (m *Minimap) Scale() float64 { return m.scale }

// NodeBounds returns the bounding box of the node boxes at the given positions.
// ok is false when there are no positions.
func NodeBounds(positions []valueobjects.Position) (Rect, bool) {
	var (
		r     Rect
		found bool
	)
	for _, p := range positions {
		if !p.IsFinite() {
			continue
		}
		box := NewRect(p.X, p.Y, NodeWidth, NodeHeight)
		if !found {
			r, found = box, true
			continue
		}
		r = r.Union(box)
	}
	return r, found
}

// Fit frames the node boxes at positions plus the margin. An empty graph
// frames DefaultExtent.
func (m *Minimap) Fit(positions []valueobjects.Position) {
	r, ok := NodeBounds(positions)
	if !ok {
		m.SetBounds(DefaultExtent)
		return
	}
	m.SetBounds(r.Inset(m.margin))
}

// SetBounds frames r directly. Thin rects are widened to MinimapMinExtent and
// degenerate ones fall back to DefaultExtent.
func (m *Minimap) SetBounds(r Rect) {
	r = r.WithMinExtent(MinimapMinExtent)
	if r.IsDegenerate() {
		r = DefaultExtent
	}
	m.bounds = r

	if m.width <= 0 || m.height <= 0 {
		m.scale, m.padX, m.padY = 1, 0, 0
		return
	}
	m.scale = math.Min(m.width/r.Width(), m.height/r.Height())
	m.padX = (m.width - r.Width()*m.scale) / 2
	m.padY = (m.height - r.Height()*m.scale) / 2
}

// GraphToMinimap converts graph coordinates into minimap pixels
func (m *Minimap) GraphToMinimap(gx, gy float64) (float64, float64) {
	return (gx-m.bounds.MinX)*m.scale + m.padX, (gy-m.bounds.MinY)*m.scale + m.padY
}

// MinimapToGraph converts minimap pixels into graph coordinates
func (m *Minimap) MinimapToGraph(mx, my float64) (float64, float64) {
	return (mx-m.padX)/m.scale + m.bounds.MinX, (my-m.padY)/m.scale + m.bounds.MinY
}

// ViewRect maps the main viewport's visible area into minimap pixels
func (m *Minimap) ViewRect(main *Viewport) Rect {
	vis := main.VisibleRect()
	x0, y0 := m.GraphToMinimap(vis.MinX, vis.MinY)
	x1, y1 := m.GraphToMinimap(vis.MaxX, vis.MaxY)
	return Rect{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
}

// DragTo re-centres the main viewport on the graph point under a minimap
// click or drag, with a single CenterOn call. It returns that graph point.
func (m *Minimap) DragTo(mx, my float64, main *Viewport) (float64, float64) {
	gx, gy := m.MinimapToGraph(mx, my)
	main.CenterOn(gx, gy)
	return gx, gy
}
