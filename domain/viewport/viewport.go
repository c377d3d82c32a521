package viewport

import (
	"fmt"
	"math"
)

// Defaults taken from the desktop canvas
const (
	DefaultMinScale   = 0.1
	DefaultMaxScale   = 4.0
	DefaultZoomStep   = 1.15
	DefaultFitPadding = 80.0
)

// State is the serializable part of a viewport, cached between sessions
type State struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Scale   float64 `json:"scale"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Option configures a viewport
type Option func(*Viewport)

// WithScaleLimits overrides the zoom clamp
func WithScaleLimits(min, max float64) Option {
	return func(v *Viewport) {
		if min > 0 && max >= min {
			v.minScale, v.maxScale = min, max
		}
	}
}

// WithZoomStep overrides the wheel/keyboard zoom factor
func WithZoomStep(step float64) Option {
	return func(v *Viewport) {
		if step > 1 && !math.IsInf(step, 0) {
			v.step = step
		}
	}
}

// Viewport maps screen pixels to graph coordinates:
//
//	screen = (graph + offset) * scale
//
// It is not safe for concurrent use; see Canvas.
type Viewport struct {
	offsetX, offsetY   float64
	scale              float64
	minScale, maxScale float64
	step               float64
	width, height      float64
}

// New creates a viewport of the given screen size at scale 1
func New(width, height float64, opts ...Option) *Viewport {
	v := &Viewport{
		scale:    1,
		minScale: DefaultMinScale,
		maxScale: DefaultMaxScale,
		step:     DefaultZoomStep,
		width:    width,
		height:   height,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.scale = v.clamp(v.scale)
	return v
}

func (v *Viewport) clamp(s float64) float64 {
	return math.Max(v.minScale, math.Min(v.maxScale, s))
}

// Scale returns the current zoom factor
func (v *Viewport) Scale() float64 { return v.scale }

// Offset returns the current graph-space offset
func (v *Viewport) Offset() (float64, float64) { return v.offsetX, v.offsetY }

// Size returns the screen size in pixels
func (v *Viewport) Size() (float64, float64) { return v.width, v.height }

// ScaleLimits returns the zoom clamp
func (v *Viewport) ScaleLimits() (float64, float64) { return v.minScale, v.maxScale }

// Resize changes the screen size; the graph point at the top-left corner stays put
func (v *Viewport) Resize(width, height float64) {
	if width < 0 || height < 0 {
		return
	}
	v.width, v.height = width, height
}

// ScreenToGraph converts a pixel position into graph coordinates
func (v *Viewport) ScreenToGraph(px, py float64) (float64, float64) {
	return px/v.scale - v.offsetX, py/v.scale - v.offsetY
}

// GraphToScreen converts graph coordinates into a pixel position
func (v *Viewport) GraphToScreen(gx, gy float64) (float64, float64) {
	return (gx + v.offsetX) * v.scale, (gy + v.offsetY) * v.scale
}

// Pan shifts the view by a screen-space delta
func (v *Viewport) Pan(dx, dy float64) {
	if !finite(dx) || !finite(dy) {
		return
	}
	v.offsetX += dx / v.scale
	v.offsetY += dy / v.scale
}

// Zoom multiplies the scale by factor, keeping the graph point under the
// screen anchor fixed. The offset is derived from the clamped scale so the
// anchor holds even when the clamp bites. Non-positive or non-finite factors
// are rejected and report false.
func (v *Viewport) Zoom(factor, anchorX, anchorY float64) bool {
	if !(factor > 0) || !finite(factor) || !finite(anchorX) || !finite(anchorY) {
		return false
	}
	gx, gy := v.ScreenToGraph(anchorX, anchorY)
	v.scale = v.clamp(v.scale * factor)
	v.offsetX = anchorX/v.scale - gx
	v.offsetY = anchorY/v.scale - gy
	return true
}

// ZoomStep zooms one wheel notch in or out around the anchor
func (v *Viewport) ZoomStep(in bool, anchorX, anchorY float64) bool {
	factor := v.step
	if !in {
		factor = 1 / v.step
	}
	return v.Zoom(factor, anchorX, anchorY)
}

// CenterOn pans so that the graph point lands at the screen centre
func (v *Viewport) CenterOn(gx, gy float64) {
	if !finite(gx) || !finite(gy) {
		return
	}
	v.offsetX = (v.width/2)/v.scale - gx
	v.offsetY = (v.height/2)/v.scale - gy
}

// FitBounds scales and centres the view so that r plus padding pixels on
// every side is visible. A degenerate r is widened instead of dividing by zero.
func (v *Viewport) FitBounds(r Rect, padding float64) bool {
	if v.width <= 0 || v.height <= 0 {
		return false
	}
	if padding < 0 || !finite(padding) {
		padding = DefaultFitPadding
	}
	r = r.WithMinExtent(1)
	if r.IsDegenerate() {
		return false
	}

	availW := math.Max(v.width-2*padding, 1)
	availH := math.Max(v.height-2*padding, 1)
	v.scale = v.clamp(math.Min(availW/r.Width(), availH/r.Height()))
	cx, cy := r.Center()
	v.CenterOn(cx, cy)
	return true
}

// VisibleRect returns the graph-space rectangle currently on screen
func (v *Viewport) VisibleRect() Rect {
	x0, y0 := v.ScreenToGraph(0, 0)
	x1, y1 := v.ScreenToGraph(v.width, v.height)
	return Rect{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
}

// State captures the viewport for the session cache
func (v *Viewport) State() State {
	return State{OffsetX: v.offsetX, OffsetY: v.offsetY, Scale: v.scale, Width: v.width, Height: v.height}
}

// Restore applies a cached state. The scale is clamped to the current limits;
// a zero screen size keeps the current one.
func (v *Viewport) Restore(s State) error {
	if !(s.Scale > 0) || !finite(s.Scale) || !finite(s.OffsetX) || !finite(s.OffsetY) {
		return fmt.Errorf("invalid viewport state: scale=%v offset=(%v,%v)", s.Scale, s.OffsetX, s.OffsetY)
	}
	v.offsetX, v.offsetY = s.OffsetX, s.OffsetY
	v.scale = v.clamp(s.Scale)
	if s.Width > 0 && s.Height > 0 {
		v.width, v.height = s.Width, s.Height
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
