package viewport

import (
	"math"
	"testing"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestScreenGraphRoundTrip(t *testing.T) {
	v := New(800, 600)
	v.Pan(123, -45)
	v.Zoom(2.5, 300, 200)

	for _, p := range [][2]float64{{0, 0}, {800, 600}, {13.5, 599}, {-40, 1e4}} {
		gx, gy := v.ScreenToGraph(p[0], p[1])
		sx, sy := v.GraphToScreen(gx, gy)
		assert.InDelta(t, p[0], sx, 1e-6)
		assert.InDelta(t, p[1], sy, 1e-6)
	}
}

func TestPan(t *testing.T) {
	v := New(800, 600)
	v.Zoom(2, 0, 0)
	v.Pan(100, 50)

	ox, oy := v.Offset()
	assert.InDelta(t, 50, ox, eps)
	assert.InDelta(t, 25, oy, eps)

	v.Pan(math.NaN(), 10)
	ox2, _ := v.Offset()
	assert.Equal(t, ox, ox2)
}

func TestZoomKeepsAnchorFixed(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
	}{
		{name: "zoom in", factor: 1.15},
		{name: "zoom out", factor: 0.5},
		{name: "clamped at max", factor: 1000},
		{name: "clamped at min", factor: 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(800, 600)
			v.Pan(-30, 70)
			ax, ay := 250.0, 410.0
			gx, gy := v.ScreenToGraph(ax, ay)

			require.True(t, v.Zoom(tt.factor, ax, ay))

			gx2, gy2 := v.ScreenToGraph(ax, ay)
			assert.InDelta(t, gx, gx2, 1e-6)
			assert.InDelta(t, gy, gy2, 1e-6)
			min, max := v.ScaleLimits()
			assert.GreaterOrEqual(t, v.Scale(), min)
			assert.LessOrEqual(t, v.Scale(), max)
		})
	}
}

func TestZoomRejectsBadFactor(t *testing.T) {
	v := New(800, 600)
	before := v.State()

	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.False(t, v.Zoom(f, 10, 10))
	}
	assert.Equal(t, before, v.State())
}

func TestZoomClamp(t *testing.T) {
	v := New(800, 600)
	v.Zoom(100, 0, 0)
	assert.Equal(t, DefaultMaxScale, v.Scale())
	v.Zoom(1e-9, 0, 0)
	assert.Equal(t, DefaultMinScale, v.Scale())

	custom := New(800, 600, WithScaleLimits(0.5, 2))
	custom.Zoom(10, 0, 0)
	assert.Equal(t, 2.0, custom.Scale())
}

func TestZoomStep(t *testing.T) {
	v := New(800, 600)
	v.ZoomStep(true, 400, 300)
	assert.InDelta(t, 1.15, v.Scale(), eps)
	v.ZoomStep(false, 400, 300)
	assert.InDelta(t, 1.0, v.Scale(), eps)
}

func TestCenterOn(t *testing.T) {
	v := New(800, 600)
	v.Zoom(1.7, 100, 100)
	v.CenterOn(1234, -567)

	sx, sy := v.GraphToScreen(1234, -567)
	assert.InDelta(t, 400, sx, 1e-6)
	assert.InDelta(t, 300, sy, 1e-6)
}

func TestFitBounds(t *testing.T) {
	v := New(800, 600)
	r := NewRect(0, 0, 1000, 200)

	require.True(t, v.FitBounds(r, DefaultFitPadding))

	assert.InDelta(t, 0.64, v.Scale(), eps)
	vis := v.VisibleRect()
	assert.True(t, vis.Contains(r.MinX, r.MinY))
	assert.True(t, vis.Contains(r.MaxX, r.MaxY))
	cx, cy := r.Center()
	sx, sy := v.GraphToScreen(cx, cy)
	assert.InDelta(t, 400, sx, 1e-6)
	assert.InDelta(t, 300, sy, 1e-6)
}

func TestFitBounds_DegenerateRectDoesNotDivideByZero(t *testing.T) {
	v := New(800, 600)
	require.True(t, v.FitBounds(Rect{MinX: 5, MinY: 5, MaxX: 5, MaxY: 5}, 0))
	assert.Equal(t, DefaultMaxScale, v.Scale())
	assert.False(t, math.IsNaN(v.Scale()))

	empty := New(0, 0)
	assert.False(t, empty.FitBounds(NewRect(0, 0, 10, 10), 0))
}

func TestStateRestore(t *testing.T) {
	v := New(800, 600)
	v.Pan(10, 20)
	v.Zoom(3, 1, 1)
	s := v.State()

	w := New(1, 1)
	require.NoError(t, w.Restore(s))
	assert.Equal(t, s, w.State())

	assert.Error(t, w.Restore(State{Scale: 0}))
	assert.Error(t, w.Restore(State{Scale: math.NaN()}))

	require.NoError(t, w.Restore(State{Scale: 99}))
	assert.Equal(t, DefaultMaxScale, w.Scale())
}

func TestMinimap_EmptyGraphUsesDefaultExtent(t *testing.T) {
	m := NewMinimap(200, 200)
	m.Fit(nil)

	assert.Equal(t, DefaultExtent, m.Bounds())
	assert.InDelta(t, 0.02, m.Scale(), eps)
	mx, my := m.GraphToMinimap(0, 0)
	assert.InDelta(t, 100, mx, eps)
	assert.InDelta(t, 100, my, eps)
}

func TestMinimap_FitsNodeBoxes(t *testing.T) {
	m := NewMinimap(300, 150)
	m.Fit([]valueobjects.Position{{X: 0, Y: 0}, {X: 1000, Y: 500}})

	b := m.Bounds()
	assert.InDelta(t, -DefaultMinimapMargin, b.MinX, eps)
	assert.InDelta(t, 1000+NodeWidth+DefaultMinimapMargin, b.MaxX, eps)
	assert.InDelta(t, 500+NodeHeight+DefaultMinimapMargin, b.MaxY, eps)

	// uniform scale, content centred
	x0, y0 := m.GraphToMinimap(b.MinX, b.MinY)
	x1, y1 := m.GraphToMinimap(b.MaxX, b.MaxY)
	assert.InDelta(t, 300-x1, x0, 1e-6)
	assert.InDelta(t, 150-y1, y0, 1e-6)
	assert.True(t, x0 >= -eps && y0 >= -eps && x1 <= 300+eps && y1 <= 150+eps)
}

func TestMinimap_ThinBoundsAreWidened(t *testing.T) {
	m := NewMinimap(100, 100)
	m.SetBounds(Rect{MinX: 10, MinY: 0, MaxX: 10, MaxY: 500})

	assert.InDelta(t, MinimapMinExtent, m.Bounds().Width(), eps)
	assert.False(t, math.IsInf(m.Scale(), 0))
}

func TestMinimap_RoundTripAndDrag(t *testing.T) {
	m := NewMinimap(200, 120)
	m.Fit([]valueobjects.Position{{X: -300, Y: 40}, {X: 900, Y: 700}})
	main := New(1024, 768)

	gx, gy := m.MinimapToGraph(57, 33)
	mx, my := m.GraphToMinimap(gx, gy)
	assert.InDelta(t, 57, mx, 1e-6)
	assert.InDelta(t, 33, my, 1e-6)

	tx, ty := m.DragTo(57, 33, main)
	assert.InDelta(t, gx, tx, eps)
	sx, sy := main.GraphToScreen(tx, ty)
	assert.InDelta(t, 512, sx, 1e-6)
	assert.InDelta(t, 384, sy, 1e-6)
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(New(800, 600), NewMinimap(200, 150))

	snap, ok := c.Zoom(-2, 0, 0)
	assert.False(t, ok)
	assert.Equal(t, 1.0, snap.Viewport.Scale)

	snap = c.FitNodes(nil, DefaultFitPadding)
	assert.InDelta(t, DefaultMinScale, snap.Viewport.Scale, eps)

	snap = c.RefreshMinimap([]valueobjects.Position{{X: 0, Y: 0}})
	assert.Equal(t, NewRect(0, 0, NodeWidth, NodeHeight).Inset(DefaultMinimapMargin), snap.MinimapBounds)

	snap = c.DragMinimap(100, 75)
	cx, cy := snap.MinimapBounds.Center()
	gx, gy := c.ScreenToGraph(400, 300)
	assert.InDelta(t, cx, gx, 1e-6)
	assert.InDelta(t, cy, gy, 1e-6)
}
