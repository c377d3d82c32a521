package viewport

import "math"

// Rect is an axis-aligned rectangle in graph space
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// NewRect builds a rect from an origin and size
func NewRect(x, y, w, h float64) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// Width of the rect
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height of the rect
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center of the rect
func (r Rect) Center() (float64, float64) {
	return (r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2
}

// IsDegenerate reports a rect with no area or non-finite corners
func (r Rect) IsDegenerate() bool {
	for _, v := range []float64{r.MinX, r.MinY, r.MaxX, r.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return r.Width() <= 0 || r.Height() <= 0
}

// Union returns the smallest rect covering both
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Inset grows (positive) or shrinks (negative) the rect on every side
func (r Rect) Inset(margin float64) Rect {
	return Rect{MinX: r.MinX - margin, MinY: r.MinY - margin, MaxX: r.MaxX + margin, MaxY: r.MaxY + margin}
}

// WithMinExtent widens a thin rect around its centre so that neither side is
// shorter than min
func (r Rect) WithMinExtent(min float64) Rect {
	cx, cy := r.Center()
	if r.Width() < min {
		r.MinX, r.MaxX = cx-min/2, cx+min/2
	}
	if r.Height() < min {
		r.MinY, r.MaxY = cy-min/2, cy+min/2
	}
	return r
}

// Contains reports whether the point lies inside the rect
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}
