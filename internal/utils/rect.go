package utils

// Rect is an axis-aligned pixel rectangle with exclusive max edges.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// NewRect builds a rectangle, normalizing inverted coordinates.
func NewRect(x0, y0, x1, y1 int) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func (r Rect) Width() int  { return r.X1 - r.X0 }
func (r Rect) Height() int { return r.Y1 - r.Y0 }
func (r Rect) Area() int   { return r.Width() * r.Height() }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Center returns the rectangle midpoint.
func (r Rect) Center() (float64, float64) {
	return float64(r.X0+r.X1) / 2, float64(r.Y0+r.Y1) / 2
}

// AspectRatio returns width/height, or 0 for degenerate rectangles.
func (r Rect) AspectRatio() float64 {
	if r.Height() == 0 {
		return 0
	}
	return float64(r.Width()) / float64(r.Height())
}

// Clamp restricts the rectangle to the [0,w)×[0,h) raster.
func (r Rect) Clamp(w, h int) Rect {
	if r.X0 < 0 {
		r.X0 = 0
	}
	if r.Y0 < 0 {
		r.Y0 = 0
	}
	if r.X1 > w {
		r.X1 = w
	}
	if r.Y1 > h {
		r.Y1 = h
	}
	if r.X1 < r.X0 {
		r.X1 = r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y1 = r.Y0
	}
	return r
}

// Inflate grows the rectangle by pad on every side.
func (r Rect) Inflate(pad int) Rect {
	return Rect{X0: r.X0 - pad, Y0: r.Y0 - pad, X1: r.X1 + pad, Y1: r.Y1 + pad}
}

// Intersect returns the overlapping region of two rectangles.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: maxInt(r.X0, o.X0),
		Y0: maxInt(r.Y0, o.Y0),
		X1: minInt(r.X1, o.X1),
		Y1: minInt(r.Y1, o.Y1),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Union returns the minimal rectangle covering both.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		X0: minInt(r.X0, o.X0),
		Y0: minInt(r.Y0, o.Y0),
		X1: maxInt(r.X1, o.X1),
		Y1: maxInt(r.Y1, o.Y1),
	}
}

// IoU computes intersection-over-union of two rectangles.
func (r Rect) IoU(o Rect) float64 {
	inter := r.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
