package structure

import (
	"math"

	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

// Point is an integer pixel coordinate.
type Point struct {
	X, Y int
}

// Contour is a closed external boundary of a foreground region.
type Contour struct {
	Points []Point
}

// BoundingRect returns the axis-aligned bounding box of the contour.
func (c Contour) BoundingRect() utils.Rect {
	if len(c.Points) == 0 {
		return utils.Rect{}
	}
	r := utils.Rect{X0: c.Points[0].X, Y0: c.Points[0].Y, X1: c.Points[0].X + 1, Y1: c.Points[0].Y + 1}
	for _, p := range c.Points[1:] {
		if p.X < r.X0 {
			r.X0 = p.X
		}
		if p.X+1 > r.X1 {
			r.X1 = p.X + 1
		}
		if p.Y < r.Y0 {
			r.Y0 = p.Y
		}
		if p.Y+1 > r.Y1 {
			r.Y1 = p.Y + 1
		}
	}
	return r
}

// Area computes the enclosed polygon area with the shoelace formula.
func (c Contour) Area() float64 {
	n := len(c.Points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += float64(c.Points[i].X)*float64(c.Points[j].Y) -
			float64(c.Points[j].X)*float64(c.Points[i].Y)
	}
	return math.Abs(sum) / 2
}

// mooreNeighbors in clockwise order starting from west.
var mooreNeighbors = [8][2]int{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// TraceContours finds external contours of foreground regions using
// Moore-neighbor tracing with Jacob's stopping criterion.
func TraceContours(b *preprocess.BinaryMap) []Contour {
	w, h := b.Width, b.Height
	traced := make([]bool, w*h)
	var contours []Contour

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !b.At(x, y) || traced[y*w+x] {
				continue
			}
			// Only start at boundary pixels entered from the west.
			if b.At(x-1, y) {
				continue
			}
			contour := traceFrom(b, x, y)
			for _, p := range contour.Points {
				if p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h {
					traced[p.Y*w+p.X] = true
				}
			}
			// Mark the whole region as handled so nested starts are skipped.
			markRegion(b, traced, x, y)
			if len(contour.Points) >= 4 {
				contours = append(contours, contour)
			}
		}
	}
	return contours
}

func traceFrom(b *preprocess.BinaryMap, sx, sy int) Contour {
	var c Contour
	c.Points = append(c.Points, Point{X: sx, Y: sy})

	cx, cy := sx, sy
	backtrack := 0 // came from the west
	maxSteps := 4 * (b.Width + b.Height) * 4

	for step := 0; step < maxSteps; step++ {
		found := false
		// Start scanning clockwise from the neighbor after the backtrack.
		for i := 1; i <= 8; i++ {
			dirIdx := (backtrack + i) % 8
			nx := cx + mooreNeighbors[dirIdx][0]
			ny := cy + mooreNeighbors[dirIdx][1]
			if b.At(nx, ny) {
				// New backtrack points at the previous (background) neighbor.
				backtrack = (dirIdx + 5) % 8
				cx, cy = nx, ny
				found = true
				break
			}
		}
		if !found {
			break // isolated pixel
		}
		if cx == sx && cy == sy {
			break
		}
		c.Points = append(c.Points, Point{X: cx, Y: cy})
	}
	return c
}

// markRegion flood-fills the region containing (x, y) into the traced mask.
func markRegion(b *preprocess.BinaryMap, traced []bool, x, y int) {
	w, h := b.Width, b.Height
	stack := [][2]int{{x, y}}
	traced[y*w+x] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p[0]+dx, p[1]+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if b.Bits[ni] && !traced[ni] {
					traced[ni] = true
					stack = append(stack, [2]int{nx, ny})
				}
			}
		}
	}
}
