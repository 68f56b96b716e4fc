package structure

import (
	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

// Component is a 8-connected foreground region of a binary map.
type Component struct {
	Bounds utils.Rect
	Area   int // foreground pixel count
}

// FillRatio is the foreground density inside the bounding box.
func (c Component) FillRatio() float64 {
	if c.Bounds.Area() == 0 {
		return 0
	}
	return float64(c.Area) / float64(c.Bounds.Area())
}

// ConnectedComponents labels 8-connected regions with an iterative flood
// fill and returns one Component per region.
func ConnectedComponents(b *preprocess.BinaryMap) []Component {
	w, h := b.Width, b.Height
	visited := make([]bool, w*h)
	var comps []Component
	stack := make([][2]int, 0, 1024)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if !b.Bits[idx] || visited[idx] {
				continue
			}
			visited[idx] = true
			stack = append(stack[:0], [2]int{x, y})
			comp := Component{Bounds: utils.Rect{X0: x, Y0: y, X1: x + 1, Y1: y + 1}}

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				comp.Area++
				if p[0] < comp.Bounds.X0 {
					comp.Bounds.X0 = p[0]
				}
				if p[0]+1 > comp.Bounds.X1 {
					comp.Bounds.X1 = p[0] + 1
				}
				if p[1] < comp.Bounds.Y0 {
					comp.Bounds.Y0 = p[1]
				}
				if p[1]+1 > comp.Bounds.Y1 {
					comp.Bounds.Y1 = p[1] + 1
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := p[0]+dx, p[1]+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						ni := ny*w + nx
						if b.Bits[ni] && !visited[ni] {
							visited[ni] = true
							stack = append(stack, [2]int{nx, ny})
						}
					}
				}
			}
			comps = append(comps, comp)
		}
	}
	return comps
}
