package preprocess

import (
	"math"
	"sort"

	"github.com/rigadev/pavadoc/internal/utils"
)

// GaussianBlur applies a separable Gaussian with the given odd kernel size.
func GaussianBlur(g *utils.GrayMap, ksize int) *utils.GrayMap {
	if ksize < 3 {
		return g.Clone()
	}
	if ksize%2 == 0 {
		ksize++
	}
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	half := ksize / 2
	kernel := make([]float64, ksize)
	var sum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := utils.NewGrayMap(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			var acc float64
			for i := range kernel {
				sx := x + i - half
				if sx < 0 {
					sx = 0
				} else if sx >= g.Width {
					sx = g.Width - 1
				}
				acc += kernel[i] * float64(g.Pix[y*g.Width+sx])
			}
			tmp.Pix[y*g.Width+x] = float32(acc)
		}
	}
	out := utils.NewGrayMap(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			var acc float64
			for i := range kernel {
				sy := y + i - half
				if sy < 0 {
					sy = 0
				} else if sy >= g.Height {
					sy = g.Height - 1
				}
				acc += kernel[i] * float64(tmp.Pix[sy*g.Width+x])
			}
			out.Pix[y*g.Width+x] = float32(acc)
		}
	}
	return out
}

// MedianIntensity returns the median pixel value, used for automatic Canny
// threshold selection.
func MedianIntensity(g *utils.GrayMap) float32 {
	if len(g.Pix) == 0 {
		return 0
	}
	vals := make([]float32, len(g.Pix))
	copy(vals, g.Pix)
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	return vals[len(vals)/2]
}

// CannyEdges computes an edge map with Sobel gradients, non-maximum
// suppression and hysteresis. Thresholds derive from the median intensity
// (low = 0.7×median, high = 1.3×median) when lo/hi are zero.
func CannyEdges(g *utils.GrayMap, lo, hi float32) *BinaryMap {
	w, h := g.Width, g.Height
	if lo <= 0 || hi <= 0 {
		med := MedianIntensity(g)
		lo = 0.7 * med
		hi = 1.3 * med
		if hi > 255 {
			hi = 255
		}
	}

	mag := make([]float32, w*h)
	dir := make([]uint8, w*h) // quantized direction: 0=E/W 1=NE/SW 2=N/S 3=NW/SE
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -g.At(x-1, y-1) - 2*g.At(x-1, y) - g.At(x-1, y+1) +
				g.At(x+1, y-1) + 2*g.At(x+1, y) + g.At(x+1, y+1)
			gy := -g.At(x-1, y-1) - 2*g.At(x, y-1) - g.At(x+1, y-1) +
				g.At(x-1, y+1) + 2*g.At(x, y+1) + g.At(x+1, y+1)
			m := float32(math.Hypot(float64(gx), float64(gy)))
			mag[y*w+x] = m
			angle := math.Atan2(float64(gy), float64(gx)) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}
			switch {
			case angle < 22.5 || angle >= 157.5:
				dir[y*w+x] = 0
			case angle < 67.5:
				dir[y*w+x] = 1
			case angle < 112.5:
				dir[y*w+x] = 2
			default:
				dir[y*w+x] = 3
			}
		}
	}

	// Non-maximum suppression then double threshold.
	const strong, weak = 2, 1
	grade := make([]uint8, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := mag[y*w+x]
			if m < lo {
				continue
			}
			var n1, n2 float32
			switch dir[y*w+x] {
			case 0:
				n1, n2 = mag[y*w+x-1], mag[y*w+x+1]
			case 1:
				n1, n2 = mag[(y-1)*w+x+1], mag[(y+1)*w+x-1]
			case 2:
				n1, n2 = mag[(y-1)*w+x], mag[(y+1)*w+x]
			default:
				n1, n2 = mag[(y-1)*w+x-1], mag[(y+1)*w+x+1]
			}
			if m < n1 || m < n2 {
				continue
			}
			if m >= hi {
				grade[y*w+x] = strong
			} else {
				grade[y*w+x] = weak
			}
		}
	}

	// Hysteresis: weak edges survive only when connected to a strong one.
	out := NewBinaryMap(w, h)
	stack := make([][2]int, 0, 256)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if grade[y*w+x] != strong || out.Bits[y*w+x] {
				continue
			}
			stack = append(stack[:0], [2]int{x, y})
			out.Bits[y*w+x] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p[0]+dx, p[1]+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						i := ny*w + nx
						if grade[i] != 0 && !out.Bits[i] {
							out.Bits[i] = true
							stack = append(stack, [2]int{nx, ny})
						}
					}
				}
			}
		}
	}
	return out
}
