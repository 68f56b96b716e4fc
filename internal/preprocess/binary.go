package preprocess

import (
	"github.com/rigadev/pavadoc/internal/utils"
)

// BinaryMap is a boolean raster where true marks foreground (ink) pixels.
type BinaryMap struct {
	Bits   []bool
	Width  int
	Height int
}

// NewBinaryMap allocates an all-background map.
func NewBinaryMap(width, height int) *BinaryMap {
	return &BinaryMap{
		Bits:   make([]bool, width*height),
		Width:  width,
		Height: height,
	}
}

// At reports whether (x, y) is foreground. Out-of-bounds reads are background.
func (b *BinaryMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.Bits[y*b.Width+x]
}

// Set marks (x, y). Out-of-bounds writes are ignored.
func (b *BinaryMap) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Bits[y*b.Width+x] = v
}

// Clone returns a deep copy.
func (b *BinaryMap) Clone() *BinaryMap {
	out := NewBinaryMap(b.Width, b.Height)
	copy(out.Bits, b.Bits)
	return out
}

// Count returns the number of foreground pixels.
func (b *BinaryMap) Count() int {
	n := 0
	for _, v := range b.Bits {
		if v {
			n++
		}
	}
	return n
}

// And intersects two maps of identical dimensions in place.
func (b *BinaryMap) And(o *BinaryMap) *BinaryMap {
	out := NewBinaryMap(b.Width, b.Height)
	if o.Width != b.Width || o.Height != b.Height {
		return out
	}
	for i := range b.Bits {
		out.Bits[i] = b.Bits[i] && o.Bits[i]
	}
	return out
}

// OtsuBinarize thresholds the raster globally; pixels at or below the Otsu
// threshold become foreground.
func OtsuBinarize(g *utils.GrayMap) *BinaryMap {
	th := g.OtsuThreshold()
	out := NewBinaryMap(g.Width, g.Height)
	for i, v := range g.Pix {
		out.Bits[i] = v <= th
	}
	return out
}

// AdaptiveBinarize applies mean-based local thresholding: a pixel is
// foreground when it is darker than its blockSize neighborhood mean minus c.
// Implemented with an integral image so the block size does not affect cost.
func AdaptiveBinarize(g *utils.GrayMap, blockSize int, c float32) *BinaryMap {
	if blockSize < 3 {
		blockSize = 3
	}
	if blockSize%2 == 0 {
		blockSize++
	}
	w, h := g.Width, g.Height
	out := NewBinaryMap(w, h)
	if w == 0 || h == 0 {
		return out
	}

	// Integral image with a one-pixel zero border.
	integ := make([]float64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			rowSum += float64(g.Pix[y*w+x])
			integ[(y+1)*(w+1)+(x+1)] = integ[y*(w+1)+(x+1)] + rowSum
		}
	}

	half := blockSize / 2
	for y := 0; y < h; y++ {
		y0 := y - half
		y1 := y + half + 1
		if y0 < 0 {
			y0 = 0
		}
		if y1 > h {
			y1 = h
		}
		for x := 0; x < w; x++ {
			x0 := x - half
			x1 := x + half + 1
			if x0 < 0 {
				x0 = 0
			}
			if x1 > w {
				x1 = w
			}
			area := float64((x1 - x0) * (y1 - y0))
			sum := integ[y1*(w+1)+x1] - integ[y0*(w+1)+x1] - integ[y1*(w+1)+x0] + integ[y0*(w+1)+x0]
			mean := float32(sum / area)
			out.Bits[y*w+x] = g.Pix[y*w+x] < mean-c
		}
	}
	return out
}

// InvertedAdaptiveBinarize marks pixels brighter than the local mean plus c.
// Used by the structure analyzer where ruling lines are darker than paper and
// the binarization is run on an inverted raster.
func InvertedAdaptiveBinarize(g *utils.GrayMap, blockSize int, c float32) *BinaryMap {
	inv := utils.NewGrayMap(g.Width, g.Height)
	for i, v := range g.Pix {
		inv.Pix[i] = 255 - v
	}
	return AdaptiveBinarize(inv, blockSize, c)
}
