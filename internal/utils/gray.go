package utils

import (
	"image"
)

// GrayMap is a float32 grayscale raster in [0, 255] used by the geometric
// analysis stages. Keeping intensities as float32 avoids repeated uint8
// quantization between filter passes.
type GrayMap struct {
	Pix    []float32
	Width  int
	Height int
}

// NewGrayMap allocates a zeroed raster of the given dimensions.
func NewGrayMap(width, height int) *GrayMap {
	return &GrayMap{
		Pix:    make([]float32, width*height),
		Width:  width,
		Height: height,
	}
}

// GrayMapFromImage converts any image to a float32 luminance raster.
func GrayMapFromImage(img image.Image) *GrayMap {
	b := img.Bounds()
	g := NewGrayMap(b.Dx(), b.Dy())
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gr, bl, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma on 16-bit channels
			lum := (0.299*float32(r) + 0.587*float32(gr) + 0.114*float32(bl)) / 257.0
			g.Pix[idx] = lum
			idx++
		}
	}
	return g
}

// At returns the intensity at (x, y). Out-of-bounds reads return 0.
func (g *GrayMap) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return 0
	}
	return g.Pix[y*g.Width+x]
}

// Set writes the intensity at (x, y). Out-of-bounds writes are ignored.
func (g *GrayMap) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Pix[y*g.Width+x] = v
}

// Clone returns a deep copy of the raster.
func (g *GrayMap) Clone() *GrayMap {
	out := NewGrayMap(g.Width, g.Height)
	copy(out.Pix, g.Pix)
	return out
}

// ToImage quantizes the raster back to an 8-bit grayscale image.
func (g *GrayMap) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Pix {
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		img.Pix[i] = uint8(v)
	}
	return img
}

// SubMap extracts a copy of the raster restricted to r (clamped to bounds).
func (g *GrayMap) SubMap(r Rect) *GrayMap {
	r = r.Clamp(g.Width, g.Height)
	out := NewGrayMap(r.Width(), r.Height())
	for y := 0; y < out.Height; y++ {
		srcOff := (r.Y0+y)*g.Width + r.X0
		copy(out.Pix[y*out.Width:(y+1)*out.Width], g.Pix[srcOff:srcOff+out.Width])
	}
	return out
}

// Histogram computes the 256-bin intensity histogram.
func (g *GrayMap) Histogram() [256]int {
	var hist [256]int
	for _, v := range g.Pix {
		bin := int(v)
		if bin < 0 {
			bin = 0
		} else if bin > 255 {
			bin = 255
		}
		hist[bin]++
	}
	return hist
}

// OtsuThreshold computes the global Otsu threshold over the raster.
func (g *GrayMap) OtsuThreshold() float32 {
	hist := g.Histogram()
	total := len(g.Pix)
	if total == 0 {
		return 128
	}

	var totalMean float64
	for i, c := range hist {
		totalMean += float64(i) * float64(c)
	}
	totalMean /= float64(total)

	var maxVariance, sumB float64
	wB := 0
	bestLo, bestHi := 0, 0
	for t := range hist {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		meanB := sumB / float64(wB)
		meanF := (totalMean*float64(total) - sumB) / float64(wF)
		variance := float64(wB) * float64(wF) * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			bestLo, bestHi = t, t
		} else if variance == maxVariance {
			bestHi = t
		}
	}
	// The variance plateaus across the gap between well-separated modes;
	// take the plateau midpoint so intensities at or below the threshold
	// (the dark mode included) classify as one side.
	return float32(bestLo+bestHi) / 2
}

// Mean returns the mean intensity.
func (g *GrayMap) Mean() float32 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range g.Pix {
		sum += float64(v)
	}
	return float32(sum / float64(len(g.Pix)))
}

// GrayImageFromBinary builds an image from a binary map where true pixels
// become white on black.
func GrayImageFromBinary(bin []bool, width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i, v := range bin {
		if v {
			img.Pix[i] = 255
		}
	}
	return img
}
