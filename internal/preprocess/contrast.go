package preprocess

import (
	"math"

	"github.com/rigadev/pavadoc/internal/utils"
)

// CLAHE performs contrast-limited adaptive histogram equalization over a
// tiles×tiles grid. clipLimit is the histogram clip factor relative to the
// uniform bin height; excess mass is redistributed before building each
// tile's CDF, and per-pixel mappings are bilinearly interpolated between
// neighboring tile centers.
func CLAHE(g *utils.GrayMap, clipLimit float64, tiles int) *utils.GrayMap {
	w, h := g.Width, g.Height
	if w == 0 || h == 0 || tiles < 1 {
		return g.Clone()
	}
	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles

	// Per-tile lookup tables.
	luts := make([][256]float32, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := x0+tileW, y0+tileH
			if x1 > w {
				x1 = w
			}
			if y1 > h {
				y1 = h
			}
			var hist [256]int
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					v := int(g.Pix[y*w+x])
					if v < 0 {
						v = 0
					} else if v > 255 {
						v = 255
					}
					hist[v]++
					n++
				}
			}
			if n == 0 {
				continue
			}

			// Clip and redistribute. The limit scales with the bins the
			// tile actually populates, so a small or low-range tile keeps
			// enough headroom to equalize at all.
			occupied := 0
			for _, c := range hist {
				if c > 0 {
					occupied++
				}
			}
			limit := int(clipLimit * float64(n) / float64(occupied))
			if limit < 1 {
				limit = 1
			}
			excess := 0
			for i := range hist {
				if hist[i] > limit {
					excess += hist[i] - limit
					hist[i] = limit
				}
			}
			share := excess / 256
			rem := excess % 256
			for i := range hist {
				hist[i] += share
				if i < rem {
					hist[i]++
				}
			}

			cum := 0
			lut := &luts[ty*tiles+tx]
			for i := range hist {
				cum += hist[i]
				lut[i] = float32(255.0 * float64(cum) / float64(n))
			}
		}
	}

	out := utils.NewGrayMap(w, h)
	for y := 0; y < h; y++ {
		fy := (float64(y)-float64(tileH)/2 + 0.5) / float64(tileH)
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := ty0 + 1
		ty0 = clampTile(ty0, tiles)
		ty1 = clampTile(ty1, tiles)
		for x := 0; x < w; x++ {
			fx := (float64(x)-float64(tileW)/2 + 0.5) / float64(tileW)
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := tx0 + 1
			tx0 = clampTile(tx0, tiles)
			tx1 = clampTile(tx1, tiles)

			v := int(g.Pix[y*w+x])
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			top := float64(luts[ty0*tiles+tx0][v])*(1-wx) + float64(luts[ty0*tiles+tx1][v])*wx
			bot := float64(luts[ty1*tiles+tx0][v])*(1-wx) + float64(luts[ty1*tiles+tx1][v])*wx
			out.Pix[y*w+x] = float32(top*(1-wy) + bot*wy)
		}
	}
	return out
}

func clampTile(t, tiles int) int {
	if t < 0 {
		return 0
	}
	if t >= tiles {
		return tiles - 1
	}
	return t
}

// GammaCorrect applies intensity^(1/gamma) scaling. gamma > 1 brightens
// midtones, which recovers faint print after equalization.
func GammaCorrect(g *utils.GrayMap, gamma float64) *utils.GrayMap {
	if gamma <= 0 {
		return g.Clone()
	}
	var lut [256]float32
	for i := range lut {
		lut[i] = float32(255.0 * math.Pow(float64(i)/255.0, 1.0/gamma))
	}
	out := utils.NewGrayMap(g.Width, g.Height)
	for i, v := range g.Pix {
		bin := int(v)
		if bin < 0 {
			bin = 0
		} else if bin > 255 {
			bin = 255
		}
		out.Pix[i] = lut[bin]
	}
	return out
}
