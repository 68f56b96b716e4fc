package preprocess

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigadev/pavadoc/internal/utils"
)

func whitePage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestRunNilImage(t *testing.T) {
	p := New(DefaultConfig(), nil)
	_, err := p.Run(nil, ModeGeneric)
	require.Error(t, err)
	var ipe *utils.ImageProcessingError
	assert.ErrorAs(t, err, &ipe)
}

func TestRunUpscalesSmallInput(t *testing.T) {
	p := New(DefaultConfig(), nil)
	res, err := p.Run(whitePage(300, 400), ModeGeneric)
	require.NoError(t, err)
	require.NotNil(t, res.Image)
	b := res.Image.Bounds()
	assert.GreaterOrEqual(t, b.Dx(), 600)
	assert.GreaterOrEqual(t, b.Dy(), 800)
	assert.Contains(t, res.Steps, "upscale")
}

func TestRunCapsOversizedInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSide = 1000
	cfg.DeskewEnabled = false
	p := New(cfg, nil)
	res, err := p.Run(whitePage(2000, 1500), ModeInvoice)
	require.NoError(t, err)
	b := res.Image.Bounds()
	assert.LessOrEqual(t, b.Dx(), 1000)
	assert.Contains(t, res.Steps, "downscale")
}

func TestAdaptiveBinarizePicksDarkText(t *testing.T) {
	g := utils.NewGrayMap(60, 60)
	for i := range g.Pix {
		g.Pix[i] = 230
	}
	// a dark stroke
	for x := 10; x < 50; x++ {
		g.Set(x, 30, 20)
	}
	bin := AdaptiveBinarize(g, 11, 2)
	assert.True(t, bin.At(30, 30))
	assert.False(t, bin.At(30, 10))
}

func TestOtsuBinarize(t *testing.T) {
	g := utils.NewGrayMap(20, 20)
	for i := range g.Pix {
		if i%2 == 0 {
			g.Pix[i] = 240
		} else {
			g.Pix[i] = 15
		}
	}
	bin := OtsuBinarize(g)
	assert.Equal(t, len(g.Pix)/2, bin.Count())
}

func TestOtsuBinarizeKeepsDarkClass(t *testing.T) {
	// Text on paper: every dark pixel ends up in the foreground mask.
	g := utils.NewGrayMap(10, 10)
	for i := range g.Pix {
		if i < 50 {
			g.Pix[i] = 30
		} else {
			g.Pix[i] = 220
		}
	}
	bin := OtsuBinarize(g)
	assert.Equal(t, 50, bin.Count())
	assert.True(t, bin.At(0, 0))
	assert.False(t, bin.At(9, 9))
}

func TestMorphologyOpenRemovesSpeckle(t *testing.T) {
	b := NewBinaryMap(20, 20)
	b.Set(5, 5, true) // isolated pixel
	for y := 10; y < 14; y++ {
		for x := 10; x < 14; x++ {
			b.Set(x, y, true)
		}
	}
	opened := Open(b, 2, 2)
	assert.False(t, opened.At(5, 5))
	assert.True(t, opened.At(11, 11))
}

func TestMorphologyCloseBridgesGap(t *testing.T) {
	b := NewBinaryMap(40, 5)
	for x := 0; x < 18; x++ {
		b.Set(x, 2, true)
	}
	for x := 22; x < 40; x++ {
		b.Set(x, 2, true)
	}
	closed := Close(b, 9, 1)
	assert.True(t, closed.At(20, 2))
}

func TestHoughSegmentsFindsHorizontalLine(t *testing.T) {
	edges := NewBinaryMap(200, 100)
	for x := 20; x < 180; x++ {
		edges.Set(x, 50, true)
	}
	horiz, vert := HoughSegments(edges, HoughSegmentsParams{
		VotesThreshold: 50,
		MinLength:      100,
		MaxGap:         5,
		AngleTolerance: 10,
	})
	require.Len(t, horiz, 1)
	assert.Empty(t, vert)
	assert.Equal(t, 50, horiz[0].Y0)
	assert.GreaterOrEqual(t, horiz[0].Length(), 100.0)
}

func TestMergeNearbySegments(t *testing.T) {
	segs := []LineSegment{
		{X0: 0, Y0: 10, X1: 100, Y1: 10},
		{X0: 0, Y0: 14, X1: 150, Y1: 14},
		{X0: 0, Y0: 60, X1: 100, Y1: 60},
	}
	merged := MergeNearbySegments(segs, true, 15)
	require.Len(t, merged, 2)
	assert.Equal(t, 14, merged[0].Y0) // longest of the close pair wins
}

func TestCLAHEStretchesFlatRegion(t *testing.T) {
	g := utils.NewGrayMap(64, 64)
	for i := range g.Pix {
		g.Pix[i] = float32(120 + i%8) // compressed dynamic range
	}
	out := CLAHE(g, 3.0, 8)
	var lo, hi float32 = 255, 0
	for _, v := range out.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	assert.Greater(t, hi-lo, float32(30))
}
