package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrayMapFromImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 30)
	}
	g := GrayMapFromImage(img)
	require.Equal(t, 4, g.Width)
	require.Equal(t, 2, g.Height)
	assert.InDelta(t, 0.0, float64(g.At(0, 0)), 1.0)
	assert.InDelta(t, 210.0, float64(g.At(3, 1)), 1.0)
}

func TestGrayMapOutOfBounds(t *testing.T) {
	g := NewGrayMap(2, 2)
	g.Set(5, 5, 100) // ignored
	assert.Equal(t, float32(0), g.At(5, 5))
	assert.Equal(t, float32(0), g.At(-1, 0))
}

func TestGrayMapSubMap(t *testing.T) {
	g := NewGrayMap(10, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			g.Set(x, y, float32(y*10+x))
		}
	}
	sub := g.SubMap(NewRect(2, 3, 5, 6))
	require.Equal(t, 3, sub.Width)
	require.Equal(t, 3, sub.Height)
	assert.Equal(t, float32(32), sub.At(0, 0))
	assert.Equal(t, float32(54), sub.At(2, 2))
}

func TestOtsuThresholdSeparatesBimodal(t *testing.T) {
	g := NewGrayMap(10, 10)
	for i := range g.Pix {
		if i < 50 {
			g.Pix[i] = 30
		} else {
			g.Pix[i] = 220
		}
	}
	th := g.OtsuThreshold()
	assert.Greater(t, th, float32(30))
	assert.Less(t, th, float32(220))
}

func TestToImageClampsRange(t *testing.T) {
	g := NewGrayMap(2, 1)
	g.Pix[0] = -10
	g.Pix[1] = 300
	img := g.ToImage()
	assert.Equal(t, color.Gray{Y: 0}, img.At(0, 0))
	assert.Equal(t, color.Gray{Y: 255}, img.At(1, 0))
}
