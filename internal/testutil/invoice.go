// Package testutil generates synthetic invoice pages and provides small
// filesystem helpers shared by package tests.
package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PageSize represents page dimensions in pixels.
type PageSize struct {
	Width  int
	Height int
}

var (
	// SmallPage matches the scale most structure tests run at.
	SmallPage = PageSize{600, 800}
	// ScanPage approximates a 150 DPI A4 scan.
	ScanPage = PageSize{1240, 1754}
)

// InvoiceConfig configures a synthetic invoice page.
type InvoiceConfig struct {
	Lines      []string
	Size       PageSize
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	Rotation   float64 // degrees, positive is counter-clockwise
	NoiseLevel float64 // fraction of pixels perturbed, 0 disables
}

// DefaultInvoiceConfig returns a plausible Latvian delivery note layout.
func DefaultInvoiceConfig() InvoiceConfig {
	return InvoiceConfig{
		Lines: []string{
			"PAVADZIME Nr. LV-2024/001",
			"Piegadatajs: SIA Ozoli",
			"Reg. Nr. 40001234567",
			"",
			"Prece        Daudzums    Summa",
			"Paklaji      2 gab.      25,00",
			"",
			"Kopa apmaksai: 30,25 EUR",
			"PVN 21%: 5,25 EUR",
		},
		Size:       SmallPage,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateInvoicePage renders the configured lines top-down on a blank
// page. Empty lines leave vertical gaps, which is what gives the zone
// analyzer distinct bands to find.
func GenerateInvoicePage(cfg InvoiceConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	face := cfg.FontFace
	if face == nil {
		face = basicfont.Face7x13
	}
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{cfg.Foreground},
		Face: face,
	}

	marginX := cfg.Size.Width / 12
	lineHeight := face.Metrics().Height.Ceil() * 2
	y := cfg.Size.Height / 10
	for _, line := range cfg.Lines {
		y += lineHeight
		if line == "" {
			y += lineHeight
			continue
		}
		drawer.Dot = fixed.P(marginX, y)
		drawer.DrawString(line)
	}

	out := img
	if cfg.Rotation != 0 {
		rotated := imaging.Rotate(img, cfg.Rotation, color.White)
		out = image.NewRGBA(rotated.Bounds())
		draw.Draw(out, out.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
	}
	if cfg.NoiseLevel > 0 {
		out = AddScanNoise(out, cfg.NoiseLevel)
	}
	return out
}

// AddScanNoise flips a fraction of pixels toward gray to imitate a
// cheap flatbed scan.
func AddScanNoise(img *image.RGBA, level float64) *image.RGBA {
	bounds := img.Bounds()
	noisy := image.NewRGBA(bounds)
	draw.Draw(noisy, bounds, img, bounds.Min, draw.Src)

	rng := rand.New(rand.NewSource(42))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if rng.Float64() >= level {
				continue
			}
			g := uint8(rng.Intn(256))
			noisy.SetRGBA(x, y, color.RGBA{g, g, g, 255})
		}
	}
	return noisy
}

// SaveImage writes a PNG, creating parent directories as needed.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	file, err := os.Create(path) //nolint:gosec // test-controlled path
	require.NoError(t, err)
	defer func() { require.NoError(t, file.Close()) }()

	require.NoError(t, png.Encode(file, img))
}

// LoadImage decodes an image file.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // test-controlled path
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err)
	return img
}

// CompareImages reports whether two equally sized images differ by at
// most tolerance on average, tolerance in [0,1].
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	b1, b2 := img1.Bounds(), img2.Bounds()
	if b1.Dx() != b2.Dx() || b1.Dy() != b2.Dy() {
		return false
	}

	var totalDiff, pixels float64
	for y := 0; y < b1.Dy(); y++ {
		for x := 0; x < b1.Dx(); x++ {
			r1, g1, bl1, _ := img1.At(b1.Min.X+x, b1.Min.Y+y).RGBA()
			r2, g2, bl2, _ := img2.At(b2.Min.X+x, b2.Min.Y+y).RGBA()
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(bl1) - float64(bl2)
			totalDiff += math.Sqrt(dr*dr + dg*dg + db*db)
			pixels++
		}
	}

	maxDiff := math.Sqrt(3) * 65535
	return totalDiff/pixels/maxDiff <= tolerance
}

// FileExists checks whether a path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
