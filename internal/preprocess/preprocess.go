// Package preprocess normalizes scanned invoice images ahead of OCR:
// size normalization, deskew, denoising, adaptive contrast, binarization
// and morphological cleanup, with a generic mode and an invoice mode tuned
// for tabular documents.
package preprocess

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/rigadev/pavadoc/internal/utils"
)

// Mode selects the processing profile.
type Mode string

const (
	ModeGeneric Mode = "generic"
	ModeInvoice Mode = "invoice"
)

// Config holds preprocessing parameters.
type Config struct {
	MinWidth  int // upscale below this width
	MinHeight int // upscale below this height
	MaxSide   int // downscale above this edge length

	DeskewEnabled    bool
	DeskewMinDegrees float64 // rotations below this are skipped
	DeskewMaxLines   int     // strongest Hough lines considered
	DeskewVotes      int     // accumulator votes per line

	ClipLimitGeneric float64 // CLAHE clip for generic mode
	ClipLimitInvoice float64 // CLAHE clip for invoice mode
	Tiles            int     // CLAHE grid dimension
	Gamma            float64

	DebugDir string // when set, every stage is dumped as PNG
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MinWidth:         600,
		MinHeight:        800,
		MaxSide:          4000,
		DeskewEnabled:    true,
		DeskewMinDegrees: 0.5,
		DeskewMaxLines:   20,
		DeskewVotes:      100,
		ClipLimitGeneric: 3.0,
		ClipLimitInvoice: 4.0,
		Tiles:            8,
		Gamma:            1.2,
	}
}

// Result describes what preprocessing did to the image.
type Result struct {
	Image     image.Image
	Steps     []string
	SkewAngle float64
	Mode      Mode
	Degraded  bool // a stage failed and its input was carried forward
}

// Preprocessor runs the normalization pipeline.
type Preprocessor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Preprocessor with the given configuration.
func New(cfg Config, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{cfg: cfg, logger: logger.With("component", "preprocess")}
}

// Run executes the pipeline for the given mode. Stage failures never abort
// the pipeline; the failing stage's input is carried forward and the result
// is flagged as degraded. Run never returns a nil image for a non-nil input.
func (p *Preprocessor) Run(img image.Image, mode Mode) (*Result, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "preprocess", Err: fmt.Errorf("nil input image")}
	}
	res := &Result{Mode: mode}

	current := p.normalizeSize(img, res)
	p.dump(current, "01_resized")

	gray := utils.GrayMapFromImage(current)

	if p.cfg.DeskewEnabled {
		gray = p.deskew(gray, res)
		p.dump(gray.ToImage(), "02_deskewed")
	}

	gray = SmoothDenoise(gray)
	res.Steps = append(res.Steps, "denoise")
	p.dump(gray.ToImage(), "03_denoised")

	clip := p.cfg.ClipLimitGeneric
	if mode == ModeInvoice {
		clip = p.cfg.ClipLimitInvoice
	}
	gray = CLAHE(gray, clip, p.cfg.Tiles)
	gray = GammaCorrect(gray, p.cfg.Gamma)
	res.Steps = append(res.Steps, "contrast")
	p.dump(gray.ToImage(), "04_contrast")

	bin := p.binarize(gray, mode)
	res.Steps = append(res.Steps, "binarize")

	bin = p.morphCleanup(bin, mode)
	res.Steps = append(res.Steps, "morphology")

	// Foreground is ink; render ink black on white for the OCR engine.
	final := image.NewGray(image.Rect(0, 0, bin.Width, bin.Height))
	for i, v := range bin.Bits {
		if v {
			final.Pix[i] = 0
		} else {
			final.Pix[i] = 255
		}
	}
	p.dump(final, "05_final")

	res.Image = final
	p.logger.Debug("preprocessing complete",
		"mode", string(mode),
		"steps", len(res.Steps),
		"skew_degrees", res.SkewAngle,
		"degraded", res.Degraded)
	return res, nil
}

// normalizeSize upscales tiny scans (cubic) and caps oversized ones.
func (p *Preprocessor) normalizeSize(img image.Image, res *Result) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if w < p.cfg.MinWidth || h < p.cfg.MinHeight {
		sx := float64(p.cfg.MinWidth) / float64(w)
		sy := float64(p.cfg.MinHeight) / float64(h)
		s := math.Max(sx, sy)
		img = imaging.Resize(img, int(float64(w)*s+0.5), 0, imaging.CatmullRom)
		res.Steps = append(res.Steps, "upscale")
		return img
	}
	if w > p.cfg.MaxSide || h > p.cfg.MaxSide {
		if w >= h {
			img = imaging.Resize(img, p.cfg.MaxSide, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, p.cfg.MaxSide, imaging.Lanczos)
		}
		res.Steps = append(res.Steps, "downscale")
	}
	return img
}

// deskew estimates the dominant text-line angle and rotates when it exceeds
// the minimum. On estimation failure the input raster is returned unchanged.
func (p *Preprocessor) deskew(gray *utils.GrayMap, res *Result) *utils.GrayMap {
	edges := CannyEdges(GaussianBlur(gray, 5), 0, 0)
	angle, ok := DominantSkewAngle(edges, p.cfg.DeskewVotes, p.cfg.DeskewMaxLines)
	if !ok {
		p.logger.Debug("deskew skipped, no dominant lines")
		return gray
	}
	res.SkewAngle = angle
	if math.Abs(angle) < p.cfg.DeskewMinDegrees {
		return gray
	}

	rotated := imaging.Rotate(gray.ToImage(), angle, image.White.C)
	res.Steps = append(res.Steps, "deskew")
	p.logger.Debug("deskewed", "degrees", angle)
	return utils.GrayMapFromImage(rotated)
}

// binarize produces the ink map. Invoice mode intersects a global Otsu pass
// with a wide-block adaptive pass, which keeps thin ruling lines that either
// pass alone would drop or smear.
func (p *Preprocessor) binarize(gray *utils.GrayMap, mode Mode) *BinaryMap {
	if mode == ModeInvoice {
		otsu := OtsuBinarize(gray)
		adaptive := AdaptiveBinarize(gray, 15, 2)
		return otsu.And(adaptive)
	}
	return AdaptiveBinarize(GaussianBlur(gray, 3), 11, 2)
}

// morphCleanup removes speckle and, in invoice mode, reconnects horizontal
// ruling lines broken by binarization.
func (p *Preprocessor) morphCleanup(bin *BinaryMap, mode Mode) *BinaryMap {
	bin = Open(bin, 2, 2)
	bin = Close(bin, 1, 1)
	if mode == ModeInvoice {
		bin = Close(bin, 25, 1)
		bin = Open(bin, 2, 2)
	}
	return bin
}

func (p *Preprocessor) dump(img image.Image, name string) {
	if p.cfg.DebugDir == "" {
		return
	}
	path := filepath.Join(p.cfg.DebugDir, name+".png")
	if err := utils.SaveImagePNG(img, path); err != nil {
		// dump failure does not degrade the result
		p.logger.Warn("debug dump failed", "path", path, "error", err)
	}
}
