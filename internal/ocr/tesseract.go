// Package ocr wraps the Tesseract command line engine. Images are handed
// over as temporary PNG files and results come back as TSV, which carries
// per-word confidences and boxes.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rigadev/pavadoc/internal/utils"
)

// Config holds Tesseract invocation parameters.
type Config struct {
	Binary         string // tesseract executable, default "tesseract"
	Language       string // e.g. "lav+eng+deu"
	PSM            int    // page segmentation mode
	OEM            int    // engine mode, 3 = default
	Whitelist      string // tessedit_char_whitelist, empty = unrestricted
	TimeoutSeconds int    // wall clock limit per invocation
	TempDir        string // scratch dir for image handoff, "" = os.TempDir
}

// DefaultConfig returns the invoice defaults: Latvian with English and
// German fallbacks, uniform block segmentation, 30 second budget.
func DefaultConfig() Config {
	return Config{
		Binary:         "tesseract",
		Language:       "lav+eng+deu",
		PSM:            6,
		OEM:            3,
		TimeoutSeconds: 30,
	}
}

// Word is a single recognized token with its confidence and box.
type Word struct {
	Text       string
	Confidence float64 // 0..1
	Bounds     utils.Rect
}

// Result is the outcome of one recognition pass.
type Result struct {
	Text       string
	Confidence float64 // mean word confidence, 0..1
	Words      []Word
}

// Engine runs Tesseract through a Runner.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewEngine creates an Engine. A nil runner falls back to os/exec.
func NewEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if runner == nil {
		runner = NewExecRunner()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger.With("component", "ocr")}
}

// Recognize OCRs the image with the engine's configuration.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (*Result, error) {
	return e.RecognizeWith(ctx, img, e.cfg)
}

// RecognizeWith OCRs the image with a per-call configuration override.
// Zone-aware callers vary PSM and whitelist per region.
func (e *Engine) RecognizeWith(ctx context.Context, img image.Image, cfg Config) (*Result, error) {
	if img == nil {
		return nil, fmt.Errorf("ocr: nil image")
	}
	if cfg.Binary == "" {
		cfg.Binary = e.cfg.Binary
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = e.cfg.TimeoutSeconds
	}

	tmpDir := cfg.TempDir
	if tmpDir == "" {
		tmpDir = e.cfg.TempDir
	}
	tmp, err := os.CreateTemp(tmpDir, "pavadoc-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("ocr: create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := utils.SaveImagePNG(img, tmpPath); err != nil {
		return nil, fmt.Errorf("ocr: write temp image: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	args := []string{tmpPath, "stdout"}
	if cfg.Language != "" {
		args = append(args, "-l", cfg.Language)
	}
	if cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(cfg.PSM))
	}
	if cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(cfg.OEM))
	}
	if cfg.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+cfg.Whitelist)
	}
	args = append(args, "tsv")

	stdout, stderr, err := e.runner.Run(ctx, cfg.Binary, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ocr: tesseract timed out after %ds: %w", cfg.TimeoutSeconds, ctx.Err())
		}
		return nil, fmt.Errorf("ocr: tesseract failed: %w (stderr: %s)", err, truncate(string(stderr), 512))
	}

	res := parseTSV(string(stdout))
	e.logger.Debug("recognition complete",
		"words", len(res.Words),
		"confidence", res.Confidence,
		"psm", cfg.PSM)
	return res, nil
}

// Available reports whether the tesseract binary can be invoked.
func (e *Engine) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, _, err := e.runner.Run(ctx, e.cfg.Binary, "--version")
	return err == nil
}

// parseTSV converts Tesseract's TSV output into a Result. Rows with a
// negative confidence are layout markers, not words.
func parseTSV(out string) *Result {
	res := &Result{}
	var sb strings.Builder
	var confSum float64
	lastLineKey := ""

	for i, line := range strings.Split(out, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		word := Word{
			Text:       text,
			Confidence: conf / 100.0,
			Bounds:     utils.NewRect(left, top, left+width, top+height),
		}
		res.Words = append(res.Words, word)
		confSum += word.Confidence

		// cols 1..4 identify page/block/paragraph/line.
		lineKey := strings.Join(cols[1:5], ":")
		if sb.Len() > 0 {
			if lineKey == lastLineKey {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte('\n')
			}
		}
		sb.WriteString(text)
		lastLineKey = lineKey
	}

	res.Text = sb.String()
	if len(res.Words) > 0 {
		res.Confidence = confSum / float64(len(res.Words))
	}
	return res
}
