// Package pdf turns invoice PDFs into OCR input. Documents that carry
// enough embedded text skip OCR entirely; scanned documents fall back to
// page-image extraction.
package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Config holds extraction parameters.
type Config struct {
	DirectTextThreshold int // embedded chars at which OCR is skipped
	MaxPages            int // hard page cap per document
	TargetDPI           int // desired render resolution of page images
}

// DefaultConfig returns the invoice defaults.
func DefaultConfig() Config {
	return Config{
		DirectTextThreshold: 50,
		MaxPages:            10,
		TargetDPI:           300,
	}
}

// Method names how a document's content was obtained.
type Method string

const (
	MethodDirectText Method = "direct_text"
	MethodPageImages Method = "page_images"
)

// Content is the extraction outcome for one document.
type Content struct {
	Method    Method        `json:"method"`
	Text      string        `json:"text,omitempty"`
	Pages     []image.Image `json:"-"`
	PageCount int           `json:"page_count"`
}

// Info is a cheap structural probe of a PDF.
type Info struct {
	PageCount int  `json:"page_count"`
	HasText   bool `json:"has_text"`
	TextChars int  `json:"text_chars"`
}

// Extractor reads invoice PDFs.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	return &Extractor{cfg: cfg, logger: logger.With("component", "pdf")}
}

// Extract chooses between embedded text and page images. Embedded text
// wins when the document carries at least DirectTextThreshold characters;
// a text probe failure silently falls through to page images.
func (e *Extractor) Extract(path string) (*Content, error) {
	text, pages, err := e.EmbeddedText(path)
	if err != nil {
		e.logger.Debug("embedded text probe failed", "path", path, "error", err)
	} else if len(strings.TrimSpace(text)) >= e.cfg.DirectTextThreshold {
		e.logger.Info("using embedded text", "path", path, "chars", len(text))
		return &Content{Method: MethodDirectText, Text: text, PageCount: pages}, nil
	}

	images, err := e.PageImages(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: extract pages from %q: %w", path, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("pdf: no text and no page images in %q", path)
	}
	e.logger.Info("using page images", "path", path, "pages", len(images))
	return &Content{Method: MethodPageImages, Pages: images, PageCount: len(images)}, nil
}

// Probe reports page count and whether the document carries embedded text.
func (e *Extractor) Probe(path string) (*Info, error) {
	text, pages, err := e.EmbeddedText(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(text)
	return &Info{
		PageCount: pages,
		HasText:   len(trimmed) >= e.cfg.DirectTextThreshold,
		TextChars: len(trimmed),
	}, nil
}

// EmbeddedText concatenates the vector text of all pages up to the page
// cap. Individual unreadable pages are skipped.
func (e *Extractor) EmbeddedText(path string) (string, int, error) {
	reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("pdf: open %q: %w", path, err)
	}

	total := reader.NumPage()
	limit := capPages(total, e.cfg.MaxPages)

	var sb strings.Builder
	for n := 1; n <= limit; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			e.logger.Debug("page text unreadable", "path", path, "page", n, "error", err)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
	return sb.String(), total, nil
}

// PageImages renders the document as one image per page, capped at
// MaxPages, ordered by page number. When a page embeds several images the
// largest one is taken as the page scan.
func (e *Extractor) PageImages(path string) ([]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "pavadoc-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("pdf: create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: page count of %q: %w", path, err)
	}
	limit := capPages(pageCount, e.cfg.MaxPages)
	selected := make([]string, 0, limit)
	for n := 1; n <= limit; n++ {
		selected = append(selected, strconv.Itoa(n))
	}

	if err := api.ExtractImagesFile(path, tempDir, selected, nil); err != nil {
		return nil, fmt.Errorf("pdf: extract images: %w", err)
	}

	byPage, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, err
	}

	pageNums := make([]int, 0, len(byPage))
	for n := range byPage {
		pageNums = append(pageNums, n)
	}
	sort.Ints(pageNums)

	out := make([]image.Image, 0, len(pageNums))
	for _, n := range pageNums {
		if img := largestImage(byPage[n]); img != nil {
			out = append(out, img)
		}
	}
	return out, nil
}

func capPages(total, maxPages int) int {
	if maxPages > 0 && total > maxPages {
		return maxPages
	}
	return total
}

// largestImage picks the biggest raster of a page; invoice scans embed
// the page scan alongside small logos and stamps.
func largestImage(images []image.Image) image.Image {
	var best image.Image
	bestArea := 0
	for _, img := range images {
		b := img.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	return best
}

// collectExtractedImages walks the extraction directory and groups images
// by page number. pdfcpu names files page_<num>_<name>.<ext>.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		img, err := loadImageFile(path)
		if err != nil {
			return nil
		}
		result[pageNum] = append(result[pageNum], img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func parsePageFromFilename(filename string) (int, error) {
	if !strings.HasPrefix(filename, "page_") {
		return 0, errors.New("not a page file")
	}
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // user-provided document path
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}
