package structure

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

// Config holds analyzer parameters.
type Config struct {
	MinTextBlockArea int  // smallest ink cluster reported as a text block
	DetectTables     bool // run the table detectors
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MinTextBlockArea: 100,
		DetectTables:     true,
	}
}

// Analyzer runs layout analysis over a page image.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, logger: logger.With("component", "structure")}
}

// Analyze segments the page into zones, tables and text blocks. The three
// table detectors run concurrently; a panicking or empty detector simply
// contributes nothing, so analysis always returns a structure for a valid
// image.
func (a *Analyzer) Analyze(ctx context.Context, img image.Image) (*DocumentStructure, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "structure", Err: fmt.Errorf("nil input image")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	gray := utils.GrayMapFromImage(img)

	doc := &DocumentStructure{
		Width:      width,
		Height:     height,
		Zones:      BandedZones(width, height),
		DetectedAt: start,
	}

	if a.cfg.DetectTables {
		doc.Tables = a.detectTables(ctx, gray, width, height)
	}
	doc.TextBlocks = a.textBlocks(gray, doc.Tables)
	attachZoneTextBlocks(doc)
	doc.Confidence = overallConfidence(doc.Zones, doc.Tables)
	doc.ProcessingTimeMS = time.Since(start).Milliseconds()

	a.logger.Debug("structure analysis complete",
		"zones", len(doc.Zones),
		"tables", len(doc.Tables),
		"text_blocks", len(doc.TextBlocks),
		"confidence", doc.Confidence)
	return doc, nil
}

type detectorFunc func(*utils.GrayMap) []TableRegion

// detectTables fans the three detectors out over goroutines and merges
// their results.
func (a *Analyzer) detectTables(ctx context.Context, gray *utils.GrayMap, width, height int) []TableRegion {
	detectors := []struct {
		name string
		fn   detectorFunc
	}{
		{"morphological", detectTablesMorphological},
		{"hough", detectTablesHough},
		{"contour", detectTablesContour},
	}

	results := make(chan []TableRegion, len(detectors))
	var wg sync.WaitGroup
	for _, d := range detectors {
		wg.Add(1)
		go func(name string, fn detectorFunc) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Warn("table detector panicked", "detector", name, "panic", r)
					results <- nil
				}
			}()
			if ctx.Err() != nil {
				results <- nil
				return
			}
			regions := fn(gray)
			a.logger.Debug("table detector done", "detector", name, "regions", len(regions))
			results <- regions
		}(d.name, d.fn)
	}
	wg.Wait()
	close(results)

	var all []TableRegion
	for regions := range results {
		all = append(all, regions...)
	}

	merged := MergeTableRegions(all)
	filtered := FilterTableRegions(merged, width, height)
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Bounds.Y0 < filtered[j].Bounds.Y0 })

	// Regions without a ruling-derived grid get cells from pixel analysis.
	for i := range filtered {
		if len(filtered[i].Cells) > 0 {
			continue
		}
		cells := AnalyzeCells(gray, filtered[i].Bounds)
		if len(cells) == 0 {
			continue
		}
		filtered[i].Cells = cells
		filtered[i].CellCount = len(cells)
		maxRow, maxCol := 0, 0
		for _, c := range cells {
			if c.Row > maxRow {
				maxRow = c.Row
			}
			if c.Col > maxCol {
				maxCol = c.Col
			}
		}
		filtered[i].Rows = maxRow + 1
		filtered[i].Cols = maxCol + 1
	}
	return filtered
}

// textBlocks clusters ink outside the detected tables. Dilation glues
// characters into word and line clusters before labeling.
func (a *Analyzer) textBlocks(gray *utils.GrayMap, tables []TableRegion) []TextBlock {
	bin := preprocess.AdaptiveBinarize(gray, 11, 2)
	bin = preprocess.Dilate(bin, 5, 3)

	var blocks []TextBlock
	for _, comp := range ConnectedComponents(bin) {
		if comp.Area < a.cfg.MinTextBlockArea {
			continue
		}
		inTable := false
		for _, t := range tables {
			if t.Bounds.IoU(comp.Bounds) > 0 && !t.Bounds.Intersect(comp.Bounds).Empty() {
				inter := t.Bounds.Intersect(comp.Bounds).Area()
				if float64(inter) >= 0.5*float64(comp.Bounds.Area()) {
					inTable = true
					break
				}
			}
		}
		if inTable {
			continue
		}
		blocks = append(blocks, TextBlock{Bounds: comp.Bounds, Area: comp.Area})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Bounds.Y0 < blocks[j].Bounds.Y0 })
	return blocks
}

// attachZoneTextBlocks assigns each text block to every zone whose bounds
// cover most of the block.
func attachZoneTextBlocks(doc *DocumentStructure) {
	for i := range doc.Zones {
		zone := &doc.Zones[i]
		for _, blk := range doc.TextBlocks {
			inter := zone.Bounds.Intersect(blk.Bounds)
			if inter.Empty() {
				continue
			}
			if float64(inter.Area()) >= 0.5*float64(blk.Bounds.Area()) {
				zone.TextBlocks = append(zone.TextBlocks, blk)
			}
		}
	}
}

// overallConfidence combines zone and table confidence. Zones are the more
// reliable signal and carry more weight; either side alone is discounted.
func overallConfidence(zones []Zone, tables []TableRegion) float64 {
	var zoneConf, tableConf float64
	if len(zones) > 0 {
		for _, z := range zones {
			zoneConf += z.Confidence
		}
		zoneConf /= float64(len(zones))
	}
	if len(tables) > 0 {
		for _, t := range tables {
			tableConf += t.Confidence
		}
		tableConf /= float64(len(tables))
	}

	switch {
	case len(zones) > 0 && len(tables) > 0:
		return 0.7*zoneConf + 0.3*tableConf
	case len(zones) > 0:
		return 0.8 * zoneConf
	case len(tables) > 0:
		return 0.6 * tableConf
	default:
		return 0
	}
}
