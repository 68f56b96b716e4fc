// Package structocr runs the structure-aware recognition pass: layout
// analysis and whole-page OCR in parallel, then per-zone OCR with
// zone-specific engine parameters and cleaning, table cell recognition,
// and a weighted fusion of everything into one enhanced text.
package structocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/rigadev/pavadoc/internal/ocr"
	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/structure"
	"github.com/rigadev/pavadoc/internal/textclean"
	"github.com/rigadev/pavadoc/internal/utils"
)

const (
	cellPadding    = 5
	cellMinSide    = 10
	shortTextRunes = 20
)

// Analyzer abstracts the layout analysis stage so recognition can be
// exercised without real raster analysis.
type Analyzer interface {
	Analyze(ctx context.Context, img image.Image) (*structure.DocumentStructure, error)
}

// Recognizer abstracts the OCR engine.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (*ocr.Result, error)
	RecognizeWith(ctx context.Context, img image.Image, cfg ocr.Config) (*ocr.Result, error)
}

// Config holds the processor's parameters.
type Config struct {
	OCR        ocr.Config
	Preprocess preprocess.Config
	Structure  structure.Config
}

// DefaultConfig returns the invoice defaults.
func DefaultConfig() Config {
	return Config{
		OCR:        ocr.DefaultConfig(),
		Preprocess: preprocess.DefaultConfig(),
		Structure:  structure.DefaultConfig(),
	}
}

// ZoneResult is the recognition outcome for one zone.
type ZoneResult struct {
	Kind       structure.ZoneType `json:"kind"`
	RawText    string             `json:"raw_text"`
	Text       string             `json:"text"`
	Confidence float64            `json:"confidence"`
	Accepted   bool               `json:"accepted"`
	ConfigUsed string             `json:"config_used"`
	Insights   []string           `json:"insights,omitempty"`
}

// TableMatrix is the recognized cell grid of one detected table.
type TableMatrix struct {
	Index      int        `json:"index"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Cells      [][]string `json:"cells"`
	Confidence float64    `json:"confidence"`
}

// Result is the full structure-aware OCR output. Zone results are a set
// keyed by zone kind; no ordering between zones is implied.
type Result struct {
	BaseText          string                              `json:"base_text"`
	BaseConfidence    float64                             `json:"base_confidence"`
	Zones             map[structure.ZoneType]ZoneResult   `json:"zones"`
	Tables            []TableMatrix                       `json:"tables"`
	Structure         *structure.DocumentStructure        `json:"structure,omitempty"`
	EnhancedText      string                              `json:"enhanced_text"`
	OverallConfidence float64                             `json:"overall_confidence"`
	Degraded          bool                                `json:"degraded"`
	ProcessingTimeMS  int64                               `json:"processing_time_ms"`
	Preprocessing     []string                            `json:"preprocessing,omitempty"`
}

// Processor orchestrates the structure-aware pass.
type Processor struct {
	cfg      Config
	pre      *preprocess.Preprocessor
	analyzer Analyzer
	engine   Recognizer
	cleaner  *textclean.Cleaner
	logger   *slog.Logger
}

// NewProcessor wires the real preprocessing, analysis and OCR stages. A
// nil runner uses os/exec.
func NewProcessor(cfg Config, runner ocr.Runner, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:      cfg,
		pre:      preprocess.New(cfg.Preprocess, logger),
		analyzer: structure.NewAnalyzer(cfg.Structure, logger),
		engine:   ocr.NewEngine(cfg.OCR, runner, logger),
		cleaner:  textclean.New(),
		logger:   logger.With("component", "structocr"),
	}
}

// NewProcessorWith injects the analysis and recognition stages.
func NewProcessorWith(cfg Config, analyzer Analyzer, engine Recognizer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:      cfg,
		pre:      preprocess.New(cfg.Preprocess, logger),
		analyzer: analyzer,
		engine:   engine,
		cleaner:  textclean.New(),
		logger:   logger.With("component", "structocr"),
	}
}

// Process runs the structure-aware pass over one page image. Structure
// analysis failing, or finding nothing, degrades to whole-image OCR; a
// single zone or table failing only removes it from the fusion.
func (p *Processor) Process(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "structocr", Err: fmt.Errorf("nil input image")}
	}
	start := time.Now()

	prep, err := p.pre.Run(img, preprocess.ModeInvoice)
	if err != nil {
		return nil, err
	}
	page := prep.Image

	// Layout analysis and whole-page OCR are independent.
	var (
		wg      sync.WaitGroup
		doc     *structure.DocumentStructure
		docErr  error
		base    *ocr.Result
		baseErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		doc, docErr = p.analyzer.Analyze(ctx, page)
	}()
	go func() {
		defer wg.Done()
		base, baseErr = p.engine.Recognize(ctx, page)
	}()
	wg.Wait()

	res := &Result{
		Zones:         make(map[structure.ZoneType]ZoneResult),
		Preprocessing: prep.Steps,
	}
	if baseErr != nil {
		p.logger.Warn("whole-page recognition failed", "error", baseErr)
	} else {
		res.BaseText = p.cleaner.Clean(base.Text, textclean.LevelMedium)
		res.BaseConfidence = base.Confidence
	}

	if docErr != nil || doc == nil || len(doc.Zones) == 0 {
		if docErr != nil {
			p.logger.Warn("structure analysis failed, degrading to whole-page text", "error", docErr)
		}
		if baseErr != nil {
			return nil, fmt.Errorf("structocr: no structure and no page text: %w", baseErr)
		}
		res.Degraded = true
		res.EnhancedText = res.BaseText
		res.OverallConfidence = res.BaseConfidence
		res.ProcessingTimeMS = time.Since(start).Milliseconds()
		return res, nil
	}
	res.Structure = doc

	p.recognizeZones(ctx, page, doc, res)
	res.Tables = p.recognizeTables(ctx, page, doc)

	res.EnhancedText = composeEnhanced(res.Zones, res.Tables)
	res.OverallConfidence = fuseConfidence(res.Zones, res.Tables, res.BaseConfidence)
	res.ProcessingTimeMS = time.Since(start).Milliseconds()

	p.logger.Info("structure-aware recognition complete",
		"zones", len(res.Zones),
		"tables", len(res.Tables),
		"confidence", res.OverallConfidence,
		"duration_ms", res.ProcessingTimeMS)
	return res, nil
}

// recognizeZones fans one goroutine out per banded zone and collects the
// results keyed by kind.
func (p *Processor) recognizeZones(ctx context.Context, page image.Image, doc *structure.DocumentStructure, res *Result) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, kind := range zoneOrder {
		for _, zone := range doc.ZonesByType(kind) {
			wg.Add(1)
			go func(zone structure.Zone) {
				defer wg.Done()
				zr := p.recognizeZone(ctx, page, zone)
				mu.Lock()
				res.Zones[zr.Kind] = zr
				mu.Unlock()
			}(zone)
		}
	}
	wg.Wait()
}

// recognizeZone crops, reprocesses and recognizes a single zone. Any
// failure produces an empty result with zero confidence.
func (p *Processor) recognizeZone(ctx context.Context, page image.Image, zone structure.Zone) ZoneResult {
	zc := zoneConfigs[zone.Type]
	zr := ZoneResult{
		Kind:       zone.Type,
		ConfigUsed: fmt.Sprintf("psm=%d whitelist=%t clean=%s", zc.PSM, zc.Whitelist != "", zc.CleanLevel),
	}

	b := page.Bounds()
	r := zone.Bounds.Clamp(b.Dx(), b.Dy())
	if r.Empty() {
		return zr
	}
	var crop image.Image = imaging.Crop(page, image.Rect(r.X0, r.Y0, r.X1, r.Y1))
	crop = applyZoneSteps(crop, zc.Steps)

	out, err := p.engine.RecognizeWith(ctx, crop, ocrConfigFor(p.cfg.OCR, zc))
	if err != nil {
		p.logger.Warn("zone recognition failed", "zone", string(zone.Type), "error", err)
		return zr
	}
	zr.RawText = out.Text
	zr.Text = p.cleaner.Clean(out.Text, zc.CleanLevel)
	zr.Confidence = out.Confidence
	zr.Accepted = out.Confidence >= zc.MinConfidence
	zr.Insights = zoneInsights(zr, zc)
	return zr
}

// recognizeTables OCRs every cell of every detected table, one goroutine
// per table. A failing cell stays empty; a failing table yields an empty
// matrix.
func (p *Processor) recognizeTables(ctx context.Context, page image.Image, doc *structure.DocumentStructure) []TableMatrix {
	if len(doc.Tables) == 0 {
		return nil
	}
	matrices := make([]TableMatrix, len(doc.Tables))
	var wg sync.WaitGroup
	for i, table := range doc.Tables {
		wg.Add(1)
		go func(i int, table structure.TableRegion) {
			defer wg.Done()
			matrices[i] = p.recognizeTable(ctx, page, i, table)
		}(i, table)
	}
	wg.Wait()
	return matrices
}

func (p *Processor) recognizeTable(ctx context.Context, page image.Image, index int, table structure.TableRegion) TableMatrix {
	m := TableMatrix{Index: index, Rows: table.Rows, Cols: table.Cols}
	if table.Rows <= 0 || table.Cols <= 0 {
		return m
	}
	m.Cells = make([][]string, table.Rows)
	for r := range m.Cells {
		m.Cells[r] = make([]string, table.Cols)
	}

	zc := zoneConfigs[structure.ZoneTable]
	cfg := ocrConfigFor(p.cfg.OCR, zc)
	var confSum float64
	var recognized int

	for _, cell := range table.Cells {
		if cell.Row < 0 || cell.Row >= table.Rows || cell.Col < 0 || cell.Col >= table.Cols {
			continue
		}
		r := cell.Bounds.Inflate(cellPadding).Intersect(table.Bounds)
		if r.Width() < cellMinSide || r.Height() < cellMinSide {
			continue
		}
		crop := imaging.Crop(page, image.Rect(r.X0, r.Y0, r.X1, r.Y1))
		out, err := p.engine.RecognizeWith(ctx, crop, cfg)
		if err != nil {
			p.logger.Debug("cell recognition failed",
				"table", index, "row", cell.Row, "col", cell.Col, "error", err)
			continue
		}
		text := p.cleaner.Clean(out.Text, zc.CleanLevel)
		text = strings.ReplaceAll(text, "\n", " ")
		m.Cells[cell.Row][cell.Col] = strings.TrimSpace(text)
		confSum += out.Confidence
		recognized++
	}
	if recognized > 0 {
		m.Confidence = confSum / float64(recognized)
	}
	return m
}

// composeEnhanced builds the annotated text: banded sections in fixed
// order, then each table as pipe-joined rows.
func composeEnhanced(zones map[structure.ZoneType]ZoneResult, tables []TableMatrix) string {
	var sections []string
	for _, kind := range zoneOrder {
		zr, ok := zones[kind]
		if !ok || strings.TrimSpace(zr.Text) == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("[%s]\n%s", kind, strings.TrimSpace(zr.Text)))
	}
	for _, m := range tables {
		var rows []string
		for _, row := range m.Cells {
			if rowEmpty(row) {
				continue
			}
			rows = append(rows, strings.Join(row, " | "))
		}
		if len(rows) == 0 {
			continue
		}
		sections = append(sections, fmt.Sprintf("[TABLE_%d]\n%s", m.Index+1, strings.Join(rows, "\n")))
	}
	return strings.Join(sections, "\n\n")
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// fuseConfidence combines per-zone and per-table confidences by weight
// and averages the weighted mean with the whole-page confidence. Failed
// parts (zero confidence) are excluded; with nothing usable the base
// confidence stands alone.
func fuseConfidence(zones map[structure.ZoneType]ZoneResult, tables []TableMatrix, base float64) float64 {
	var num, den float64
	kinds := make([]structure.ZoneType, 0, len(zones))
	for kind := range zones {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		zr := zones[kind]
		if zr.Confidence <= 0 {
			continue
		}
		w := zoneFusionWeights[kind]
		if w == 0 {
			w = 1
		}
		num += zr.Confidence * w
		den += w
	}
	for _, m := range tables {
		if m.Confidence <= 0 {
			continue
		}
		num += m.Confidence * tableFusionWeight
		den += tableFusionWeight
	}
	if den == 0 {
		return base
	}
	return (num/den + base) / 2
}

// zoneInsights flags quality problems worth surfacing with the result.
func zoneInsights(zr ZoneResult, zc zoneConfig) []string {
	var flags []string
	if zr.Confidence < zc.MinConfidence {
		flags = append(flags, "low_confidence")
	}
	text := strings.TrimSpace(zr.Text)
	if len([]rune(text)) < shortTextRunes {
		flags = append(flags, "short_text")
	}
	var digits, alnum int
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digits++
			alnum++
		case r == 'ā' || r == 'č' || r == 'ē' || r == 'ģ' || r == 'ī' || r == 'ķ' ||
			r == 'ļ' || r == 'ņ' || r == 'š' || r == 'ū' || r == 'ž',
			r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			alnum++
		}
	}
	if alnum > 0 && float64(digits)/float64(alnum) > 0.6 {
		flags = append(flags, "mostly_numeric")
	}
	if strings.ContainsRune(text, '�') {
		flags = append(flags, "encoding_issues")
	}
	return flags
}
