package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rigadev/pavadoc/internal/config"
	"github.com/rigadev/pavadoc/internal/extract"
	"github.com/rigadev/pavadoc/internal/learn"
	"github.com/rigadev/pavadoc/internal/ocr"
	"github.com/rigadev/pavadoc/internal/pdf"
	"github.com/rigadev/pavadoc/internal/structocr"
	"github.com/rigadev/pavadoc/internal/structure"
	"github.com/rigadev/pavadoc/internal/textclean"
	"github.com/rigadev/pavadoc/internal/utils"
)

// Recognizer runs the structure-aware OCR pass over one page image.
type Recognizer interface {
	Process(ctx context.Context, img image.Image) (*structocr.Result, error)
}

// ContentReader resolves a PDF into embedded text or page images.
type ContentReader interface {
	Extract(path string) (*pdf.Content, error)
}

// Options wires a Processor.
type Options struct {
	Recognizer          Recognizer
	Content             ContentReader
	Extractor           *extract.ZoneAwareExtractor
	Sink                Sink
	ConfidenceThreshold float64
	Logger              *slog.Logger
}

// Processor runs the per-document pipeline.
type Processor struct {
	recognizer Recognizer
	content    ContentReader
	extractor  *extract.ZoneAwareExtractor
	cleaner    *textclean.Cleaner
	sink       Sink
	threshold  float64
	logger     *slog.Logger
}

// NewProcessor creates a Processor from explicit components.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Recognizer == nil {
		return nil, fmt.Errorf("pipeline: recognizer is required")
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("pipeline: extractor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		recognizer: opts.Recognizer,
		content:    opts.Content,
		extractor:  opts.Extractor,
		cleaner:    textclean.New(),
		sink:       opts.Sink,
		threshold:  opts.ConfidenceThreshold,
		logger:     logger.With("component", "pipeline"),
	}, nil
}

// NewDefaultProcessor wires the full production stack from configuration.
// The pattern store lives under cfg.Learning.StoreDir.
func NewDefaultProcessor(cfg *config.Config, sink Sink, logger *slog.Logger) (*Processor, *learn.Store, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	storeCfg := learn.DefaultStoreConfig(cfg.Learning.StoreDir)
	storeCfg.MinExamples = cfg.Learning.MinExamples
	storeCfg.PatternExpiryDays = cfg.Learning.PatternExpiryDays
	store := learn.NewStore(storeCfg, logger)

	hybrid := extract.NewHybridExtractor(
		extract.NewRegexExtractor(logger),
		extract.NewLearnedExtractor(store, logger),
		logger,
	)

	socrCfg := structocr.DefaultConfig()
	socrCfg.OCR = ocr.Config{
		Binary:         cfg.OCR.Binary,
		Language:       cfg.OCR.Language,
		PSM:            cfg.OCR.PSM,
		OEM:            3,
		TimeoutSeconds: cfg.OCR.TimeoutSeconds,
		TempDir:        cfg.Pipeline.TempDir,
	}
	socrCfg.Preprocess.DeskewEnabled = cfg.Preprocess.DeskewEnabled
	socrCfg.Preprocess.DebugDir = cfg.Preprocess.DebugDir
	socrCfg.Structure = structure.DefaultConfig()

	pdfCfg := pdf.Config{
		DirectTextThreshold: cfg.PDF.DirectTextThreshold,
		MaxPages:            cfg.PDF.MaxPages,
		TargetDPI:           cfg.PDF.TargetDPI,
	}

	proc, err := NewProcessor(Options{
		Recognizer:          structocr.NewProcessor(socrCfg, nil, logger),
		Content:             pdf.NewExtractor(pdfCfg, logger),
		Extractor:           extract.NewZoneAwareExtractor(hybrid, logger),
		Sink:                sink,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		Logger:              logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return proc, store, nil
}

// Process runs the whole pipeline for one file. The returned document is
// always populated with whatever stages succeeded; the error reports what
// made the document terminal in the ERROR state.
func (p *Processor) Process(ctx context.Context, path string) (*Document, error) {
	doc := NewDocument(path)
	err := p.run(ctx, doc)
	return doc, err
}

func (p *Processor) run(ctx context.Context, doc *Document) error {
	start := time.Now()
	if err := doc.Transition(StateProcessing); err != nil {
		return err
	}
	defer func() { doc.ProcessingTimeMS = time.Since(start).Milliseconds() }()

	text, pages, method, err := p.resolveContent(doc)
	if err != nil {
		doc.addStageError("content", err)
		return p.fail(doc, err)
	}
	doc.ContentMethod = method

	if text != "" {
		doc.Text = p.cleaner.Clean(text, textclean.LevelMedium)
		doc.EnhancedText = doc.Text
		doc.OCRConfidence = 1.0
		p.extractFields(doc, nil)
	} else {
		zones, ocrErr := p.recognizePages(ctx, doc, pages)
		if ocrErr != nil {
			return p.fail(doc, ocrErr)
		}
		p.extractFields(doc, zones)
	}

	if err := ctx.Err(); err != nil {
		doc.addStageError("cancelled", err)
		return p.fail(doc, err)
	}

	p.persist(doc)

	if doc.Record != nil && doc.Record.OverallConfidence < p.threshold {
		p.logger.Warn("extraction confidence below threshold",
			"document", doc.ID,
			"confidence", doc.Record.OverallConfidence,
			"threshold", p.threshold)
	}
	if err := doc.Transition(StateCompleted); err != nil {
		return err
	}
	p.logger.Info("document processed",
		"document", doc.ID,
		"method", doc.ContentMethod,
		"strategy", doc.Strategy,
		"stage_errors", len(doc.StageErrors))
	return nil
}

// resolveContent turns the input file into either embedded text or a list
// of page images.
func (p *Processor) resolveContent(doc *Document) (string, []image.Image, string, error) {
	if strings.EqualFold(filepath.Ext(doc.Path), ".pdf") {
		if p.content == nil {
			return "", nil, "", fmt.Errorf("pdf input not supported by this processor")
		}
		content, err := p.content.Extract(doc.Path)
		if err != nil {
			return "", nil, "", err
		}
		return content.Text, content.Pages, string(content.Method), nil
	}

	img, _, err := utils.LoadImage(doc.Path)
	if err != nil {
		return "", nil, "", err
	}
	return "", []image.Image{img}, "image", nil
}

// recognizePages OCRs every page. Individual page failures degrade;
// producing no text at all is fatal.
func (p *Processor) recognizePages(ctx context.Context, doc *Document, pages []image.Image) (map[string]extract.ZoneInput, error) {
	var (
		sections []string
		zones    map[string]extract.ZoneInput
		confSum  float64
		succeed  int
	)
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			doc.addStageError("cancelled", err)
			return nil, err
		}
		res, err := p.recognizer.Process(ctx, page)
		if err != nil {
			doc.addStageError(fmt.Sprintf("ocr_page_%d", i+1), err)
			continue
		}
		if strings.TrimSpace(res.EnhancedText) != "" {
			sections = append(sections, res.EnhancedText)
		}
		confSum += res.OverallConfidence
		succeed++
		if zones == nil {
			zones = zoneInputsFrom(res)
		}
	}
	if succeed == 0 {
		err := fmt.Errorf("pipeline: recognition produced no text for %q", doc.Path)
		doc.addStageError("ocr", err)
		return nil, err
	}

	doc.EnhancedText = strings.Join(sections, "\n\n")
	doc.Text = doc.EnhancedText
	doc.OCRConfidence = confSum / float64(succeed)
	return zones, nil
}

// extractFields runs zone-aware extraction over whatever text and zones
// the document has. Extraction never fails the document.
func (p *Processor) extractFields(doc *Document, zones map[string]extract.ZoneInput) {
	res := p.extractor.Extract(zones, doc.EnhancedText)
	doc.Record = res.Record
	doc.ZoneOfField = res.ZoneOfField
	doc.Strategy = res.Strategy
}

// persist pushes results into the sink; persistence failures degrade the
// document instead of failing it.
func (p *Processor) persist(doc *Document) {
	if p.sink == nil {
		return
	}
	if err := p.sink.SaveOCRResult(doc.ID, doc.EnhancedText, doc.OCRConfidence); err != nil {
		doc.addStageError("persist_ocr", err)
	}
	if doc.Record != nil {
		if err := p.sink.SaveExtractedRecord(doc.ID, doc.Record); err != nil {
			doc.addStageError("persist_record", err)
		}
		if len(doc.Record.Products) > 0 {
			if err := p.sink.SaveProductRows(doc.ID, doc.Record.Products); err != nil {
				doc.addStageError("persist_products", err)
			}
		}
	}
}

func (p *Processor) fail(doc *Document, cause error) error {
	if err := doc.Transition(StateError); err != nil {
		p.logger.Error("state transition failed", "document", doc.ID, "error", err)
	}
	return cause
}

// zoneKindAlias maps banded layout kinds onto the extraction routing
// kinds. The summary band is where invoice totals live.
var zoneKindAlias = map[structure.ZoneType]string{
	structure.ZoneHeader:  "HEADER",
	structure.ZoneSummary: "AMOUNTS",
	structure.ZoneFooter:  "FOOTER",
}

// zoneInputsFrom converts a recognition result into extraction zone
// inputs. Tables contribute one combined TABLE input.
func zoneInputsFrom(res *structocr.Result) map[string]extract.ZoneInput {
	inputs := make(map[string]extract.ZoneInput)
	for kind, zr := range res.Zones {
		alias, ok := zoneKindAlias[kind]
		if !ok || strings.TrimSpace(zr.Text) == "" {
			continue
		}
		inputs[alias] = extract.ZoneInput{Text: zr.Text, Confidence: zr.Confidence}
	}

	var rows []string
	var confSum float64
	var tables int
	for _, m := range res.Tables {
		if m.Confidence <= 0 {
			continue
		}
		for _, row := range m.Cells {
			joined := strings.TrimSpace(strings.Join(row, " "))
			if joined != "" {
				rows = append(rows, joined)
			}
		}
		confSum += m.Confidence
		tables++
	}
	if len(rows) > 0 {
		inputs["TABLE"] = extract.ZoneInput{
			Text:       strings.Join(rows, "\n"),
			Confidence: confSum / float64(tables),
		}
	}
	if len(inputs) == 0 {
		return nil
	}
	return inputs
}
