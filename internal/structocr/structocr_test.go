package structocr

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigadev/pavadoc/internal/ocr"
	"github.com/rigadev/pavadoc/internal/structure"
)

type stubAnalyzer struct {
	doc *structure.DocumentStructure
	err error
}

func (s stubAnalyzer) Analyze(context.Context, image.Image) (*structure.DocumentStructure, error) {
	return s.doc, s.err
}

// stubEngine answers whole-page calls and per-zone calls separately.
type stubEngine struct {
	base    *ocr.Result
	baseErr error
	zone    *ocr.Result
	zoneErr error
}

func (s stubEngine) Recognize(context.Context, image.Image) (*ocr.Result, error) {
	return s.base, s.baseErr
}

func (s stubEngine) RecognizeWith(context.Context, image.Image, ocr.Config) (*ocr.Result, error) {
	return s.zone, s.zoneErr
}

func whitePage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestProcessFullDocument(t *testing.T) {
	engine := stubEngine{
		base: &ocr.Result{Text: "Rinda viena", Confidence: 0.8},
		zone: &ocr.Result{Text: "Rinda viena", Confidence: 0.8},
	}
	p := NewProcessorWith(DefaultConfig(), structure.NewAnalyzer(structure.DefaultConfig(), nil), engine, nil)

	res, err := p.Process(context.Background(), whitePage(600, 800))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	require.NotNil(t, res.Structure)
	assert.Len(t, res.Zones, 4)

	for _, kind := range zoneOrder {
		zr, ok := res.Zones[kind]
		require.True(t, ok, string(kind))
		assert.True(t, zr.Accepted, string(kind))
		assert.Equal(t, "Rinda viena", zr.Text)
	}

	// Section order is fixed regardless of completion order.
	text := res.EnhancedText
	hi := strings.Index(text, "[HEADER]")
	bi := strings.Index(text, "[BODY]")
	si := strings.Index(text, "[SUMMARY]")
	fi := strings.Index(text, "[FOOTER]")
	require.True(t, hi >= 0 && bi >= 0 && si >= 0 && fi >= 0)
	assert.True(t, hi < bi && bi < si && si < fi)

	// Uniform confidences collapse the weighted mean.
	assert.InDelta(t, 0.8, res.OverallConfidence, 1e-9)
}

func TestProcessDegradesWithoutStructure(t *testing.T) {
	engine := stubEngine{base: &ocr.Result{Text: "viss teksts", Confidence: 0.7}}
	p := NewProcessorWith(DefaultConfig(), stubAnalyzer{err: errors.New("boom")}, engine, nil)

	res, err := p.Process(context.Background(), whitePage(600, 800))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Zones)
	assert.Equal(t, res.BaseText, res.EnhancedText)
	assert.InDelta(t, 0.7, res.OverallConfidence, 1e-9)
}

func TestProcessZoneFailuresExcludedFromFusion(t *testing.T) {
	engine := stubEngine{
		base:    &ocr.Result{Text: "pamata teksts", Confidence: 0.9},
		zoneErr: errors.New("tesseract exploded"),
	}
	p := NewProcessorWith(DefaultConfig(), structure.NewAnalyzer(structure.DefaultConfig(), nil), engine, nil)

	res, err := p.Process(context.Background(), whitePage(600, 800))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Zones, 4)
	for _, zr := range res.Zones {
		assert.Zero(t, zr.Confidence)
		assert.False(t, zr.Accepted)
		assert.Empty(t, zr.Text)
	}
	assert.Empty(t, res.EnhancedText)
	// Nothing usable from zones: the page confidence stands alone.
	assert.InDelta(t, 0.9, res.OverallConfidence, 1e-9)
}

func TestProcessFatalWhenNothingRecognizable(t *testing.T) {
	engine := stubEngine{baseErr: errors.New("no binary"), zoneErr: errors.New("no binary")}
	p := NewProcessorWith(DefaultConfig(), stubAnalyzer{err: errors.New("boom")}, engine, nil)

	_, err := p.Process(context.Background(), whitePage(600, 800))
	assert.Error(t, err)
}

func TestProcessNilImage(t *testing.T) {
	p := NewProcessorWith(DefaultConfig(), stubAnalyzer{}, stubEngine{}, nil)
	_, err := p.Process(context.Background(), nil)
	assert.Error(t, err)
}

func TestComposeEnhancedWithTables(t *testing.T) {
	zones := map[structure.ZoneType]ZoneResult{
		structure.ZoneHeader:  {Kind: structure.ZoneHeader, Text: "SIA Paraugs"},
		structure.ZoneSummary: {Kind: structure.ZoneSummary, Text: ""},
	}
	tables := []TableMatrix{
		{Index: 0, Rows: 2, Cols: 2, Cells: [][]string{{"Prece", "Summa"}, {"Paklāji", "12,50"}}, Confidence: 0.9},
		{Index: 1, Rows: 1, Cols: 1, Cells: [][]string{{""}}},
	}

	got := composeEnhanced(zones, tables)
	want := "[HEADER]\nSIA Paraugs\n\n[TABLE_1]\nPrece | Summa\nPaklāji | 12,50"
	assert.Equal(t, want, got)
}

func TestFuseConfidenceWeights(t *testing.T) {
	zones := map[structure.ZoneType]ZoneResult{
		structure.ZoneHeader:  {Kind: structure.ZoneHeader, Confidence: 0.8},
		structure.ZoneSummary: {Kind: structure.ZoneSummary, Confidence: 0.6},
		structure.ZoneFooter:  {Kind: structure.ZoneFooter, Confidence: 0}, // excluded
	}
	tables := []TableMatrix{{Confidence: 0.9}}

	// (0.8*1.2 + 0.6*1.1 + 0.9*1.3) / (1.2+1.1+1.3) averaged with 0.7.
	got := fuseConfidence(zones, tables, 0.7)
	assert.InDelta(t, (2.79/3.6+0.7)/2, got, 1e-9)
}

func TestZoneInsightsFlags(t *testing.T) {
	zc := zoneConfigs[structure.ZoneSummary]
	zr := ZoneResult{Kind: structure.ZoneSummary, Text: "12,50 3,47", Confidence: 0.5}
	flags := zoneInsights(zr, zc)
	assert.Contains(t, flags, "low_confidence")
	assert.Contains(t, flags, "short_text")
	assert.Contains(t, flags, "mostly_numeric")
	assert.NotContains(t, flags, "encoding_issues")
}
