package learn

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(DefaultStoreConfig(dir), nil)
}

func TestStoreLoadMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Load())
	assert.Empty(t, s.Labels())
	assert.Nil(t, s.PatternsFor(LabelSupplierName))
}

func TestStoreAddAndReload(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultStoreConfig(dir)

	s := NewStore(cfg, nil)
	added, err := s.Add(LabelSupplierName, Pattern{Expression: `(SIA Foo)`, Confidence: 0.9, Example: "SIA Foo"})
	require.NoError(t, err)
	assert.True(t, added)

	// Same expression again refreshes instead of duplicating.
	added, err = s.Add(LabelSupplierName, Pattern{Expression: `(SIA Foo)`, Confidence: 0.8, Example: "SIA Foo"})
	require.NoError(t, err)
	assert.False(t, added)

	// A fresh store sees the persisted state.
	s2 := NewStore(cfg, nil)
	ps := s2.PatternsFor(LabelSupplierName)
	require.Len(t, ps, 1)
	assert.Equal(t, `(SIA Foo)`, ps[0].Expression)
	assert.InDelta(t, 0.9, ps[0].Confidence, 1e-9) // keeps the higher confidence
}

func TestStorePatternsSortedByConfidence(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(LabelAmount, Pattern{Expression: `a`, Confidence: 0.7})
	require.NoError(t, err)
	_, err = s.Add(LabelAmount, Pattern{Expression: `b`, Confidence: 0.95})
	require.NoError(t, err)

	ps := s.PatternsFor(LabelAmount)
	require.Len(t, ps, 2)
	assert.Equal(t, `b`, ps[0].Expression)
}

func TestStoreMinExamplesGate(t *testing.T) {
	cfg := DefaultStoreConfig(t.TempDir())
	cfg.MinExamples = 2
	s := NewStore(cfg, nil)

	_, err := s.Add(LabelDate, Pattern{Expression: `d1`, Confidence: 0.8})
	require.NoError(t, err)
	assert.Nil(t, s.PatternsFor(LabelDate), "below min_examples the label stays dark")

	_, err = s.Add(LabelDate, Pattern{Expression: `d2`, Confidence: 0.8})
	require.NoError(t, err)
	assert.Len(t, s.PatternsFor(LabelDate), 2)
}

func TestStoreAtomicFileIsValidJSON(t *testing.T) {
	cfg := DefaultStoreConfig(t.TempDir())
	s := NewStore(cfg, nil)
	_, err := s.Add(LabelRegNumber, Pattern{Expression: `(LV\d{11})`, Confidence: 0.9})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	var parsed map[string][]Pattern
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Contains(t, parsed, LabelRegNumber)

	// No temp leftovers.
	entries, err := os.ReadDir(filepath.Dir(cfg.Path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestStoreRecordOutcomeRunningMean(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(LabelSupplierName, Pattern{Expression: `p`, Confidence: 0.9})
	require.NoError(t, err)

	s.RecordOutcome(LabelSupplierName, `p`, true)
	s.RecordOutcome(LabelSupplierName, `p`, true)
	s.RecordOutcome(LabelSupplierName, `p`, false)

	ps := s.PatternsFor(LabelSupplierName)
	require.Len(t, ps, 1)
	assert.Equal(t, 3, ps[0].OutcomeCount)
	assert.InDelta(t, 2.0/3.0, ps[0].SuccessRate, 1e-9)
}

func TestStorePurgeExpired(t *testing.T) {
	cfg := DefaultStoreConfig(t.TempDir())
	cfg.PatternExpiryDays = 30
	s := NewStore(cfg, nil)

	old := time.Now().AddDate(0, 0, -60)
	_, err := s.Add(LabelAmount, Pattern{Expression: `stale`, Confidence: 0.8, CreatedAt: old})
	require.NoError(t, err)
	_, err = s.Add(LabelAmount, Pattern{Expression: `fresh`, Confidence: 0.8})
	require.NoError(t, err)

	removed, err := s.PurgeExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ps := s.PatternsFor(LabelAmount)
	require.Len(t, ps, 1)
	assert.Equal(t, `fresh`, ps[0].Expression)
}

func TestStoreHistoryAppendOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendExample(Example{OriginalText: "a", Corrections: map[string]string{LabelAmount: "1.00"}}))
	require.NoError(t, s.AppendExample(Example{OriginalText: "b", Corrections: map[string]string{LabelAmount: "2.00"}}))

	history, err := s.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a", history[0].OriginalText)
	assert.Equal(t, "b", history[1].OriginalText)
}

func TestInferDocumentTypeHint(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Rēķins no SIA Lindström par maijiem", HintLindstrom},
		{"e-pasts: info@peterstirgus.lv", HintPeterstirgus},
		{"Piegādātājs SIA TIM-T", HintTimT},
		{"SIA Cits Uzņēmums", HintGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferDocumentTypeHint(tt.text), tt.text)
	}
}

func TestSynthesizePatternPerField(t *testing.T) {
	assert.Equal(t, `(LV\d{11})`, synthesizePattern(LabelRegNumber, "LV40003237187", ""))
	assert.Equal(t, `(ABC-1)`, synthesizePattern(LabelDocumentNumber, "ABC-1", ""))

	amount := synthesizePattern(LabelAmount, "31,46", "Kopā: 31,46 EUR")
	assert.Equal(t, `(?:kopā|total|summa)[:\s]*(\d+,\d+)`, amount)

	date := synthesizePattern(LabelDate, "01.02.2024", "Datums: 01.02.2024")
	assert.Equal(t, `(?:datums|date)[:\s]*(\d+\.\d+\.\d+)`, date)

	supplier := synthesizePattern(LabelSupplierName, "Bar", "Piegādātājs SIA Bar, Rīga")
	assert.Equal(t, `(?:SIA\s+|AS\s+|Z/S\s+)?(Bar)`, supplier)
}

func TestEvaluatePatternQualityTiers(t *testing.T) {
	text := "Kopā: 31,46 EUR\nPVN 21% 5,46\nSumma kopā 31,46"

	// Captures exactly the expected literal.
	assert.InDelta(t, 0.9, evaluatePattern(`(?:kopā|total|summa)[:\s]*(\d+,\d+)`, text, "31,46"), 1e-9)

	// Fires but captures something else.
	assert.InDelta(t, 0.6, evaluatePattern(`PVN 21% (\d+,\d+)`, text, "31,46"), 1e-9)

	// Too many hits without an exact capture.
	noisy := "x 1 x 2 x 3 x 4 x 5"
	assert.InDelta(t, 0.4, evaluatePattern(`x (\d)`, noisy, "9"), 1e-9)

	// No match at all.
	assert.Zero(t, evaluatePattern(`nekas`, text, "31,46"))
}

func TestLearnerAcceptsQualityPatterns(t *testing.T) {
	s := newTestStore(t)
	l := NewLearner(s, nil)

	text := "Pavadzīme Nr. LIN-1\nPiegādātājs: SIA Bar\nKopā: 31,46 EUR"
	res, err := l.Learn(text,
		map[string]string{LabelSupplierName: "SIA Foo"},
		map[string]string{LabelSupplierName: "SIA Bar"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Improvements)
	assert.Equal(t, res.PatternsAdded, len(res.Improvements))

	ps := s.PatternsFor(LabelSupplierName)
	require.NotEmpty(t, ps)
	assert.GreaterOrEqual(t, ps[0].Confidence, 0.7)
	assert.Equal(t, HintGeneric, ps[0].DocumentTypeHint)

	history, err := s.History()
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLearnerSkipsMatchingPrediction(t *testing.T) {
	s := newTestStore(t)
	l := NewLearner(s, nil)

	text := "Piegādātājs: SIA Bar"
	res, err := l.Learn(text,
		map[string]string{LabelSupplierName: "SIA Bar"},
		map[string]string{LabelSupplierName: "SIA Bar"})
	require.NoError(t, err)
	assert.Zero(t, res.PatternsAdded)
	assert.Empty(t, res.Improvements)
}

func TestLearnerRejectsAbsentLiteral(t *testing.T) {
	s := newTestStore(t)
	l := NewLearner(s, nil)

	res, err := l.Learn("pilnīgi cits teksts",
		map[string]string{LabelSupplierName: "SIA Foo"},
		map[string]string{LabelSupplierName: "SIA Bar"})
	require.NoError(t, err)
	assert.Zero(t, res.PatternsAdded)
	assert.Nil(t, s.PatternsFor(LabelSupplierName))
}

func TestLearnerEmptyTextErrors(t *testing.T) {
	l := NewLearner(newTestStore(t), nil)
	_, err := l.Learn("  ", nil, map[string]string{LabelAmount: "1.00"})
	assert.Error(t, err)
}
