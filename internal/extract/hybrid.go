package extract

import (
	"log/slog"
	"strings"

	"github.com/rigadev/pavadoc/internal/learn"
)

// Per-label confidence a learned entity must exceed before it overrides
// the regex baseline.
var overrideThresholds = map[string]float64{
	learn.LabelSupplierName:   0.6,
	learn.LabelRecipient:      0.5,
	learn.LabelRegNumber:      0.7,
	learn.LabelDocumentNumber: 0.7,
	learn.LabelAmount:         0.7,
	learn.LabelVATAmount:      0.7,
	learn.LabelDate:           0.8,
}

const (
	learnedConfidenceBonus = 0.2
	diversityBonusPerLabel = 0.05
	diversityBonusCap      = 0.2
)

// rejectTokens are captures that are field labels or filler rather than
// values.
var rejectTokens = map[string]struct{}{
	"periods": {},
	"reģ":     {},
	"nr":      {},
	"adrese":  {},
}

// HybridExtractor merges the deterministic regex baseline with the
// adaptive learned-pattern model. Learned entities override regex fields
// when their confidence clears the per-label threshold; either side
// failing degrades the result instead of failing the call.
type HybridExtractor struct {
	regex   *RegexExtractor
	learned *LearnedExtractor
	logger  *slog.Logger
}

// NewHybridExtractor creates a HybridExtractor.
func NewHybridExtractor(regex *RegexExtractor, learned *LearnedExtractor, logger *slog.Logger) *HybridExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridExtractor{regex: regex, learned: learned, logger: logger.With("component", "hybrid-extractor")}
}

// Extract produces the merged record. With useLearned false only the
// regex baseline runs.
func (h *HybridExtractor) Extract(text string, useLearned bool) *ExtractedRecord {
	rec := h.regexRecord(text)
	if !useLearned || h.learned == nil {
		return rec
	}

	entities := h.learnedEntities(text)
	if len(entities) == 0 {
		return rec
	}

	distinctLabels := make(map[string]struct{})
	for _, e := range entities {
		threshold, known := overrideThresholds[e.Label]
		if !known || e.Confidence <= threshold {
			continue
		}
		if !h.applyEntity(rec, e) {
			continue
		}
		distinctLabels[e.Label] = struct{}{}
	}

	bonus := diversityBonusPerLabel * float64(len(distinctLabels))
	if bonus > diversityBonusCap {
		bonus = diversityBonusCap
	}
	rec.ExtractionMethod = "hybrid"
	rec.RecomputeOverall(bonus)
	h.logger.Debug("hybrid merge complete",
		"entities", len(entities),
		"overrides", len(distinctLabels),
		"confidence", rec.OverallConfidence)
	h.checkAmountConsistency(rec)
	return rec
}

// regexRecord shields the pipeline from a baseline failure: any panic
// yields an empty record with zero confidence.
func (h *HybridExtractor) regexRecord(text string) (rec *ExtractedRecord) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("regex extraction panicked", "panic", r)
			rec = &ExtractedRecord{
				Currency:         "EUR",
				ExtractionMethod: "regex",
				FieldConfidences: make(map[string]float64),
			}
		}
	}()
	return h.regex.Extract(text)
}

// learnedEntities shields the merge from a model failure: the regex record
// is simply returned unmodified.
func (h *HybridExtractor) learnedEntities(text string) (entities []Entity) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("learned extraction panicked", "panic", r)
			entities = nil
		}
	}()
	return h.learned.Extract(text)
}

// applyEntity writes one accepted learned entity into the record. Returns
// false when the entity fails sanity checks or the field was already
// better served.
func (h *HybridExtractor) applyEntity(rec *ExtractedRecord, e Entity) bool {
	value := whitespaceRe.ReplaceAllString(strings.TrimSpace(e.Text), " ")
	if value == "" {
		return false
	}
	if _, bad := rejectTokens[strings.ToLower(value)]; bad {
		return false
	}
	conf := e.Confidence + learnedConfidenceBonus
	if conf > 1 {
		conf = 1
	}

	switch e.Label {
	case learn.LabelSupplierName:
		if looksLikeAddress(value) {
			return false
		}
		rec.SupplierName = value
		rec.SetConfidence(FieldSupplierName, conf)
	case learn.LabelRecipient:
		if looksLikeAddress(value) {
			return false
		}
		rec.RecipientName = value
		rec.SetConfidence(FieldRecipientName, conf)
	case learn.LabelRegNumber:
		rec.SupplierRegNumber = value
		rec.SetConfidence(FieldSupplierRegNumber, conf)
	case learn.LabelDocumentNumber:
		rec.InvoiceNumber = value
		rec.SetConfidence(FieldInvoiceNumber, conf)
	case learn.LabelAmount:
		if rec.TotalAmount != nil {
			return false
		}
		amt, err := ParseAmount(value)
		if err != nil {
			return false
		}
		rec.TotalAmount = &amt
		rec.SetConfidence(FieldTotalAmount, conf)
	case learn.LabelVATAmount:
		if rec.VATAmount != nil {
			return false
		}
		amt, err := ParseAmount(value)
		if err != nil {
			return false
		}
		rec.VATAmount = &amt
		rec.SetConfidence(FieldVATAmount, conf)
	case learn.LabelDate:
		if rec.InvoiceDate != nil {
			return false
		}
		d, ok := parseDayMonthYear(value)
		if !ok {
			return false
		}
		rec.InvoiceDate = &d
		rec.SetConfidence(FieldInvoiceDate, conf)
	default:
		return false
	}
	return true
}

// checkAmountConsistency logs when subtotal plus VAT disagrees with the
// total. Advisory only; OCR noise makes a hard failure here useless.
func (h *HybridExtractor) checkAmountConsistency(rec *ExtractedRecord) {
	if rec.TotalAmount == nil || rec.SubtotalAmount == nil || rec.VATAmount == nil {
		return
	}
	sum := rec.SubtotalAmount.Add(*rec.VATAmount)
	if !sum.Equal(*rec.TotalAmount) {
		h.logger.Warn("amount consistency check failed",
			"subtotal", rec.SubtotalAmount.String(),
			"vat", rec.VATAmount.String(),
			"total", rec.TotalAmount.String())
	}
}
