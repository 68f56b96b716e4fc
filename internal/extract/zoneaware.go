package extract

import (
	"log/slog"
	"sort"
)

// Extraction strategies reported by the zone-aware extractor.
const (
	StrategyZonePrimary     = "zone_primary"
	StrategyZoneHybrid      = "zone_hybrid"
	StrategyFallbackPrimary = "fallback_primary"
)

// ZoneInput is the OCR output of one layout zone, keyed by zone kind in
// the Extract call.
type ZoneInput struct {
	Text       string
	Confidence float64
}

// ZoneAwareResult carries the merged record plus the provenance of each
// field.
type ZoneAwareResult struct {
	Record           *ExtractedRecord   `json:"record"`
	ZoneOfField      map[string]string  `json:"zone_of_field"`
	ConfidenceByZone map[string]float64 `json:"confidence_by_zone"`
	Strategy         string             `json:"strategy"`
}

// zoneFieldRouting maps each zone kind to the fields expected inside it.
var zoneFieldRouting = map[string][]string{
	"SUPPLIER_INFO":   {FieldSupplierName, FieldSupplierRegNumber, FieldSupplierAddress},
	"RECIPIENT_INFO":  {FieldRecipientName, FieldRecipientRegNumber, FieldRecipientAddress},
	"INVOICE_DETAILS": {FieldInvoiceNumber, FieldInvoiceDate, FieldDeliveryDate},
	"AMOUNTS":         {FieldTotalAmount, FieldVATAmount, FieldCurrency},
	"TABLE":           {FieldProducts},
	"FOOTER":          {FieldSupplierBankAccount, FieldRecipientBankAccount},
	"HEADER":          {FieldSupplierName, FieldInvoiceNumber, FieldInvoiceDate},
}

// zoneWeights scale zone OCR confidence when competing candidates exist
// for the same field.
var zoneWeights = map[string]float64{
	"SUPPLIER_INFO":   1.3,
	"AMOUNTS":         1.4,
	"INVOICE_DETAILS": 1.2,
	"TABLE":           1.1,
	"HEADER":          1.0,
	"RECIPIENT_INFO":  0.9,
	"FOOTER":          0.8,
}

const (
	zonePrimaryCoverage    = 0.7
	zoneHybridCoverage     = 0.5
	fallbackConfidenceCut  = 0.8
	zoneExtractionBonus    = 0.05
	zoneExtractionBonusCap = 0.2
)

// ZoneAwareExtractor routes extraction through layout zones and falls back
// to the whole-text hybrid record for anything the zones miss.
type ZoneAwareExtractor struct {
	hybrid *HybridExtractor
	logger *slog.Logger
}

// NewZoneAwareExtractor creates a ZoneAwareExtractor.
func NewZoneAwareExtractor(hybrid *HybridExtractor, logger *slog.Logger) *ZoneAwareExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneAwareExtractor{hybrid: hybrid, logger: logger.With("component", "zone-extractor")}
}

// fieldCandidate is one zone's offer for a field.
type fieldCandidate struct {
	source     *ExtractedRecord
	zone       string
	confidence float64
}

// Extract merges per-zone extraction with the whole-text hybrid fallback.
// With no zones at all the result is exactly the hybrid record under the
// fallback strategy.
func (z *ZoneAwareExtractor) Extract(zones map[string]ZoneInput, fullText string) *ZoneAwareResult {
	fallback := z.hybrid.Extract(fullText, true)

	if len(zones) == 0 {
		return &ZoneAwareResult{
			Record:           fallback,
			ZoneOfField:      map[string]string{},
			ConfidenceByZone: map[string]float64{},
			Strategy:         StrategyFallbackPrimary,
		}
	}

	zoneKinds := make([]string, 0, len(zones))
	for kind := range zones {
		zoneKinds = append(zoneKinds, kind)
	}
	sort.Strings(zoneKinds)

	best := make(map[string]fieldCandidate)
	fieldsFilledByZone := make(map[string]int)
	expected := make(map[string]struct{})

	for _, kind := range zoneKinds {
		routed := zoneFieldRouting[kind]
		if len(routed) == 0 {
			continue
		}
		for _, f := range routed {
			expected[f] = struct{}{}
		}
		input := zones[kind]
		if input.Text == "" {
			continue
		}
		zoneRec := z.hybrid.regexRecord(input.Text)
		weight := zoneWeights[kind]
		if weight == 0 {
			weight = 1
		}
		weighted := input.Confidence * weight

		filled := 0
		for _, field := range routed {
			if !recordHasField(zoneRec, field) {
				continue
			}
			filled++
			cur, exists := best[field]
			if !exists || cur.confidence < weighted {
				best[field] = fieldCandidate{source: zoneRec, zone: kind, confidence: weighted}
			}
		}
		fieldsFilledByZone[kind] = filled
	}

	merged := &ExtractedRecord{
		Currency:         "EUR",
		ExtractionMethod: "zone_aware",
		FieldConfidences: make(map[string]float64),
	}
	zoneOfField := make(map[string]string)
	for field, cand := range best {
		copyField(merged, cand.source, field)
		merged.SetConfidence(field, capConfidence(cand.confidence))
		zoneOfField[field] = cand.zone
	}

	// Anything the zones missed comes from the whole-text record at a
	// confidence discount.
	fallbackOverall := fallback.OverallConfidence
	for _, field := range allRecordFields {
		if _, filled := best[field]; filled {
			continue
		}
		if !recordHasField(fallback, field) {
			continue
		}
		copyField(merged, fallback, field)
		conf := fallback.Confidence(field)
		if conf == 0 {
			conf = fallbackOverall
		}
		merged.SetConfidence(field, capConfidence(conf*fallbackConfidenceCut))
	}
	merged.RecomputeOverall(0)

	confidenceByZone := make(map[string]float64, len(zones))
	for _, kind := range zoneKinds {
		bonus := zoneExtractionBonus * float64(fieldsFilledByZone[kind])
		if bonus > zoneExtractionBonusCap {
			bonus = zoneExtractionBonusCap
		}
		confidenceByZone[kind] = capConfidence(zones[kind].Confidence + bonus)
	}

	strategy := StrategyFallbackPrimary
	if len(expected) > 0 {
		coverage := float64(len(best)) / float64(len(expected))
		switch {
		case coverage >= zonePrimaryCoverage:
			strategy = StrategyZonePrimary
		case coverage >= zoneHybridCoverage:
			strategy = StrategyZoneHybrid
		}
	}

	z.logger.Debug("zone-aware extraction complete",
		"zones", len(zones),
		"zone_fields", len(best),
		"strategy", strategy)
	return &ZoneAwareResult{
		Record:           merged,
		ZoneOfField:      zoneOfField,
		ConfidenceByZone: confidenceByZone,
		Strategy:         strategy,
	}
}

var allRecordFields = []string{
	FieldInvoiceNumber,
	FieldSupplierName,
	FieldSupplierRegNumber,
	FieldSupplierAddress,
	FieldSupplierBankAccount,
	FieldRecipientName,
	FieldRecipientRegNumber,
	FieldRecipientAddress,
	FieldRecipientBankAccount,
	FieldInvoiceDate,
	FieldDeliveryDate,
	FieldTotalAmount,
	FieldSubtotalAmount,
	FieldVATAmount,
	FieldCurrency,
	FieldProducts,
}

func recordHasField(r *ExtractedRecord, field string) bool {
	switch field {
	case FieldInvoiceNumber:
		return r.InvoiceNumber != ""
	case FieldSupplierName:
		return r.SupplierName != ""
	case FieldSupplierRegNumber:
		return r.SupplierRegNumber != ""
	case FieldSupplierAddress:
		return r.SupplierAddress != ""
	case FieldSupplierBankAccount:
		return r.SupplierBankAccount != ""
	case FieldRecipientName:
		return r.RecipientName != ""
	case FieldRecipientRegNumber:
		return r.RecipientRegNumber != ""
	case FieldRecipientAddress:
		return r.RecipientAddress != ""
	case FieldRecipientBankAccount:
		return r.RecipientBankAccount != ""
	case FieldInvoiceDate:
		return r.InvoiceDate != nil
	case FieldDeliveryDate:
		return r.DeliveryDate != nil
	case FieldTotalAmount:
		return r.TotalAmount != nil
	case FieldSubtotalAmount:
		return r.SubtotalAmount != nil
	case FieldVATAmount:
		return r.VATAmount != nil
	case FieldCurrency:
		return r.Currency != ""
	case FieldProducts:
		return len(r.Products) > 0
	default:
		return false
	}
}

func copyField(dst, src *ExtractedRecord, field string) {
	switch field {
	case FieldInvoiceNumber:
		dst.InvoiceNumber = src.InvoiceNumber
	case FieldSupplierName:
		dst.SupplierName = src.SupplierName
	case FieldSupplierRegNumber:
		dst.SupplierRegNumber = src.SupplierRegNumber
	case FieldSupplierAddress:
		dst.SupplierAddress = src.SupplierAddress
	case FieldSupplierBankAccount:
		dst.SupplierBankAccount = src.SupplierBankAccount
	case FieldRecipientName:
		dst.RecipientName = src.RecipientName
	case FieldRecipientRegNumber:
		dst.RecipientRegNumber = src.RecipientRegNumber
	case FieldRecipientAddress:
		dst.RecipientAddress = src.RecipientAddress
	case FieldRecipientBankAccount:
		dst.RecipientBankAccount = src.RecipientBankAccount
	case FieldInvoiceDate:
		dst.InvoiceDate = src.InvoiceDate
	case FieldDeliveryDate:
		dst.DeliveryDate = src.DeliveryDate
	case FieldTotalAmount:
		dst.TotalAmount = src.TotalAmount
	case FieldSubtotalAmount:
		dst.SubtotalAmount = src.SubtotalAmount
	case FieldVATAmount:
		dst.VATAmount = src.VATAmount
	case FieldCurrency:
		dst.Currency = src.Currency
	case FieldProducts:
		dst.Products = src.Products
	}
}

func capConfidence(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
