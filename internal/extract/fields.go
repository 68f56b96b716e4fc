// Package extract pulls structured invoice data out of cleaned OCR text.
// Three extractors cooperate: a deterministic regex baseline, a
// learned-pattern extractor backed by the adaptive model, and a hybrid
// merger that arbitrates between them. A zone-aware variant routes
// extraction through layout zones when structure analysis is available.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical field keys used in confidence maps and zone routing.
const (
	FieldInvoiceNumber        = "invoice_number"
	FieldSupplierName         = "supplier_name"
	FieldSupplierRegNumber    = "supplier_reg_number"
	FieldSupplierAddress      = "supplier_address"
	FieldSupplierBankAccount  = "supplier_bank_account"
	FieldRecipientName        = "recipient_name"
	FieldRecipientRegNumber   = "recipient_reg_number"
	FieldRecipientAddress     = "recipient_address"
	FieldRecipientBankAccount = "recipient_bank_account"
	FieldInvoiceDate          = "invoice_date"
	FieldDeliveryDate         = "delivery_date"
	FieldTotalAmount          = "total_amount"
	FieldSubtotalAmount       = "subtotal_amount"
	FieldVATAmount            = "vat_amount"
	FieldCurrency             = "currency"
	FieldProducts             = "products"
)

// Date is a calendar date without a time-of-day or location.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate validates the components against the proleptic Gregorian
// calendar.
func NewDate(year, month, day int) (Date, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// ISO renders the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == Date{} }

// ParseISODate is the inverse of ISO.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

// MarshalJSON encodes the date as an ISO string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.ISO() + `"`), nil
}

// UnmarshalJSON decodes an ISO date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Product is one parsed row of the invoice line-item table.
type Product struct {
	ProductCode          string          `json:"product_code,omitempty"`
	Name                 string          `json:"name"`
	Quantity             decimal.Decimal `json:"quantity,omitempty"`
	Unit                 string          `json:"unit,omitempty"`
	UnitPrice            decimal.Decimal `json:"unit_price,omitempty"`
	TotalPrice           decimal.Decimal `json:"total_price"`
	LineNumber           int             `json:"line_number"`
	RawText              string          `json:"raw_text"`
	ExtractionConfidence float64         `json:"extraction_confidence"`
}

// Entity is one span found by the learned-pattern extractor.
type Entity struct {
	Label      string  `json:"label"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
}

// ExtractedRecord is the structured result of invoice extraction. Unset
// pointers mean the field was not found.
type ExtractedRecord struct {
	InvoiceNumber        string             `json:"invoice_number,omitempty"`
	SupplierName         string             `json:"supplier_name,omitempty"`
	SupplierRegNumber    string             `json:"supplier_reg_number,omitempty"`
	SupplierAddress      string             `json:"supplier_address,omitempty"`
	SupplierBankAccount  string             `json:"supplier_bank_account,omitempty"`
	RecipientName        string             `json:"recipient_name,omitempty"`
	RecipientRegNumber   string             `json:"recipient_reg_number,omitempty"`
	RecipientAddress     string             `json:"recipient_address,omitempty"`
	RecipientBankAccount string             `json:"recipient_bank_account,omitempty"`
	InvoiceDate          *Date              `json:"invoice_date,omitempty"`
	DeliveryDate         *Date              `json:"delivery_date,omitempty"`
	TotalAmount          *decimal.Decimal   `json:"total_amount,omitempty"`
	SubtotalAmount       *decimal.Decimal   `json:"subtotal_amount,omitempty"`
	VATAmount            *decimal.Decimal   `json:"vat_amount,omitempty"`
	Currency             string             `json:"currency,omitempty"`
	Products             []Product          `json:"products,omitempty"`
	FieldConfidences     map[string]float64 `json:"field_confidences,omitempty"`
	OverallConfidence    float64            `json:"overall_confidence"`
	ExtractionMethod     string             `json:"extraction_method,omitempty"`
}

// SetConfidence records a per-field confidence score.
func (r *ExtractedRecord) SetConfidence(field string, v float64) {
	if r.FieldConfidences == nil {
		r.FieldConfidences = make(map[string]float64)
	}
	r.FieldConfidences[field] = v
}

// Confidence returns the recorded confidence for a field, or 0.
func (r *ExtractedRecord) Confidence(field string) float64 {
	return r.FieldConfidences[field]
}

// RecomputeOverall sets the overall confidence to the arithmetic mean of
// all positive field confidences plus a bonus, capped at 1.
func (r *ExtractedRecord) RecomputeOverall(bonus float64) {
	var sum float64
	var n int
	for _, v := range r.FieldConfidences {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		r.OverallConfidence = 0
		return
	}
	overall := sum/float64(n) + bonus
	if overall > 1 {
		overall = 1
	}
	r.OverallConfidence = overall
}

var amountJunkRe = regexp.MustCompile(`[^0-9.]`)

// ParseAmount normalizes an OCR money string to a decimal: spaces removed,
// decimal comma replaced by a dot, stray symbols dropped.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = amountJunkRe.ReplaceAllString(s, "")
	if s == "" || s == "." {
		return decimal.Decimal{}, fmt.Errorf("parse amount: empty after normalization")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// FormatAmount renders a decimal so that ParseAmount round-trips it.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
