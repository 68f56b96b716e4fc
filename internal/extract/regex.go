package extract

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	whitespaceRe     = regexp.MustCompile(`\s+`)
	legalFormLeadRe  = regexp.MustCompile(`(?i)^(SIA|AS|Z/S)\s*`)
	currencyEURRe    = regexp.MustCompile(`(?i)\bEUR\b`)
	currencyUSDRe    = regexp.MustCompile(`(?i)\bUSD\b`)
	dateSeparatorsRe = regexp.MustCompile(`[./\-]`)
)

// RegexExtractor is the deterministic baseline: ordered pattern lists per
// field, first match wins. It never fails; fields that do not match stay
// empty.
type RegexExtractor struct {
	logger *slog.Logger
}

// NewRegexExtractor creates a RegexExtractor.
func NewRegexExtractor(logger *slog.Logger) *RegexExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegexExtractor{logger: logger.With("component", "regex-extractor")}
}

// Extract runs every field's pattern list over the cleaned text.
func (e *RegexExtractor) Extract(text string) *ExtractedRecord {
	rec := &ExtractedRecord{
		Currency:         extractCurrency(text),
		ExtractionMethod: "regex",
		FieldConfidences: make(map[string]float64),
	}
	if strings.TrimSpace(text) == "" {
		return rec
	}

	rec.InvoiceNumber = firstCapture(invoiceNumberPatterns, text)
	if rec.InvoiceNumber != "" {
		rec.SetConfidence(FieldInvoiceNumber, 0.8)
	}

	supplier, supplierConf := extractSupplier(text)
	if supplier != "" {
		rec.SupplierName = supplier
		rec.SetConfidence(FieldSupplierName, supplierConf)
	}
	rec.SupplierRegNumber = firstCapture(supplierRegNumberPatterns, text)
	rec.SupplierAddress = extractSupplierAddress(text)
	rec.SupplierBankAccount = extractSupplierBankAccount(text)

	recipient, recipientConf := extractRecipient(text)
	if recipient != "" {
		rec.RecipientName = recipient
		rec.SetConfidence(FieldRecipientName, recipientConf)
	}
	rec.RecipientRegNumber = firstCapture(recipientRegNumberPatterns, text)
	rec.RecipientAddress = extractRecipientAddress(text)
	rec.RecipientBankAccount = firstCapture(recipientBankAccountPatterns, text)

	if d, ok := extractInvoiceDate(text); ok {
		rec.InvoiceDate = &d
		rec.SetConfidence(FieldInvoiceDate, 0.8)
	}
	if d, ok := extractDeliveryDate(text); ok {
		rec.DeliveryDate = &d
		rec.SetConfidence(FieldDeliveryDate, 0.8)
	}

	if amt, ok := firstAmount(totalAmountPatterns, text); ok {
		rec.TotalAmount = &amt
		rec.SetConfidence(FieldTotalAmount, 0.8)
	}
	if amt, ok := firstPositiveAmount(subtotalAmountPatterns, text); ok {
		rec.SubtotalAmount = &amt
		rec.SetConfidence(FieldSubtotalAmount, 0.8)
	}
	if amt, ok := firstAmount(vatAmountPatterns, text); ok {
		rec.VATAmount = &amt
		rec.SetConfidence(FieldVATAmount, 0.8)
	}

	rec.Products = extractProducts(text)
	if len(rec.Products) > 0 {
		rec.SetConfidence(FieldProducts, 0.8)
	}

	rec.RecomputeOverall(0)
	e.logger.Debug("regex extraction complete",
		"supplier", rec.SupplierName,
		"products", len(rec.Products),
		"confidence", rec.OverallConfidence)
	return rec
}

// firstCapture returns the first submatch of the first pattern that fires;
// patterns without a capture group yield the whole match.
func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[0])
	}
	return ""
}

func extractSupplier(text string) (string, float64) {
	for _, re := range supplierPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[0]
		if len(m) > 1 && m[1] != "" {
			raw = m[1]
		}
		raw = whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
		name := normalizeSupplierName(raw, text)
		if name == "" {
			continue
		}

		conf := 0.7
		upper := strings.ToUpper(name)
		if strings.Contains(upper, "SIA") || strings.Contains(upper, "AS") || strings.Contains(upper, "Z/S") {
			conf += 0.1
		}
		if n := utf8.RuneCountInString(name); n > 3 && n < 50 {
			conf += 0.1
		}
		lowerText := strings.ToLower(text)
		if (strings.Contains(lowerText, "peterstirgus") || strings.Contains(lowerText, "petertirgus")) &&
			strings.Contains(strings.ToLower(name), "peter") {
			conf += 0.1
		}
		if conf > 1 {
			conf = 1
		}
		return name, conf
	}
	return "", 0
}

// normalizeSupplierName canonicalizes frequent-sender names that OCR tends
// to mangle, then strips legal-form prefixes and stray quoting from the
// generic case.
func normalizeSupplierName(raw, fullText string) string {
	lower := strings.ToLower(fullText)
	if strings.Contains(lower, "lindstrom") || strings.Contains(lower, "lindström") {
		return "SIA Lindström"
	}
	if strings.Contains(lower, "peterstirgus.lv") {
		return "Liepājas Pētertirgus"
	}
	if strings.Contains(lower, "petertirgus") || strings.Contains(lower, "peterstirgus") || strings.Contains(lower, "ertirg") {
		if strings.Contains(lower, "liepaj") || strings.Contains(lower, "liepāj") {
			return "Liepājas Pētertirgus"
		}
		return "Pētertirgus"
	}
	if strings.Contains(strings.ToLower(raw), "tim-t") {
		return "SIA TIM-T"
	}
	cleaned := legalFormLeadRe.ReplaceAllString(raw, "")
	return strings.Trim(cleaned, `"'.,; `)
}

func extractRecipient(text string) (string, float64) {
	for _, re := range recipientPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := whitespaceRe.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		name = strings.Trim(name, `"'`)
		if looksLikeAddress(name) {
			continue
		}
		if n := utf8.RuneCountInString(name); n <= 3 || n >= 100 {
			continue
		}
		conf := 0.8
		upper := strings.ToUpper(name)
		if strings.Contains(upper, "SIA") || strings.Contains(upper, "AS") || strings.Contains(upper, "IK") {
			conf = 0.9
		}
		return name, conf
	}
	return "", 0
}

// looksLikeAddress rejects captures that are street or city lines rather
// than party names.
func looksLikeAddress(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range []string{"iela", "street", "lv-", "rīga", "liepāja"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func extractSupplierAddress(text string) string {
	for _, re := range supplierAddressPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		addr := whitespaceRe.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		if utf8.RuneCountInString(addr) > 10 {
			return addr
		}
	}
	return ""
}

func extractRecipientAddress(text string) string {
	for _, re := range recipientAddressPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		addr := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(addr) > 5 {
			return addr
		}
	}
	return ""
}

func extractSupplierBankAccount(text string) string {
	for _, re := range supplierBankAccountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		account := strings.TrimSpace(m[1])
		if len(account) >= 15 { // shortest valid IBAN
			return account
		}
	}
	return ""
}

func extractInvoiceDate(text string) (Date, bool) {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if d, ok := parseDateGroups(m[1:]); ok {
			return d, true
		}
	}
	return Date{}, false
}

func extractDeliveryDate(text string) (Date, bool) {
	for _, re := range deliveryDatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if d, ok := parseDayMonthYear(m[1]); ok {
			return d, true
		}
	}
	// No explicit delivery date; mirror the invoice date.
	return extractInvoiceDate(text)
}

// parseDateGroups interprets captured date components. Three groups are
// either (year, day, month-name), year-first numeric, or day-first numeric;
// one group is a compact d.m.y string.
func parseDateGroups(groups []string) (Date, bool) {
	switch len(groups) {
	case 3:
		if month, ok := latvianMonths[strings.ToLower(groups[2])]; ok {
			year, err1 := strconv.Atoi(groups[0])
			day, err2 := strconv.Atoi(groups[1])
			if err1 != nil || err2 != nil {
				return Date{}, false
			}
			d, err := NewDate(year, month, day)
			return d, err == nil
		}
		var year, month, day int
		var errs [3]error
		if len(groups[0]) == 4 {
			year, errs[0] = strconv.Atoi(groups[0])
			month, errs[1] = strconv.Atoi(groups[1])
			day, errs[2] = strconv.Atoi(groups[2])
		} else {
			day, errs[0] = strconv.Atoi(groups[0])
			month, errs[1] = strconv.Atoi(groups[1])
			year, errs[2] = strconv.Atoi(groups[2])
		}
		for _, err := range errs {
			if err != nil {
				return Date{}, false
			}
		}
		d, err := NewDate(year, month, day)
		return d, err == nil
	case 1:
		return parseDayMonthYear(groups[0])
	default:
		return Date{}, false
	}
}

// parseDayMonthYear parses d.m.y (also / and - separators); two-digit
// years land in the 2000s.
func parseDayMonthYear(s string) (Date, bool) {
	parts := dateSeparatorsRe.Split(strings.TrimSpace(s), -1)
	if len(parts) != 3 {
		return Date{}, false
	}
	if len(parts[2]) == 2 {
		parts[2] = "20" + parts[2]
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, false
	}
	d, err := NewDate(year, month, day)
	return d, err == nil
}

func firstAmount(patterns []*regexp.Regexp, text string) (decimal.Decimal, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amt, err := ParseAmount(m[1])
		if err != nil {
			continue
		}
		return amt, true
	}
	return decimal.Decimal{}, false
}

func firstPositiveAmount(patterns []*regexp.Regexp, text string) (decimal.Decimal, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amt, err := ParseAmount(m[1])
		if err != nil || !amt.IsPositive() {
			continue
		}
		return amt, true
	}
	return decimal.Decimal{}, false
}

func extractCurrency(text string) string {
	switch {
	case currencyEURRe.MatchString(text) || strings.Contains(text, "€"):
		return "EUR"
	case currencyUSDRe.MatchString(text) || strings.Contains(text, "$"):
		return "USD"
	default:
		return "EUR"
	}
}

func extractProducts(text string) []Product {
	var section string
	for _, re := range tableSectionPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			section = m[1]
			break
		}
	}
	if section == "" {
		return nil
	}
	return parseProductRows(section)
}

func parseProductRows(section string) []Product {
	var products []Product
	for i, line := range strings.Split(strings.TrimSpace(section), "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < 10 {
			continue
		}
		for pi, re := range productRowPatterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if p, ok := buildProduct(m[1:], productRowConfidences[pi]); ok {
				p.LineNumber = i + 1
				p.RawText = line
				products = append(products, p)
			}
			break
		}
	}
	return products
}

func buildProduct(groups []string, confidence float64) (Product, bool) {
	dec := func(s string) (decimal.Decimal, bool) {
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
		return d, err == nil
	}
	switch len(groups) {
	case 6:
		qty, ok1 := dec(groups[2])
		price, ok2 := dec(groups[4])
		total, ok3 := dec(groups[5])
		if !ok1 || !ok2 || !ok3 {
			return Product{}, false
		}
		return Product{
			ProductCode:          groups[0],
			Name:                 strings.TrimSpace(groups[1]),
			Quantity:             qty,
			Unit:                 groups[3],
			UnitPrice:            price,
			TotalPrice:           total,
			ExtractionConfidence: confidence,
		}, true
	case 5:
		qty, ok1 := dec(groups[1])
		price, ok2 := dec(groups[3])
		total, ok3 := dec(groups[4])
		if !ok1 || !ok2 || !ok3 {
			return Product{}, false
		}
		return Product{
			Name:                 strings.TrimSpace(groups[0]),
			Quantity:             qty,
			Unit:                 groups[2],
			UnitPrice:            price,
			TotalPrice:           total,
			ExtractionConfidence: confidence,
		}, true
	case 2:
		total, ok := dec(groups[1])
		if !ok {
			return Product{}, false
		}
		return Product{
			Name:                 strings.TrimSpace(groups[0]),
			TotalPrice:           total,
			ExtractionConfidence: confidence,
		}, true
	default:
		return Product{}, false
	}
}
