package textclean

import (
	"regexp"
	"strings"
)

// StructuredData is the lightweight field scan over cleaned text. It is a
// recall-oriented preview; the extraction engine makes the final call.
type StructuredData struct {
	Dates              []string `json:"dates"`
	Amounts            []string `json:"amounts"`
	SupplierCandidates []string `json:"supplier_candidates"`
	DocumentNumber     string   `json:"document_number,omitempty"`
	Items              []Item   `json:"items,omitempty"`
}

// Item is a probable product line: free text plus the first quantity-like
// number and the first money-like token found on it.
type Item struct {
	FullLine        string `json:"full_line"`
	Description     string `json:"description"`
	PotentialAmount string `json:"potential_amount,omitempty"`
	PotentialPrice  string `json:"potential_price,omitempty"`
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
	regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
	regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`),
}

var moneyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+[,.]\d{2}\s*€`),
	regexp.MustCompile(`€\s*\d+[,.]\d{2}`),
	regexp.MustCompile(`\d+[,.]\d{2}\s*EUR`),
	regexp.MustCompile(`EUR\s*\d+[,.]\d{2}`),
}

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`SIA\s+[A-ZĀĒĪŌŪČĢĶĻŅŠŽ][^,\n]*`),
	regexp.MustCompile(`AS\s+[A-ZĀĒĪŌŪČĢĶĻŅŠŽ][^,\n]*`),
	regexp.MustCompile(`UAB\s+[A-ZĀĒĪŌŪČĢĶĻŅŠŽ][^,\n]*`),
	regexp.MustCompile(`[A-ZĀĒĪŌŪČĢĶĻŅŠŽ][A-ZĀĒĪŌŪČĢĶĻŅŠŽa-zāēīōūčģķļņšž\s&]+(?:SIA|AS|UAB)`),
}

var documentNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Pavadzīme\s*(?:Nr\.?|No\.?)\s*:?\s*([A-Z0-9\-/]+)`),
	regexp.MustCompile(`(?i)Invoice\s*(?:Nr\.?|No\.?)\s*:?\s*([A-Z0-9\-/]+)`),
	regexp.MustCompile(`(?i)(?:Nr\.?|No\.?|Numurs)\s*:?\s*([A-Z0-9\-/]+)`),
}

var (
	quantityRe     = regexp.MustCompile(`\b\d+(?:[,.]\d+)?\b`)
	bareMoneyRe    = regexp.MustCompile(`\d+[,.]\d{2}`)
	columnGapRe    = regexp.MustCompile(`\s{2,}`)
	anyDigitsRe    = regexp.MustCompile(`\d+`)
	invoiceTermSet = []string{
		"pavadzīme", "piegādātājs", "saņēmējs", "datums", "summa",
		"cena", "daudzums", "pvn", "kopā", "bez pvn", "ar pvn",
	}
)

// ExtractStructured scans cleaned text for dates, amounts, supplier
// candidates, a document number and probable item lines.
func ExtractStructured(text string) StructuredData {
	return StructuredData{
		Dates:              ExtractDates(text),
		Amounts:            ExtractAmounts(text),
		SupplierCandidates: ExtractSupplierCandidates(text),
		DocumentNumber:     ExtractDocumentNumber(text),
		Items:              ExtractItems(text),
	}
}

// ExtractDates returns all date-shaped tokens, deduplicated in order.
func ExtractDates(text string) []string {
	var dates []string
	for _, re := range datePatterns {
		dates = append(dates, re.FindAllString(text, -1)...)
	}
	return dedupe(dates)
}

// ExtractAmounts returns money tokens normalized to dot decimals without
// internal whitespace.
func ExtractAmounts(text string) []string {
	var amounts []string
	for _, re := range moneyPatterns {
		for _, m := range re.FindAllString(text, -1) {
			m = repeatedSpaceRe.ReplaceAllString(m, "")
			m = strings.ReplaceAll(m, " ", "")
			m = strings.ReplaceAll(m, ",", ".")
			amounts = append(amounts, m)
		}
	}
	return amounts
}

// ExtractSupplierCandidates scans the first ten lines for company-shaped
// strings with Latvian or Baltic legal forms.
func ExtractSupplierCandidates(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	var candidates []string
	for _, line := range lines {
		for _, re := range companyPatterns {
			candidates = append(candidates, re.FindAllString(line, -1)...)
		}
	}
	return candidates
}

// ExtractDocumentNumber finds the first labeled invoice number, preferring
// explicitly labeled variants over the bare "Nr." fallback.
func ExtractDocumentNumber(text string) string {
	for _, re := range documentNumberPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractItems collects lines that look like product rows: long enough,
// containing both a number and a money token.
func ExtractItems(text string) []Item {
	var items []Item
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < 5 {
			continue
		}
		if !anyDigitsRe.MatchString(line) || !bareMoneyRe.MatchString(line) {
			continue
		}
		parts := columnGapRe.Split(line, -1)
		if len(parts) < 2 {
			continue
		}
		item := Item{
			FullLine:    line,
			Description: parts[0],
		}
		if m := quantityRe.FindString(line); m != "" {
			item.PotentialAmount = m
		}
		item.PotentialPrice = findMoney(line)
		items = append(items, item)
	}
	return items
}

func findMoney(line string) string {
	for _, re := range moneyPatterns {
		if m := re.FindString(line); m != "" {
			return m
		}
	}
	return bareMoneyRe.FindString(line)
}

// QualityScore rates a cleaning pass from 0 to 1 using three factors:
// length preservation, recognizable structured data, and invoice
// vocabulary coverage.
func QualityScore(original, cleaned string) float64 {
	if original == "" || cleaned == "" {
		return 0
	}
	var factors []float64

	lengthRatio := float64(len(cleaned)) / float64(len(original))
	if lengthRatio >= 0.7 && lengthRatio <= 1.3 {
		factors = append(factors, 0.8)
	} else {
		f := 1.0 - abs64(1.0-lengthRatio)
		if f < 0.2 {
			f = 0.2
		}
		factors = append(factors, f)
	}

	data := ExtractStructured(cleaned)
	structureScore := 0.0
	if len(data.Dates) > 0 {
		structureScore += 0.3
	}
	if len(data.Amounts) > 0 {
		structureScore += 0.3
	}
	if len(data.SupplierCandidates) > 0 {
		structureScore += 0.2
	}
	if data.DocumentNumber != "" {
		structureScore += 0.2
	}
	factors = append(factors, structureScore)

	lower := strings.ToLower(cleaned)
	found := 0
	for _, term := range invoiceTermSet {
		if strings.Contains(lower, term) {
			found++
		}
	}
	langScore := float64(found) / 3.0
	if langScore > 1 {
		langScore = 1
	}
	factors = append(factors, langScore)

	var sum float64
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
