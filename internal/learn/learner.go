package learn

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Field labels understood by the learner and the extraction side.
const (
	LabelSupplierName   = "SUPPLIER_NAME"
	LabelRecipient      = "RECIPIENT"
	LabelRegNumber      = "REG_NUMBER"
	LabelDocumentNumber = "DOCUMENT_NUMBER"
	LabelAmount         = "AMOUNT"
	LabelVATAmount      = "VAT_AMOUNT"
	LabelDate           = "DATE"
	LabelAddress        = "ADDRESS"
)

// Document type hints emitted by InferDocumentTypeHint.
const (
	HintLindstrom    = "LINDSTROM"
	HintPeterstirgus = "PETERSTIRGUS"
	HintTimT         = "TIM_T"
	HintGeneric      = "GENERIC"
)

const (
	contextWindow        = 100
	acceptQuality        = 0.7
	qualityExactCapture  = 0.9
	qualityLooseCapture  = 0.6
	qualityTooManyHits   = 0.4
	tooManyMatchCount    = 3
	lvRegNumberExpr      = `(LV\d{11})`
	legalFormPrefixExpr  = `(?:SIA\s+|AS\s+|Z/S\s+)?`
	amountContextPrefix  = `(?:kopā|total|summa)[:\s]*`
	dateContextPrefix    = `(?:datums|date)[:\s]*`
)

var (
	lvRegNumberRe = regexp.MustCompile(`LV\d{11}`)
	digitRunRe    = regexp.MustCompile(`[0-9]+`)
)

// Improvement records one accepted pattern synthesized from a correction.
type Improvement struct {
	Label            string  `json:"label"`
	Expression       string  `json:"pattern"`
	Quality          float64 `json:"quality"`
	Example          string  `json:"example"`
	Context          string  `json:"context"`
	DocumentTypeHint string  `json:"document_type_hint"`
}

// Result summarizes one Learn call.
type Result struct {
	PatternsAdded   int           `json:"patterns_added"`
	PatternsUpdated int           `json:"patterns_updated"`
	Improvements    []Improvement `json:"improvements"`
}

// Learner turns operator corrections into stored extraction patterns.
type Learner struct {
	store  *Store
	logger *slog.Logger
}

// NewLearner creates a Learner backed by the given store.
func NewLearner(store *Store, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{store: store, logger: logger.With("component", "learner")}
}

// Learn compares predictions to corrections, synthesizes candidate patterns
// for the fields that changed, evaluates them against the original text and
// stores the ones that pass the quality gate. Every call is recorded in the
// history log whether or not any pattern was accepted.
func (l *Learner) Learn(originalText string, predicted, corrections map[string]string) (*Result, error) {
	if strings.TrimSpace(originalText) == "" {
		return nil, fmt.Errorf("learn: empty original text")
	}

	hint := InferDocumentTypeHint(originalText)
	res := &Result{}

	labels := make([]string, 0, len(corrections))
	for label := range corrections {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		truth := strings.TrimSpace(corrections[label])
		if truth == "" {
			continue
		}
		l.recordOutcomes(label, truth)
		if strings.TrimSpace(predicted[label]) == truth {
			// Prediction already matched; nothing to learn for this field.
			continue
		}

		for _, span := range findOccurrences(originalText, truth) {
			context := contextAround(originalText, span[0], span[1], contextWindow)
			expr := synthesizePattern(label, truth, context)
			if expr == "" {
				continue
			}
			quality := evaluatePattern(expr, originalText, truth)
			if quality < acceptQuality {
				l.logger.Debug("pattern rejected", "label", label, "quality", quality)
				continue
			}
			added, err := l.store.Add(label, Pattern{
				Expression:       expr,
				Confidence:       quality,
				Example:          truth,
				Context:          clip(context, contextWindow),
				DocumentTypeHint: hint,
				UsageCount:       1,
				CreatedAt:        time.Now(),
			})
			if err != nil {
				return res, fmt.Errorf("learn: store %s pattern: %w", label, err)
			}
			if added {
				res.PatternsAdded++
			} else {
				res.PatternsUpdated++
			}
			res.Improvements = append(res.Improvements, Improvement{
				Label:            label,
				Expression:       expr,
				Quality:          quality,
				Example:          truth,
				Context:          clip(context, contextWindow),
				DocumentTypeHint: hint,
			})
		}
	}

	if err := l.store.AppendExample(Example{
		OriginalText:     originalText,
		Corrections:      corrections,
		SupplierName:     corrections[LabelSupplierName],
		DocumentTypeHint: hint,
		Timestamp:        time.Now(),
	}); err != nil {
		return res, fmt.Errorf("learn: append history: %w", err)
	}

	l.logger.Info("learning complete",
		"added", res.PatternsAdded,
		"updated", res.PatternsUpdated,
		"hint", hint)
	return res, nil
}

// recordOutcomes folds the correction verdict into each stored pattern:
// a pattern whose most recent capture equals the corrected value succeeded,
// any other capture failed.
func (l *Learner) recordOutcomes(label, truth string) {
	for _, p := range l.store.PatternsFor(label) {
		if p.Example == "" {
			continue
		}
		l.store.RecordOutcome(label, p.Expression, strings.EqualFold(p.Example, truth))
	}
}

// InferDocumentTypeHint classifies the document by known brand tokens.
func InferDocumentTypeHint(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "lindström") || strings.Contains(lower, "lindstrom"):
		return HintLindstrom
	case strings.Contains(lower, "peterstirgus") || strings.Contains(lower, "petertirgus"):
		return HintPeterstirgus
	case strings.Contains(lower, "tim-t"):
		return HintTimT
	default:
		return HintGeneric
	}
}

// synthesizePattern builds a candidate expression from the corrected
// literal and its surrounding context, specialized per field kind.
func synthesizePattern(label, literal, context string) string {
	escaped := regexp.QuoteMeta(literal)
	switch label {
	case LabelSupplierName:
		if strings.Contains(strings.ToLower(context), "sia") {
			return legalFormPrefixExpr + "(" + escaped + ")"
		}
		return "(" + escaped + ")"
	case LabelRegNumber:
		if lvRegNumberRe.MatchString(literal) {
			return lvRegNumberExpr
		}
		return "(" + escaped + ")"
	case LabelAmount, LabelVATAmount:
		return amountContextPrefix + "(" + digitRunRe.ReplaceAllString(escaped, `\d+`) + ")"
	case LabelDate:
		return dateContextPrefix + "(" + digitRunRe.ReplaceAllString(escaped, `\d+`) + ")"
	default:
		return "(" + escaped + ")"
	}
}

// evaluatePattern scores a candidate against the text it was learned from.
// A capture equal to the expected literal scores highest; a pattern that
// fires but captures something else is mediocre; one that fires too often
// is probably unspecific.
func evaluatePattern(expr, text, expected string) float64 {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return 0
	}
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0
	}
	want := strings.TrimSpace(strings.ToLower(expected))
	for _, m := range matches {
		got := m[0]
		if len(m) > 1 {
			got = m[1]
		}
		if strings.TrimSpace(strings.ToLower(got)) == want {
			return qualityExactCapture
		}
	}
	if len(matches) > tooManyMatchCount {
		return qualityTooManyHits
	}
	return qualityLooseCapture
}

// findOccurrences locates every case-insensitive occurrence of literal.
func findOccurrences(text, literal string) [][2]int {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(literal))
	if err != nil {
		return nil
	}
	var spans [][2]int
	for _, loc := range re.FindAllStringIndex(text, -1) {
		spans = append(spans, [2]int{loc[0], loc[1]})
	}
	return spans
}

func contextAround(text string, start, end, window int) string {
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	hi := end + window
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text[lo:hi], "\n", " "))
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
