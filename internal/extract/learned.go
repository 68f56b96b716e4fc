package extract

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rigadev/pavadoc/internal/learn"
)

const (
	entityMinLen      = 2
	entityMaxLen      = 200
	entityContextSpan = 50
)

// basePatterns bootstrap the learned extractor before any corrections have
// been recorded. Persisted learned patterns take precedence per label.
var basePatterns = map[string][]learn.Pattern{
	learn.LabelSupplierName: {
		{Expression: `(?:^|\n)\s*([A-ZĀČĒĢĪĶĻŅŠŪŽ][^\n\r]*(?:SIA|AS|Z/S)[^\n\r]*)`, Confidence: 0.8},
		// [ \t] instead of \s: the name must not run past its line.
		{Expression: `(?:SIA|AS)[ \t]+([A-ZĀČĒĢĪĶĻŅŠŪŽ][A-Za-zāčēģīķļņšūž \t]+)`, Confidence: 0.9},
	},
	learn.LabelRecipient: {
		{Expression: `(?:piegāde uz|delivery to)[:\s]*\n?\s*([^\n\r]+(?:SIA|AS|IK)[^\n\r]*)`, Confidence: 0.8},
		{Expression: `(?:piegāde uz)[:\s]*\n?\s*([A-ZĀČĒĢĪĶĻŅŠŪŽ][^\n\r]+)`, Confidence: 0.7},
	},
	learn.LabelAmount: {
		{Expression: `(?:kopā|total|summa)[:\s]*([0-9,. ]+)\s*EUR`, Confidence: 0.9},
		{Expression: `([0-9]+[.,]\d{2})\s*EUR`, Confidence: 0.7},
	},
	learn.LabelRegNumber: {
		{Expression: `(?:reg|reģ)\.?\s*nr\.?[:\s]*([A-Z]{2}\d{8,11})`, Confidence: 0.9},
	},
	learn.LabelDate: {
		{Expression: `(?:datums|date)[:\s]*(\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4})`, Confidence: 0.8},
	},
	learn.LabelDocumentNumber: {
		{Expression: `(?:pavadzīme|invoice|nr)\.?\s*([A-Z0-9]+)`, Confidence: 0.8},
	},
}

// LearnedExtractor applies the adaptive pattern model. Stored patterns are
// tried per label in descending confidence; labels without enough stored
// evidence fall back to the base pattern set.
type LearnedExtractor struct {
	store  *learn.Store
	logger *slog.Logger
}

// NewLearnedExtractor creates a LearnedExtractor over the given store. A
// nil store means base patterns only.
func NewLearnedExtractor(store *learn.Store, logger *slog.Logger) *LearnedExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LearnedExtractor{store: store, logger: logger.With("component", "learned-extractor")}
}

// Extract finds every entity the model recognizes in the text, sorted by
// label and position.
func (e *LearnedExtractor) Extract(text string) []Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	labels := make(map[string]struct{}, len(basePatterns))
	for label := range basePatterns {
		labels[label] = struct{}{}
	}
	if e.store != nil {
		for _, label := range e.store.Labels() {
			labels[label] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(labels))
	for label := range labels {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	var entities []Entity
	for _, label := range ordered {
		patterns, fromStore := e.patternsFor(label)
		for _, p := range patterns {
			re, err := regexp.Compile("(?im)" + p.Expression)
			if err != nil {
				e.logger.Warn("unusable stored pattern", "label", label, "error", err)
				continue
			}
			fired := false
			for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
				start, end := captureSpan(loc)
				if start < 0 {
					continue
				}
				span := strings.TrimSpace(text[start:end])
				if n := utf8.RuneCountInString(span); n < entityMinLen || n > entityMaxLen {
					continue
				}
				fired = true
				entities = append(entities, Entity{
					Label:      label,
					Text:       span,
					Start:      start,
					End:        end,
					Confidence: p.Confidence,
					Context:    entityContext(text, start, end),
				})
			}
			if fired && fromStore {
				e.store.RecordUsage(label, p.Expression)
			}
		}
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Label != entities[j].Label {
			return entities[i].Label < entities[j].Label
		}
		return entities[i].Start < entities[j].Start
	})
	e.logger.Debug("learned extraction complete", "entities", len(entities))
	return entities
}

// patternsFor returns the stored patterns for label, or the base set when
// the store has nothing usable yet.
func (e *LearnedExtractor) patternsFor(label string) ([]learn.Pattern, bool) {
	if e.store != nil {
		if stored := e.store.PatternsFor(label); len(stored) > 0 {
			return stored, true
		}
	}
	return basePatterns[label], false
}

// captureSpan prefers the first capture group and falls back to the whole
// match.
func captureSpan(loc []int) (int, int) {
	if len(loc) >= 4 && loc[2] >= 0 {
		return loc[2], loc[3]
	}
	if len(loc) >= 2 {
		return loc[0], loc[1]
	}
	return -1, -1
}

func entityContext(text string, start, end int) string {
	lo := start - entityContextSpan
	if lo < 0 {
		lo = 0
	}
	hi := end + entityContextSpan
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text[lo:hi], "\n", " "))
}
