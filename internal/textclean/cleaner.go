// Package textclean repairs raw OCR output of Latvian invoices: whitespace
// and control character cleanup, context-sensitive confusion repair between
// digits and letters, diacritic restoration for invoice vocabulary, and a
// quality score comparing cleaned text against the raw input.
package textclean

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Level selects how invasive cleaning is. Each level includes everything
// the weaker levels do; applying a level twice yields the same text.
type Level string

const (
	LevelLight      Level = "light"
	LevelMedium     Level = "medium"
	LevelAggressive Level = "aggressive"
)

var (
	multiSpaceRe    = regexp.MustCompile(`[ \t]+`)
	punctSpacingRe  = regexp.MustCompile(`\s*([,.;:!?])[ \t]*`)
	doublePunctRe   = regexp.MustCompile(`([,.;:!?]){2,}`)
	blankLinesRe    = regexp.MustCompile(`\n\s*\n\s*\n`)
	symbolOnlyRe    = regexp.MustCompile(`^[^\p{L}\p{N}\s]*$`)
	digitORe        = regexp.MustCompile(`(\d)O(\d)`)
	digitIRe        = regexp.MustCompile(`(\d)I(\d)`)
	digitSRe        = regexp.MustCompile(`(\d)S(\d)`)
	letterZeroRe    = regexp.MustCompile(`(\p{L}{2,})0(\p{L}{2,})`)
	letterOneRe     = regexp.MustCompile(`(\p{L}{2,})1(\p{L}{2,})`)
	pvnSpacedRe     = regexp.MustCompile(`(?i)\bp\s*v\s*n\b`)
	pvnDottedRe     = regexp.MustCompile(`(?i)\bp\s*\.\s*v\s*\.\s*n\s*\.?`)
	repeatedSpaceRe = regexp.MustCompile(`\s{2,}`)
	rnLigatureRe    = regexp.MustCompile(`(\p{Ll})rn(\p{Ll})`)
	vvLigatureRe    = regexp.MustCompile(`(\p{Ll})vv(\p{Ll})`)
)

// diacriticFixes restores the Latvian diacritics OCR commonly strips from
// invoice vocabulary. Keys are matched case-insensitively on word boundaries.
var diacriticFixes = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bpavadzime\b`), "pavadzīme"},
	{regexp.MustCompile(`(?i)\bpiegadatajs\b`), "piegādātājs"},
	{regexp.MustCompile(`(?i)\bpiegadatājs\b`), "piegādātājs"},
	{regexp.MustCompile(`(?i)\bsanemejs\b`), "saņēmējs"},
	{regexp.MustCompile(`(?i)\bsaņemejs\b`), "saņēmējs"},
	{regexp.MustCompile(`(?i)\bkopa\b`), "kopā"},
	{regexp.MustCompile(`(?i)\brekins\b`), "rēķins"},
}

// termFixes rejoins invoice terms that OCR split mid-word.
var termFixes = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)pavadz\s+īme`), "pavadzīme"},
	{regexp.MustCompile(`(?i)pavad\s+zīme`), "pavadzīme"},
	{regexp.MustCompile(`(?i)piegādat\s+ājs`), "piegādātājs"},
	{regexp.MustCompile(`(?i)saņēm\s+ējs`), "saņēmējs"},
	{regexp.MustCompile(`(?i)\bdat\s+ums\b`), "datums"},
	{regexp.MustCompile(`(?i)\bda\s+tums\b`), "datums"},
	{regexp.MustCompile(`(?i)\bsum\s+ma\b`), "summa"},
	{regexp.MustCompile(`(?i)\bsu\s+mma\b`), "summa"},
	{regexp.MustCompile(`(?i)\bce\s+na\b`), "cena"},
	{regexp.MustCompile(`(?i)\bdaudz\s+ums\b`), "daudzums"},
	{regexp.MustCompile(`(?i)\bdaudzams\b`), "daudzums"},
	{regexp.MustCompile(`(?i)\bkop\s+ā\b`), "kopā"},
	{regexp.MustCompile(`(?i)\bko\s+pā\b`), "kopā"},
}

// aggressiveReplacements are unconditional character repairs reserved for
// the aggressive level because they can alter legitimate text.
var aggressiveReplacements = []struct{ old, new string }{
	{"¢", "c"},
	{"§", "s"},
	{"|", "l"},
}

// Cleaner repairs OCR text.
type Cleaner struct{}

// New creates a Cleaner.
func New() *Cleaner { return &Cleaner{} }

// Clean applies the requested level. Unknown levels behave as medium.
func (c *Cleaner) Clean(raw string, level Level) string {
	if raw == "" {
		return ""
	}
	// Tesseract sometimes emits decomposed combining diacritics, which the
	// vocabulary fixes below would not match.
	text := basicCleanup(norm.NFC.String(raw))

	if level == LevelMedium || level == LevelAggressive || level == "" {
		text = fixConfusions(text)
		text = restoreDiacritics(text)
		text = fixInvoiceTerms(text)
	}
	if level == LevelAggressive {
		text = aggressiveCleanup(text)
	}

	text = structuralCleanup(text)
	return strings.TrimSpace(text)
}

// basicCleanup strips control characters, collapses runs of spaces and
// normalizes punctuation spacing without touching line structure.
func basicCleanup(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	out := multiSpaceRe.ReplaceAllString(sb.String(), " ")
	out = punctSpacingRe.ReplaceAllString(out, "$1 ")
	out = doublePunctRe.ReplaceAllString(out, "$1")
	return out
}

// fixConfusions repairs digit/letter swaps where the surrounding context
// makes the intent unambiguous.
func fixConfusions(text string) string {
	text = digitORe.ReplaceAllString(text, "${1}0${2}")
	text = digitIRe.ReplaceAllString(text, "${1}1${2}")
	text = digitSRe.ReplaceAllString(text, "${1}5${2}")
	text = letterZeroRe.ReplaceAllString(text, "${1}o${2}")
	text = letterOneRe.ReplaceAllString(text, "${1}l${2}")
	return text
}

func restoreDiacritics(text string) string {
	for _, f := range diacriticFixes {
		text = f.re.ReplaceAllString(text, f.replacement)
	}
	return text
}

func fixInvoiceTerms(text string) string {
	for _, f := range termFixes {
		text = f.re.ReplaceAllString(text, f.replacement)
	}
	text = pvnDottedRe.ReplaceAllString(text, "PVN")
	text = pvnSpacedRe.ReplaceAllString(text, "PVN")
	return text
}

func aggressiveCleanup(text string) string {
	for _, r := range aggressiveReplacements {
		text = strings.ReplaceAll(text, r.old, r.new)
	}
	// rn/vv ligature confusions only inside letter runs.
	text = rnLigatureRe.ReplaceAllString(text, "${1}m${2}")
	text = vvLigatureRe.ReplaceAllString(text, "${1}w${2}")
	return text
}

// structuralCleanup drops noise lines: shorter than two characters or made
// of symbols only.
func structuralCleanup(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < 2 {
			continue
		}
		if symbolOnlyRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.Join(kept, "\n")
	return blankLinesRe.ReplaceAllString(out, "\n\n")
}
