package textclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanEmpty(t *testing.T) {
	c := New()
	assert.Empty(t, c.Clean("", LevelMedium))
}

func TestCleanStripsControlCharsAndNoise(t *testing.T) {
	c := New()
	out := c.Clean("Datums:\x00 01.02.2024\n#\nRēķins Nr. ABC-123", LevelLight)
	assert.NotContains(t, out, "\x00")
	assert.NotContains(t, out, "#\n") // symbol-only line dropped
	assert.Contains(t, out, "Datums")
}

func TestCleanDigitContextConfusions(t *testing.T) {
	c := New()
	out := c.Clean("Summa 1O0,5O EUR konts 2I7", LevelMedium)
	assert.Contains(t, out, "100")
	assert.Contains(t, out, "217")
}

func TestCleanRestoresDiacritics(t *testing.T) {
	c := New()
	out := c.Clean("pavadzime no piegadatajs, kopa 15,00 EUR", LevelMedium)
	assert.Contains(t, out, "pavadzīme")
	assert.Contains(t, out, "piegādātājs")
	assert.Contains(t, out, "kopā")
}

func TestCleanComposesCombiningDiacritics(t *testing.T) {
	c := New()
	// "kop\u0101" written with a decomposed a + combining macron.
	out := c.Clean("kopa\u0304: 15,00 EUR", LevelLight)
	assert.Contains(t, out, "kop\u0101")
}

func TestCleanJoinsSplitTerms(t *testing.T) {
	c := New()
	out := c.Clean("pavadz īme dat ums sum ma", LevelMedium)
	assert.Contains(t, out, "pavadzīme")
	assert.Contains(t, out, "datums")
	assert.Contains(t, out, "summa")
}

func TestCleanNormalizesPVN(t *testing.T) {
	c := New()
	assert.Contains(t, c.Clean("bez p v n pavisam", LevelMedium), "PVN")
	assert.Contains(t, c.Clean("ar p.v.n. pavisam", LevelMedium), "PVN")
}

func TestCleanAggressiveLigatures(t *testing.T) {
	c := New()
	out := c.Clean("docurnent pavadzīme", LevelAggressive)
	assert.Contains(t, out, "document")
}

func TestCleanLevelIdempotent(t *testing.T) {
	c := New()
	raw := "pavadzime  Nr.. A-1\nSumma:  1O0,00 €\nrn\nkopa"
	for _, level := range []Level{LevelLight, LevelMedium, LevelAggressive} {
		once := c.Clean(raw, level)
		twice := c.Clean(once, level)
		assert.Equal(t, once, twice, "level %s not idempotent", level)
	}
}

func TestExtractDates(t *testing.T) {
	dates := ExtractDates("Datums: 01.02.2024 un 2024-03-15 un 01.02.2024")
	require.Len(t, dates, 2)
	assert.Equal(t, "01.02.2024", dates[0])
	assert.Equal(t, "2024-03-15", dates[1])
}

func TestExtractAmountsNormalized(t *testing.T) {
	amounts := ExtractAmounts("Kopā: 123,45 € un EUR 67.89")
	require.Len(t, amounts, 2)
	assert.Contains(t, amounts, "123.45€")
	assert.Contains(t, amounts, "EUR67.89")
}

func TestExtractSupplierCandidates(t *testing.T) {
	text := "SIA Lindström\nAdrese: Rīga\nAS Latvenergo"
	candidates := ExtractSupplierCandidates(text)
	require.NotEmpty(t, candidates)
	assert.Contains(t, candidates[0], "SIA Lindström")
}

func TestExtractDocumentNumberPrefersLabeled(t *testing.T) {
	text := "Pavadzīme Nr. LIN-2024/001\nNr. XYZ"
	assert.Equal(t, "LIN-2024/001", ExtractDocumentNumber(text))
	assert.Empty(t, ExtractDocumentNumber("nekas šeit nav"))
}

func TestExtractItems(t *testing.T) {
	text := "Paklāji 75x85  2 gab  12,50\nīss\nPiegāde  1  5,00 €"
	items := ExtractItems(text)
	require.Len(t, items, 2)
	assert.Equal(t, "Paklāji 75x85", items[0].Description)
	assert.Equal(t, "75", items[0].PotentialAmount)
	assert.Equal(t, "12,50", items[0].PotentialPrice)
	assert.Equal(t, "5,00 €", items[1].PotentialPrice)
}

func TestQualityScore(t *testing.T) {
	raw := "pavadzime Nr. A-1 datums 01.02.2024 summa 10,00 EUR SIA Tests"
	cleaned := New().Clean(raw, LevelMedium)
	score := QualityScore(raw, cleaned)
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)

	assert.Zero(t, QualityScore("", cleaned))
	assert.Zero(t, QualityScore(raw, ""))
}
