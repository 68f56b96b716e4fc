package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigadev/pavadoc/internal/extract"
	"github.com/rigadev/pavadoc/internal/pipeline"
)

func TestProcessCommandNoArgs(t *testing.T) {
	_, err := executeCommand(t, "process")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files")
}

func TestProcessCommandInvalidFormat(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := executeCommand(t, "process", "invoice.png", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestProcessCommandMissingFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PAVADOC_LEARNING_STORE_DIR", dir)

	_, err := executeCommand(t, "process", "missing.png", "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestProcessCommandUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := executeCommand(t, "process", path, "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input format")
}

func TestWriteDocumentsTextFormat(t *testing.T) {
	total, err := extract.ParseAmount("30,25")
	require.NoError(t, err)
	doc := pipeline.NewDocument("invoice.png")
	doc.ContentMethod = "image"
	doc.OCRConfidence = 0.82
	doc.Record = &extract.ExtractedRecord{
		InvoiceNumber:     "LV-2024/001",
		SupplierName:      "SIA Ozoli",
		TotalAmount:       &total,
		Currency:          "EUR",
		OverallConfidence: 0.75,
	}
	doc.Strategy = extract.StrategyZonePrimary
	doc.StageErrors = []pipeline.StageError{{Stage: "persist_ocr", Message: "disk full"}}

	var buf bytes.Buffer
	require.NoError(t, writeDocuments(&buf, []*pipeline.Document{doc}, outputFormatText))

	out := buf.String()
	assert.Contains(t, out, "invoice.png")
	assert.Contains(t, out, "invoice number: LV-2024/001")
	assert.Contains(t, out, "supplier: SIA Ozoli")
	assert.Contains(t, out, "total: 30.25 EUR")
	assert.Contains(t, out, "stage error [persist_ocr]: disk full")
}

func TestWriteDocumentsJSONSingle(t *testing.T) {
	doc := pipeline.NewDocument("invoice.png")

	var buf bytes.Buffer
	require.NoError(t, writeDocuments(&buf, []*pipeline.Document{doc}, outputFormatJSON))

	out := buf.String()
	assert.Contains(t, out, doc.ID.String())
	// A single document encodes as an object, not a one-element array.
	assert.Equal(t, "{", out[:1])
}
