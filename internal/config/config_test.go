package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative confidence", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"empty language", func(c *Config) { c.OCR.Language = "" }},
		{"psm out of range", func(c *Config) { c.OCR.PSM = 14 }},
		{"zero timeout", func(c *Config) { c.OCR.TimeoutSeconds = 0 }},
		{"zero max pages", func(c *Config) { c.PDF.MaxPages = 0 }},
		{"zero min examples", func(c *Config) { c.Learning.MinExamples = 0 }},
		{"negative expiry", func(c *Config) { c.Learning.PatternExpiryDays = -1 }},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "lav+eng+deu", cfg.OCR.Language)
	assert.Equal(t, 30, cfg.OCR.TimeoutSeconds)
	assert.Equal(t, 50, cfg.PDF.DirectTextThreshold)
	assert.Equal(t, 1, cfg.Learning.MinExamples)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pavadoc.yaml")
	yaml := `
ocr:
  language: lav
  timeout_seconds: 10
pdf:
  max_pages: 3
learning:
  min_examples: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := NewLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lav", cfg.OCR.Language)
	assert.Equal(t, 10, cfg.OCR.TimeoutSeconds)
	assert.Equal(t, 3, cfg.PDF.MaxPages)
	assert.Equal(t, 2, cfg.Learning.MinExamples)
	// Untouched keys keep their defaults.
	assert.Equal(t, "tesseract", cfg.OCR.Binary)
	assert.Equal(t, 50, cfg.PDF.DirectTextThreshold)
}

func TestLoadWithFileMissing(t *testing.T) {
	_, err := NewLoader().LoadWithFile("/nonexistent/pavadoc.yaml")
	assert.Error(t, err)
}

func TestLoadWithFileInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pavadoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr:\n  timeout_seconds: -5\n"), 0o600))

	_, err := NewLoader().LoadWithFile(path)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PAVADOC_OCR_LANGUAGE", "eng")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "eng", cfg.OCR.Language)
}
