package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rigadev/pavadoc/internal/config"
)

func TestConfigCommandPrintsYAML(t *testing.T) {
	chdir(t, t.TempDir())

	output, err := executeCommand(t, "config")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(output), &cfg))
	assert.Equal(t, "lav+eng+deu", cfg.OCR.Language)
	assert.Equal(t, 300, cfg.PDF.TargetDPI)
}

func TestConfigCommandReflectsEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PAVADOC_OCR_PSM", "4")

	output, err := executeCommand(t, "config")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(output), &cfg))
	assert.Equal(t, 4, cfg.OCR.PSM)
}
