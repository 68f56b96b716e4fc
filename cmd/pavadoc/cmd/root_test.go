package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and captures output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	if args == nil {
		args = []string{}
	}
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	// rootCmd is shared between tests; clear flag state left over from a
	// previous Execute so each invocation parses its args fresh.
	for _, name := range []string{"help", "version"} {
		if f := rootCmd.Flags().Lookup(name); f != nil {
			_ = f.Value.Set("false")
			f.Changed = false
		}
	}

	err := rootCmd.Execute()
	return strings.TrimSpace(buf.String()), err
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "pavadoc", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "structure-aware OCR")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, expected := range []string{"process", "learn", "patterns"} {
		assert.Contains(t, names, expected)
	}
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "commit:")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	output, err := executeCommand(t, "--definitely-not-a-flag")
	require.Error(t, err)
	assert.Contains(t, output, "unknown flag")
}

func TestRootCommandNoArgs(t *testing.T) {
	output, err := executeCommand(t)
	require.NoError(t, err)
	assert.NotEmpty(t, output)
}
