package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestSupportedInput(t *testing.T) {
	assert.True(t, SupportedInput("scan.png"))
	assert.True(t, SupportedInput("invoice.PDF"))
	assert.True(t, SupportedInput("page.jpeg"))
	assert.False(t, SupportedInput("notes.txt"))
	assert.False(t, SupportedInput("archive"))
}

func TestDiscoverInputFilesDirectory(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.png"))
	b := touch(t, filepath.Join(dir, "b.pdf"))
	touch(t, filepath.Join(dir, "skip.txt"))
	nested := touch(t, filepath.Join(dir, "sub", "c.jpg"))

	flat, err := DiscoverInputFiles([]string{dir}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, flat)

	deep, err := DiscoverInputFiles([]string{dir}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, nested}, deep)
}

func TestDiscoverInputFilesExplicit(t *testing.T) {
	dir := t.TempDir()
	pdf := touch(t, filepath.Join(dir, "invoice.pdf"))
	txt := touch(t, filepath.Join(dir, "notes.txt"))

	files, err := DiscoverInputFiles([]string{pdf}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{pdf}, files)

	// A file named on the command line must be a supported format.
	_, err = DiscoverInputFiles([]string{txt}, false)
	assert.Error(t, err)

	_, err = DiscoverInputFiles([]string{filepath.Join(dir, "missing.png")}, false)
	assert.Error(t, err)
}
