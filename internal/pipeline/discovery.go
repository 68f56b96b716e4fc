package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions are the input formats the pipeline accepts.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// DiscoverInputFiles expands the given paths into processable files.
// Directories are scanned for supported formats, recursively when asked;
// explicitly named files are rejected if their format is unsupported.
func DiscoverInputFiles(args []string, recursive bool) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := discoverInDirectory(arg, recursive)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		if !SupportedInput(arg) {
			return nil, fmt.Errorf("unsupported input format: %s", arg)
		}
		files = append(files, arg)
	}

	return files, nil
}

// discoverInDirectory collects supported files under dir.
func discoverInDirectory(dir string, recursive bool) ([]string, error) {
	var files []string

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if SupportedInput(path) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.Walk(dir, walkFn); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SupportedInput reports whether the pipeline can process the file.
func SupportedInput(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}
