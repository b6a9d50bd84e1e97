package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer persists generated output.
type Writer interface {
	Write(path, content string) error
}

// FileWriter writes output files next to their sources.
type FileWriter struct{}

// Write replaces the file at path with content.
func (FileWriter) Write(path, content string) error {
	// #nosec G306 - generated stylesheets are meant to be world-readable
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// OutputPath returns the sibling of src with its extension replaced by ext.
// A leading dot on ext is optional.
func OutputPath(src, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return strings.TrimSuffix(src, filepath.Ext(src)) + "." + ext
}
