// Package export implements the audit exporter (C7 in the component
// table): rendering event sets as JSON, JSONL, CSV, or a plain-text
// statistics report, and writing them atomically.
package export

import (
	"os"
	"path/filepath"

	"github.com/kcenon/cleanupengine/internal/core"
)

// Format is one of the exporter's closed output formats.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename, so a reader never observes a partially
// written file (§4.7: "either the file is fully written or not created").
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return core.ErrWriteFailed
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return core.ErrWriteFailed
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return core.ErrWriteFailed
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return core.ErrWriteFailed
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return core.ErrWriteFailed
	}
	return nil
}
