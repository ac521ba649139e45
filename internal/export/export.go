package export

import (
	"time"

	"github.com/kcenon/cleanupengine/internal/core"
)

// ExportResult is returned to library callers per §6's external interface
// (audit.export(events, format, path) -> ExportResult).
type ExportResult struct {
	Path       string
	Format     Format
	EventCount int
}

// Export renders events in the requested format and writes them atomically
// to path. An empty event set is rejected (§7: ErrNoEventsToExport) since an
// empty export file is almost always a caller mistake (wrong query window,
// stale session id) rather than an intended output.
func Export(path string, format Format, events []core.Event, hostname string, now time.Time) (ExportResult, error) {
	if len(events) == 0 {
		return ExportResult{}, core.ErrNoEventsToExport
	}

	var err error
	switch format {
	case FormatJSON:
		err = WriteJSON(path, events, hostname, now)
	case FormatJSONL:
		err = WriteJSONL(path, events)
	case FormatCSV:
		err = WriteCSV(path, events)
	default:
		return ExportResult{}, core.ErrEncodingFailed
	}
	if err != nil {
		return ExportResult{}, err
	}

	return ExportResult{Path: path, Format: format, EventCount: len(events)}, nil
}
