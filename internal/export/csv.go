package export

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strings"
	"time"

	"github.com/kcenon/cleanupengine/internal/core"
)

// csvHeader is the fixed header §4.7 mandates.
var csvHeader = []string{
	"id", "timestamp", "category", "action", "actor", "target",
	"result", "severity", "session_id", "hostname", "username", "metadata",
}

// WriteCSV renders events to RFC-4180 CSV (quoting handled by
// encoding/csv) with the fixed header and writes the result atomically.
func WriteCSV(path string, events []core.Event) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return core.ErrEncodingFailed
	}
	for _, e := range events {
		row := []string{
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			string(e.Category),
			e.Action,
			e.Actor,
			e.Target,
			string(e.Result),
			string(e.Severity),
			e.SessionID,
			e.Hostname,
			e.Username,
			encodeMetadata(e.Metadata),
		}
		if err := w.Write(row); err != nil {
			return core.ErrEncodingFailed
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return core.ErrEncodingFailed
	}

	return writeFileAtomic(path, buf.Bytes())
}

// encodeMetadata renders a metadata map as "key=value" pairs joined by
// ";", sorted by key for deterministic output.
func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + m[k]
	}
	return strings.Join(pairs, ";")
}
