// Package crashreport implements the crash-report parser (C5 in the
// component table): recovering an application name and timestamp from
// diagnostic report filenames, and aggregating per-app crash histograms.
package crashreport

import (
	"os"
	"regexp"
	"strings"
	"time"
)

// knownExtensions is the closed set of diagnostic report extensions this
// parser recognizes (§4.5).
var knownExtensions = map[string]bool{
	"crash": true,
	"ips":   true,
	"spin":  true,
	"hang":  true,
	"diag":  true,
}

// datePattern matches an embedded YYYY-MM-DD-HHMMSS timestamp, which is always preceded
// by the delimiter ("_" or "-") that separates it from the app name.
var datePattern = regexp.MustCompile(`[_-](\d{4}-\d{2}-\d{2}-\d{6})(?:[_-].*)?$`)

// Report is one parsed diagnostic file.
type Report struct {
	Path      string
	AppName   string
	Timestamp time.Time
	Type      string // the file extension, lowercased
	Size      int64
}

// Parse recovers (appName, timestamp, reportType) from filename, falling
// back to mtime (supplied by the caller, since a filename alone carries no
// timestamp when the date pattern is absent) and to the whole stem as the
// app name when no date pattern is found. Unparseable names are never
// dropped — the file always contributes a Report.
func Parse(filename string, fallbackModTime time.Time, size int64) Report {
	stem, ext := splitExtension(filename)

	loc := datePattern.FindStringSubmatchIndex(stem)
	if loc == nil {
		return Report{
			Path:      filename,
			AppName:   stem,
			Timestamp: fallbackModTime,
			Type:      ext,
			Size:      size,
		}
	}

	appName := stem[:loc[0]]
	dateStr := stem[loc[2]:loc[3]]

	ts, err := time.Parse("2006-01-02-150405", dateStr)
	if err != nil {
		return Report{
			Path:      filename,
			AppName:   stem,
			Timestamp: fallbackModTime,
			Type:      ext,
			Size:      size,
		}
	}

	return Report{
		Path:      filename,
		AppName:   appName,
		Timestamp: ts,
		Type:      ext,
		Size:      size,
	}
}

// ParseFile stats path and parses its basename, using the file's mtime as
// the fallback timestamp.
func ParseFile(path string) (Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Report{}, err
	}
	r := Parse(info.Name(), info.ModTime(), info.Size())
	r.Path = path
	return r, nil
}

// splitExtension strips a known diagnostic-report extension from filename
// and returns (stem, extension-lowercase). If the extension is not one of
// the known kinds, the whole filename is treated as the stem and the
// returned extension is empty.
func splitExtension(filename string) (stem string, ext string) {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return filename, ""
	}
	candidate := strings.ToLower(filename[i+1:])
	if !knownExtensions[candidate] {
		return filename, ""
	}
	return filename[:i], candidate
}
