package crashreport

import (
	"os"
	"path/filepath"
)

// ScanDirectory parses every regular file directly under dir (no
// recursion — diagnostic reports are stored flat) and returns one Report
// per entry, regardless of whether its name matched the date pattern.
func ScanDirectory(dir string) ([]Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		reports = append(reports, Parse(info.Name(), info.ModTime(), info.Size()))
		reports[len(reports)-1].Path = filepath.Join(dir, info.Name())
	}
	return reports, nil
}
