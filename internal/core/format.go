package core

import "github.com/dustin/go-humanize"

// FormatBytes renders a byte count the way the engine's CLI and audit
// statistics report both want it: IEC units, e.g. "512 KiB", "3.5 MiB".
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}

// FormatBytesSigned renders a possibly-negative byte delta.
func FormatBytesSigned(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
