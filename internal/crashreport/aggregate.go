package crashreport

import "time"

// repeatedCrashThreshold is the count above which an app is flagged as
// having repeated crashes (§4.5).
const repeatedCrashThreshold = 5

// oldReportWindow is the age past which a report counts toward the "old"
// bucket in Analysis.
const oldReportWindow = 30 * 24 * time.Hour

// AppHistogram is the per-application rollup.
type AppHistogram struct {
	AppName            string
	Count              int
	Latest             time.Time
	Oldest             time.Time
	TotalBytes         int64
	HasRepeatedCrashes bool
}

// Analysis is the aggregate produced by Aggregate.
type Analysis struct {
	ByApp          map[string]AppHistogram
	TotalCount     int
	TotalBytes     int64
	OldCount       int
	OldBytes       int64
}

// Aggregate groups reports by app name and computes per-app and global
// totals, including the count/bytes of reports older than 30 days. now is
// injected so callers get a deterministic "old" boundary in tests.
func Aggregate(reports []Report, now time.Time) Analysis {
	byApp := make(map[string]AppHistogram)

	var totalCount int
	var totalBytes int64
	var oldCount int
	var oldBytes int64

	for _, r := range reports {
		h, ok := byApp[r.AppName]
		if !ok {
			h = AppHistogram{AppName: r.AppName, Latest: r.Timestamp, Oldest: r.Timestamp}
		}
		h.Count++
		h.TotalBytes += r.Size
		if r.Timestamp.After(h.Latest) {
			h.Latest = r.Timestamp
		}
		if r.Timestamp.Before(h.Oldest) {
			h.Oldest = r.Timestamp
		}
		h.HasRepeatedCrashes = h.Count > repeatedCrashThreshold
		byApp[r.AppName] = h

		totalCount++
		totalBytes += r.Size
		if now.Sub(r.Timestamp) > oldReportWindow {
			oldCount++
			oldBytes += r.Size
		}
	}

	return Analysis{
		ByApp:      byApp,
		TotalCount: totalCount,
		TotalBytes: totalBytes,
		OldCount:   oldCount,
		OldBytes:   oldBytes,
	}
}
