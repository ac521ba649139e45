package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kcenon/cleanupengine/internal/core"
)

// WriteStatisticsReport renders stats as a fixed-width plain-text report
// (§4.7) covering the query period, a summary line, per-category
// percentages, and per-result counts, then writes it atomically.
func WriteStatisticsReport(path string, stats core.Statistics, since, until time.Time) error {
	var b strings.Builder

	b.WriteString("CLEANUP ENGINE AUDIT STATISTICS\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	b.WriteString("Period\n")
	b.WriteString(fmt.Sprintf("  %-20s %s\n", "Since:", formatOrNever(since)))
	b.WriteString(fmt.Sprintf("  %-20s %s\n", "Until:", formatOrNever(until)))
	b.WriteString("\n")

	b.WriteString("Summary\n")
	b.WriteString(fmt.Sprintf("  %-20s %d\n", "Total events:", stats.TotalCount))
	b.WriteString(fmt.Sprintf("  %-20s %s\n", "Total freed:", core.FormatBytes(stats.TotalFreedBytes)))
	b.WriteString(fmt.Sprintf("  %-20s %s\n", "Earliest event:", formatOrNever(stats.EarliestEvent)))
	b.WriteString(fmt.Sprintf("  %-20s %s\n", "Latest event:", formatOrNever(stats.LatestEvent)))
	b.WriteString("\n")

	b.WriteString("Events by category\n")
	for _, cat := range sortedCategoryKeys(stats.ByCategory) {
		count := stats.ByCategory[cat]
		pct := percentage(count, stats.TotalCount)
		b.WriteString(fmt.Sprintf("  %-20s %6d  %5.1f%%\n", string(cat)+":", count, pct))
	}
	b.WriteString("\n")

	b.WriteString("Events by result\n")
	for _, res := range sortedResultKeys(stats.ByResult) {
		count := stats.ByResult[res]
		pct := percentage(count, stats.TotalCount)
		b.WriteString(fmt.Sprintf("  %-20s %6d  %5.1f%%\n", string(res)+":", count, pct))
	}

	return writeFileAtomic(path, []byte(b.String()))
}

func formatOrNever(t time.Time) string {
	if t.IsZero() {
		return "(none)"
	}
	return t.UTC().Format(time.RFC3339)
}

func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func sortedCategoryKeys(m map[core.EventCategory]int64) []core.EventCategory {
	keys := make([]core.EventCategory, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedResultKeys(m map[core.EventResult]int64) []core.EventResult {
	keys := make([]core.EventResult, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
