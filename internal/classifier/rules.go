package classifier

import (
	"path/filepath"
	"strings"

	"github.com/kcenon/cleanupengine/internal/core"
)

// rootRule is a category rule anchored at a concrete, home-resolved root
// path. These take priority over componentMatch matches because they are
// the more specific pattern (§4.1 tie-break: longer pattern wins).
type rootRule struct {
	relToHome string // path relative to $HOME; empty means an absolute root
	absolute  string // used when relToHome is empty
	category  core.Category
	safe      bool // true if this root is Safe-by-default (subject to the age-promotion modifier)
}

// StandardRoots returns, for a given category flag set, the well-known root
// paths the executor should expand a Request into (§4.4 step 2: "append the
// category's standard path list").
func StandardRoots(home string) map[core.Category][]string {
	roots := map[core.Category][]string{}
	for _, r := range rootRules {
		root := r.absolute
		if r.relToHome != "" {
			if home == "" {
				continue
			}
			root = filepath.Join(home, r.relToHome)
		}
		roots[r.category] = append(roots[r.category], root)
	}
	return roots
}

var rootRules = []rootRule{
	{relToHome: "Library/Caches", category: core.CategorySystemCache, safe: true},
	{relToHome: "Library/Caches/com.apple.Safari", category: core.CategoryBrowserCache, safe: true},
	{relToHome: "Library/Caches/Google/Chrome", category: core.CategoryBrowserCache, safe: true},
	{relToHome: "Library/Caches/Firefox", category: core.CategoryBrowserCache, safe: true},
	{relToHome: "Library/Caches/com.apple.dt.Xcode", category: core.CategoryDeveloperCache, safe: true},
	{relToHome: "Library/Developer/Xcode/DerivedData", category: core.CategoryDeveloperCache, safe: true},
	{relToHome: "Library/Developer/Xcode/Archives", category: core.CategoryDeveloperCache, safe: false},
	{relToHome: "Library/Caches/Homebrew", category: core.CategoryDeveloperCache, safe: true},
	{relToHome: "go/pkg/mod/cache", category: core.CategoryDeveloperCache, safe: true},
	{relToHome: ".npm/_cacache", category: core.CategoryDeveloperCache, safe: true},
	{relToHome: ".cache", category: core.CategoryDeveloperCache, safe: true},
	{relToHome: "Library/Logs", category: core.CategoryLogs, safe: true},
	{relToHome: "Library/Logs/DiagnosticReports", category: core.CategoryCrashReports, safe: false},
	{absolute: "/var/log", category: core.CategoryLogs, safe: false},
	{relToHome: "Downloads", category: core.CategoryDownloads, safe: false},
	{relToHome: "Library/Application Support/MobileSync/Backup", category: core.CategorySnapshots, safe: false},
}

// componentMatch is a fallback heuristic: when no root rule's path actually
// contains the candidate, a path component of the given name (matched
// case-insensitively, as a whole path segment) assigns the category. This is
// what lets synthetic trees used in tests (e.g. "caches/app1", "logs/old.log")
// classify sensibly without living under a real home directory.
var componentMatch = []struct {
	name     string
	category core.Category
}{
	{"diagnosticreports", core.CategoryCrashReports},
	{"crashreports", core.CategoryCrashReports},
	{"caches", core.CategorySystemCache},
	{"cache", core.CategorySystemCache},
	{"logs", core.CategoryLogs},
	{"log", core.CategoryLogs},
	{"downloads", core.CategoryDownloads},
	{"snapshots", core.CategorySnapshots},
	{"derivedData", core.CategoryDeveloperCache},
	{"node_modules", core.CategoryDeveloperCache},
	{"target", core.CategoryDeveloperCache},
	{"build", core.CategoryDeveloperCache},
}

// Category maps a path to its Category via the CategoryRule table. A path
// matching no rule yields Custom (§4.1).
func Category(path string, home string) core.Category {
	clean := filepath.Clean(path)

	best := core.Category("")
	bestLen := -1
	for _, r := range rootRules {
		root := r.absolute
		if r.relToHome != "" {
			if home == "" {
				continue
			}
			root = filepath.Join(home, r.relToHome)
		}
		root = filepath.Clean(root)
		if isPathOrChild(clean, root) && len(root) > bestLen {
			best = r.category
			bestLen = len(root)
		}
	}
	if bestLen >= 0 {
		return best
	}

	for _, part := range strings.Split(clean, string(filepath.Separator)) {
		lower := strings.ToLower(part)
		for _, cm := range componentMatch {
			if lower == strings.ToLower(cm.name) {
				return cm.category
			}
		}
	}

	return core.CategoryCustom
}

// isSafeByDefaultRoot reports whether path sits under a root rule flagged
// safe=true — the set subject to the age-promotion modifier in §4.1.
func isSafeByDefaultRoot(path, home string) bool {
	clean := filepath.Clean(path)
	for _, r := range rootRules {
		if !r.safe {
			continue
		}
		root := r.absolute
		if r.relToHome != "" {
			if home == "" {
				continue
			}
			root = filepath.Join(home, r.relToHome)
		}
		if isPathOrChild(clean, filepath.Clean(root)) {
			return true
		}
	}
	return false
}
