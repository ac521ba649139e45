// Package classifier implements the path-classification module (C1 in the
// component table): it grades every candidate path into a SafetyGrade,
// assigns its Category, and enforces the immutable ProtectedSet.
//
// Grade is a pure function of its inputs — it never fails. An empty or
// non-absolute path is treated defensively as Danger; unknown inputs map to
// Custom/Caution rather than erroring (§4.1 failure semantics).
package classifier

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kcenon/cleanupengine/internal/core"
)

// defaultAgeWindow is the age-modifier window used when the policy does not
// override it (§4.1: "policy-configurable, default 7").
const defaultAgeWindow = 7 * 24 * time.Hour

// baseGrade is the tentative grade a category carries before the
// age-modifier and running-process modifier are applied.
var baseGrade = map[core.Category]core.SafetyGrade{
	core.CategorySystemCache:    core.GradeSafe,
	core.CategoryBrowserCache:   core.GradeSafe,
	core.CategoryDeveloperCache: core.GradeSafe,
	core.CategoryCrashReports:   core.GradeSafe,
	core.CategoryLogs:           core.GradeCaution,
	core.CategoryDownloads:      core.GradeWarning,
	core.CategorySnapshots:      core.GradeWarning,
	core.CategoryCustom:         core.GradeCaution,
}

// Engine grades and categorizes paths. The zero value is usable; Home
// defaults to os.UserHomeDir() and Now defaults to time.Now when unset.
type Engine struct {
	Home  string
	Now   func() time.Time
	Probe core.ProcessProbe // optional; nil means the running-app modifier is a no-op
	Stat  func(path string) (os.FileInfo, error)
}

// New creates a classifier Engine with the caller's home directory resolved
// via os.UserHomeDir.
func New() *Engine {
	home, _ := os.UserHomeDir()
	return &Engine{Home: home, Now: time.Now, Stat: os.Stat}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) stat(path string) (os.FileInfo, error) {
	if e.Stat != nil {
		return e.Stat(path)
	}
	return os.Stat(path)
}

// Category maps path to its Category via the CategoryRule table (pure,
// never fails).
func (e *Engine) Category(path string) core.Category {
	return Category(path, e.Home)
}

// Grade classifies path into a SafetyGrade, consulting the ProtectedSet and
// the policy's exclusion globs before falling back to the CategoryRule
// table and the age/running-process modifiers (§4.1).
func (e *Engine) Grade(ctx context.Context, path string, policy core.EffectivePolicy) core.SafetyGrade {
	if path == "" || !filepath.IsAbs(path) {
		return core.GradeDanger
	}
	clean := filepath.Clean(path)

	if MatchesProtected(clean, ExpandedProtectedSet(e.Home)) {
		return core.GradeDanger
	}

	if ExclusionMatches(clean, policy.ExclusionGlobs) {
		return core.GradeDanger
	}

	cat := e.Category(clean)
	grade, ok := baseGrade[cat]
	if !ok {
		grade = core.GradeCaution
	}

	if grade == core.GradeSafe && isSafeByDefaultRoot(clean, e.Home) {
		window := defaultAgeWindow
		if policy.AgeDays > 0 {
			window = time.Duration(policy.AgeDays) * 24 * time.Hour
		}
		if info, err := e.stat(clean); err == nil {
			if e.now().Sub(info.ModTime()) < window {
				grade = core.GradeCaution
			}
		}
	}

	if e.Probe != nil {
		bundleID := filepath.Base(clean)
		if running, err := e.Probe.IsRunning(ctx, bundleID); err == nil && running {
			grade = promote(grade)
		}
	}

	return grade
}

func promote(g core.SafetyGrade) core.SafetyGrade {
	if g < core.GradeDanger {
		return g + 1
	}
	return g
}

// ExclusionMatches reports whether path matches any of the caller's
// exclusion glob patterns. Patterns use doublestar syntax: "**" crosses path
// separators, a lone "*" does not — the semantics §9's REDESIGN FLAG
// requires, which the teacher's hand-rolled matcher conflated.
func ExclusionMatches(path string, globs []string) bool {
	for _, g := range globs {
		g = expandTilde(g)
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
		// Also try matching just the base name for bare filename patterns
		// like "*.tmp" supplied without a path prefix.
		if ok, _ := doublestar.Match(g, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

func expandTilde(pattern string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return pattern
	}
	if pattern == "~" {
		return home
	}
	if len(pattern) >= 2 && pattern[:2] == "~/" {
		return filepath.Join(home, pattern[2:])
	}
	return pattern
}

// Ensure Engine implements core.Classifier.
var _ core.Classifier = (*Engine)(nil)
