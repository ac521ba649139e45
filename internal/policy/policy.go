// Package policy implements the Policy Interface (C8 in the component
// table): resolving the request-scoped EffectivePolicy snapshot the
// executor consumes. It never parses a team-policy document itself — that
// ingestion lives with the caller's own core.PolicyProvider implementation
// (§6); this package only supplies the engine's built-in defaults and a
// static provider good enough for a caller with no external policy source.
package policy

import (
	"context"

	"github.com/kcenon/cleanupengine/internal/core"
)

// Default returns the engine's built-in EffectivePolicy: Light ceiling
// (Safe-only), dry run off, only system caches included, no exclusions, and
// the classifier's default 7-day age window (AgeDays: 0 means "use
// classifier default").
func Default() core.EffectivePolicy {
	return core.EffectivePolicy{
		CleanupLevel:        core.LevelLight,
		IncludeSystemCaches: true,
	}
}

// StaticProvider is a core.PolicyProvider that always resolves to a fixed
// snapshot, analogous to the teacher's DenyAll stub policy: a trivial,
// always-the-same-answer implementation good enough when no external
// policy document is wired in.
type StaticProvider struct {
	policy core.EffectivePolicy
}

// NewStaticProvider wraps a fixed EffectivePolicy snapshot.
func NewStaticProvider(p core.EffectivePolicy) *StaticProvider {
	return &StaticProvider{policy: p}
}

// Resolve returns the wrapped snapshot unchanged.
func (s *StaticProvider) Resolve(_ context.Context) (core.EffectivePolicy, error) {
	return s.policy, nil
}

// Merge layers override on top of base: any field override sets to a
// non-zero value wins, otherwise base's value is kept; the include flags are
// ORed, and non-empty override ExclusionGlobs are appended to base's. This is the
// field-wise analogue of the teacher's CompositePolicy combination — instead
// of ANDing/ORing allow decisions across policies, it ANDs/ORs configured
// fields across a base (engine default) and an override (team or user
// policy) layer.
func Merge(base, override core.EffectivePolicy) core.EffectivePolicy {
	merged := base

	if override.CleanupLevel != core.LevelLight {
		merged.CleanupLevel = override.CleanupLevel
	}
	merged.EnforceDryRun = base.EnforceDryRun || override.EnforceDryRun
	merged.IncludeSystemCaches = base.IncludeSystemCaches || override.IncludeSystemCaches
	merged.IncludeDeveloperCaches = base.IncludeDeveloperCaches || override.IncludeDeveloperCaches
	merged.IncludeBrowserCaches = base.IncludeBrowserCaches || override.IncludeBrowserCaches
	merged.IncludeLogs = base.IncludeLogs || override.IncludeLogs

	if len(override.ExclusionGlobs) > 0 {
		merged.ExclusionGlobs = append(append([]string(nil), base.ExclusionGlobs...), override.ExclusionGlobs...)
	}
	if override.AgeDays > 0 {
		merged.AgeDays = override.AgeDays
	}

	return merged
}

// Ensure StaticProvider implements core.PolicyProvider.
var _ core.PolicyProvider = (*StaticProvider)(nil)
