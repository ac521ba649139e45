package policy

import (
	"context"
	"testing"

	"github.com/kcenon/cleanupengine/internal/core"
)

func TestDefaultIsLightAndSystemCachesOnly(t *testing.T) {
	p := Default()
	if p.CleanupLevel != core.LevelLight {
		t.Errorf("CleanupLevel = %v, want Light", p.CleanupLevel)
	}
	if !p.IncludeSystemCaches {
		t.Error("expected system caches included by default")
	}
	if p.IncludeDeveloperCaches || p.IncludeBrowserCaches || p.IncludeLogs {
		t.Error("expected only system caches included by default")
	}
}

func TestStaticProviderResolvesFixedSnapshot(t *testing.T) {
	want := core.EffectivePolicy{CleanupLevel: core.LevelDeep, IncludeLogs: true}
	p := NewStaticProvider(want)

	got, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestMergeOverridesNonDefaultFields(t *testing.T) {
	base := Default()
	override := core.EffectivePolicy{
		CleanupLevel:  core.LevelNormal,
		IncludeLogs:   true,
		ExclusionGlobs: []string{"**/node_modules/**"},
		AgeDays:        14,
	}

	merged := Merge(base, override)
	if merged.CleanupLevel != core.LevelNormal {
		t.Errorf("CleanupLevel = %v, want Normal", merged.CleanupLevel)
	}
	if !merged.IncludeSystemCaches {
		t.Error("base's IncludeSystemCaches should survive the merge")
	}
	if !merged.IncludeLogs {
		t.Error("override's IncludeLogs should be honored")
	}
	if len(merged.ExclusionGlobs) != 1 || merged.ExclusionGlobs[0] != "**/node_modules/**" {
		t.Errorf("ExclusionGlobs = %v, want one override glob", merged.ExclusionGlobs)
	}
	if merged.AgeDays != 14 {
		t.Errorf("AgeDays = %d, want 14", merged.AgeDays)
	}
}

func TestMergeKeepsBaseLevelWhenOverrideIsLight(t *testing.T) {
	base := core.EffectivePolicy{CleanupLevel: core.LevelDeep}
	override := core.EffectivePolicy{CleanupLevel: core.LevelLight}

	merged := Merge(base, override)
	if merged.CleanupLevel != core.LevelDeep {
		t.Errorf("CleanupLevel = %v, want Deep (LevelLight override is indistinguishable from unset)", merged.CleanupLevel)
	}
}
