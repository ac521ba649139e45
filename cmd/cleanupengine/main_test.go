package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	got := splitCSV("/a,/b,/c")
	want := []string{"/a", "/b", "/c"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitCSV()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitCSVEmpty(t *testing.T) {
	if got := splitCSV(""); len(got) != 0 {
		t.Errorf("splitCSV(\"\") = %v, want empty", got)
	}
}

func TestLoadConfigDefaultsWhenNoPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\") error = %v", err)
	}
	if cfg.Policy.DefaultLevel != "light" {
		t.Errorf("DefaultLevel = %q, want light", cfg.Policy.DefaultLevel)
	}
}

func TestValidateCmdRejectsMissingConfigFlag(t *testing.T) {
	if code := runValidateCmd(nil); code != 2 {
		t.Errorf("runValidateCmd(nil) = %d, want 2", code)
	}
}

func TestValidateCmdAcceptsValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := runValidateCmd([]string{"-config", path}); code != 0 {
		t.Errorf("runValidateCmd() = %d, want 0", code)
	}
}

func TestValidateCmdRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "version: 1\npolicy:\n  default_level: catastrophic\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := runValidateCmd([]string{"-config", path}); code != 1 {
		t.Errorf("runValidateCmd() = %d, want 1", code)
	}
}

func TestCleanCmdRejectsBadLevel(t *testing.T) {
	if code := runCleanCmd([]string{"-level", "catastrophic"}); code != 2 {
		t.Errorf("runCleanCmd() = %d, want 2", code)
	}
}

func TestCleanCmdDryRunOnExtraPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "stale_cache")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "a.bin"), make([]byte, 32), 0o644); err != nil {
		t.Fatal(err)
	}

	code := runCleanCmd([]string{"-level", "normal", "-dry-run", "-path", target})
	if code != 0 {
		t.Errorf("runCleanCmd() = %d, want 0", code)
	}
	if _, err := os.Stat(filepath.Join(target, "a.bin")); err != nil {
		t.Errorf("dry run must not delete files: %v", err)
	}
}

func TestQueryCmdRejectsMissingDBFlag(t *testing.T) {
	if code := runQueryCmd(nil); code != 2 {
		t.Errorf("runQueryCmd(nil) = %d, want 2", code)
	}
}

func TestStatsCmdRejectsMissingDBFlag(t *testing.T) {
	if code := runStatsCmd(nil); code != 2 {
		t.Errorf("runStatsCmd(nil) = %d, want 2", code)
	}
}

func TestExportCmdRejectsMissingFlags(t *testing.T) {
	if code := runExportCmd(nil); code != 2 {
		t.Errorf("runExportCmd(nil) = %d, want 2", code)
	}
}
