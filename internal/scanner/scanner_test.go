package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kcenon/cleanupengine/internal/core"
)

type stubClassifier struct{}

func (stubClassifier) Grade(_ context.Context, _ string, _ core.EffectivePolicy) core.SafetyGrade {
	return core.GradeSafe
}

func (stubClassifier) Category(path string) core.Category {
	if filepath.Base(filepath.Dir(path)) == "Caches" {
		return core.CategorySystemCache
	}
	return core.CategoryCustom
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanAggregatesSizeAndCount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Caches", "a.db"), 100)
	writeFile(t, filepath.Join(dir, "Caches", "b.db"), 200)
	writeFile(t, filepath.Join(dir, "Documents", "c.txt"), 50)

	e := New(stubClassifier{}, nil, nil)
	res, err := e.Scan(context.Background(), dir, core.ScanConfig{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if res.FileCount != 3 {
		t.Errorf("FileCount = %d, want 3", res.FileCount)
	}
	if res.TotalSize != 350 {
		t.Errorf("TotalSize = %d, want 350", res.TotalSize)
	}
	if agg := res.Categories[core.CategorySystemCache]; agg.Size != 300 || agg.Count != 2 {
		t.Errorf("CategorySystemCache aggregate = %+v, want {300 2}", agg)
	}
}

func TestScanRespectsMinSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "small.txt"), 10)
	writeFile(t, filepath.Join(dir, "big.txt"), 1000)

	e := New(stubClassifier{}, nil, nil)
	res, err := e.Scan(context.Background(), dir, core.ScanConfig{MinSize: 100})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (only files >= MinSize)", res.FileCount)
	}
}

func TestScanSkipsHiddenByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden"), 10)
	writeFile(t, filepath.Join(dir, "visible.txt"), 10)

	e := New(stubClassifier{}, nil, nil)
	res, err := e.Scan(context.Background(), dir, core.ScanConfig{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (hidden file excluded)", res.FileCount)
	}

	res2, err := e.Scan(context.Background(), dir, core.ScanConfig{IncludeHidden: true})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res2.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2 with IncludeHidden", res2.FileCount)
	}
}

func TestScanTopNBySizeDescending(t *testing.T) {
	dir := t.TempDir()
	for i, size := range []int{10, 500, 100, 50, 900} {
		writeFile(t, filepath.Join(dir, "f"+string(rune('0'+i))+".bin"), size)
	}

	e := New(stubClassifier{}, nil, nil)
	res, err := e.Scan(context.Background(), dir, core.ScanConfig{TopN: 3})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(res.TopBySize) != 3 {
		t.Fatalf("TopBySize has %d items, want 3", len(res.TopBySize))
	}
	for i := 1; i < len(res.TopBySize); i++ {
		if res.TopBySize[i-1].Size < res.TopBySize[i].Size {
			t.Fatalf("TopBySize not descending: %+v", res.TopBySize)
		}
	}
	if res.TopBySize[0].Size != 900 {
		t.Errorf("largest item size = %d, want 900", res.TopBySize[0].Size)
	}
}

func TestScanNonexistentRootReturnsZeroResult(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	e := New(stubClassifier{}, nil, nil)
	res, err := e.Scan(context.Background(), root, core.ScanConfig{})
	if err != nil {
		t.Fatalf("Scan() error = %v, want nil (§4.3: non-existent root is a best-effort empty result)", err)
	}
	if res.TotalSize != 0 || res.FileCount != 0 || res.DirCount != 0 || res.ErrorCount != 0 {
		t.Errorf("expected zero-valued ScanResult, got %+v", res)
	}
	if len(res.TopBySize) != 0 || len(res.TopByAge) != 0 {
		t.Errorf("expected empty top-N lists, got %+v / %+v", res.TopBySize, res.TopByAge)
	}
}

func TestScanCancellationStopsEarly(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, filepath.Join(dir, "sub", "f"+string(rune('a'+i%26))+string(rune('0'+i/26))+".bin"), 10)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(stubClassifier{}, nil, nil)
	res, err := e.Scan(ctx, dir, core.ScanConfig{})
	if err != nil {
		t.Fatalf("Scan() error = %v, want nil (cancellation surfaces as a partial result)", err)
	}
	if res.FileCount == 50 {
		t.Error("expected cancellation to short-circuit before visiting every file")
	}
}
