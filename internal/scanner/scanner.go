// Package scanner implements the parallel directory walker (C3 in the
// component table): it walks a root, tags every entry with a Category via
// the classifier, and aggregates size/count totals plus bounded Top-N lists
// by size and by age.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kcenon/cleanupengine/internal/core"
	"github.com/kcenon/cleanupengine/internal/logger"
)

// maxConcurrentDirs bounds how many directories are read in parallel. Set
// low enough that a scan does not starve the executor's own I/O.
const maxConcurrentDirs = 16

// Engine walks directory trees concurrently. The zero value is not usable;
// construct with New.
type Engine struct {
	classifier core.Classifier
	metrics    core.Metrics
	log        logger.Logger
}

// New creates a scanner Engine. classifier is required; metrics and log may
// be nil, in which case no-op implementations are used.
func New(classifier core.Classifier, m core.Metrics, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{classifier: classifier, metrics: m, log: log}
}

// Scan walks root and returns its ScanResult. It never deletes or mutates
// anything it visits. Concurrency is bounded by a semaphore shared across
// the whole walk so sibling directories drain in parallel while the scan as
// a whole stays within maxConcurrentDirs in-flight directory reads — the
// work-stealing property: an idle worker always has more queued directories
// to pick up rather than sitting blocked on one slow subtree.
func (e *Engine) Scan(ctx context.Context, root string, cfg core.ScanConfig) (core.ScanResult, error) {
	start := time.Now()
	root = filepath.Clean(root)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	rootInfo, err := os.Lstat(root)
	if err != nil {
		if os.IsNotExist(err) {
			// §4.3 failure semantics / §8 boundary behavior: a non-existent
			// root is a best-effort empty result, not an error.
			return core.ScanResult{Root: root, Categories: map[core.Category]core.CategoryAggregate{}}, nil
		}
		return core.ScanResult{}, err
	}
	rootDev, hasDev := deviceID(root, rootInfo)

	agg := newAggregator(cfg)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrentDirs)

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			return e.walkDir(gctx, dir, depth, cfg, rootDev, hasDev, agg, &walk)
		})
	}
	walk(root, 0)

	if err := g.Wait(); err != nil && err != context.Canceled {
		e.log.Warn("scan error", logger.F("root", root), logger.F("error", err.Error()))
	}

	if e.metrics != nil {
		e.metrics.ObserveScanDuration(root, time.Since(start))
	}

	return agg.result(root), nil
}

// walkDir reads one directory's entries, recording files into agg directly
// and recursing into subdirectories via spawn (which acquires the shared
// semaphore, so fan-out is bounded regardless of tree depth or width).
func (e *Engine) walkDir(ctx context.Context, dir string, depth int, cfg core.ScanConfig, rootDev uint64, hasDev bool, agg *aggregator, spawn *func(string, int)) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		agg.recordError()
		return nil //nolint:nilerr // per-directory read errors are tallied, not fatal to the whole scan
	}

	if e.metrics != nil {
		e.metrics.IncDirsScanned(dir)
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !cfg.IncludeHidden && len(entry.Name()) > 0 && entry.Name()[0] == '.' {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			agg.recordError()
			continue
		}

		if entry.IsDir() {
			if !cfg.FollowSymlinks && info.Mode()&os.ModeSymlink != 0 {
				continue
			}
			if !cfg.CrossMounts && hasDev {
				if dev, ok := deviceID(path, info); ok && dev != rootDev {
					continue
				}
			}
			if cfg.MaxDepth > 0 && depth+1 >= cfg.MaxDepth {
				agg.recordDir()
				continue
			}
			agg.recordDir()
			(*spawn)(path, depth+1)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 && !cfg.FollowSymlinks {
			continue
		}
		if info.Size() < cfg.MinSize {
			continue
		}

		cat := core.CategoryCustom
		if e.classifier != nil {
			cat = e.classifier.Category(path)
		}

		item := core.ScanItem{
			Path:       path,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			Category:   cat,
			IsDir:      false,
		}
		agg.recordFile(item)
		if e.metrics != nil {
			e.metrics.IncFilesScanned(dir)
		}
	}
	return nil
}

// aggregator is the concurrency-safe accumulator every walkDir goroutine
// writes into.
type aggregator struct {
	mu         sync.Mutex
	totalSize  int64
	fileCount  int64
	dirCount   int64
	errorCount int64
	categories map[core.Category]core.CategoryAggregate
	top        *topN
}

func newAggregator(cfg core.ScanConfig) *aggregator {
	return &aggregator{
		categories: make(map[core.Category]core.CategoryAggregate),
		top:        newTopN(cfg.TopN),
	}
}

func (a *aggregator) recordDir() {
	a.mu.Lock()
	a.dirCount++
	a.mu.Unlock()
}

func (a *aggregator) recordError() {
	a.mu.Lock()
	a.errorCount++
	a.mu.Unlock()
}

func (a *aggregator) recordFile(item core.ScanItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fileCount++
	a.totalSize += item.Size
	ca := a.categories[item.Category]
	ca.Size += item.Size
	ca.Count++
	a.categories[item.Category] = ca
	a.top.Offer(item)
}

func (a *aggregator) result(root string) core.ScanResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return core.ScanResult{
		Root:       root,
		TotalSize:  a.totalSize,
		FileCount:  a.fileCount,
		DirCount:   a.dirCount,
		ErrorCount: a.errorCount,
		Categories: a.categories,
		TopBySize:  a.top.BySize(),
		TopByAge:   a.top.ByAge(),
	}
}

// Ensure Engine implements core.Scanner.
var _ core.Scanner = (*Engine)(nil)
