// Package executor implements the request lifecycle engine (C4 in the
// component table): target-set expansion, per-target classification,
// dry-run accounting or recursive deletion, and audit correlation.
package executor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kcenon/cleanupengine/internal/classifier"
	"github.com/kcenon/cleanupengine/internal/core"
	"github.com/kcenon/cleanupengine/internal/logger"
	"github.com/kcenon/cleanupengine/internal/retry"
)

// maxConcurrentTargets bounds how many targets are measured/deleted at
// once, mirroring the scanner's bounded fan-out (internal/scanner/scanner.go).
const maxConcurrentTargets = 8

// Engine runs one Request end to end against a Classifier, an optional
// Scanner (used to size dry-run targets), an Auditor, and a SessionManager.
type Engine struct {
	classifier core.Classifier
	scanner    core.Scanner
	auditor    core.Auditor
	sessions   core.SessionManager
	metrics    core.Metrics
	log        logger.Logger
	home       string
	now        func() time.Time
	fsPolicy   retry.Policy
}

// New creates an Engine. scanner may be nil (dry-run sizing then falls
// back to a plain directory walk); metrics and log default to no-ops.
func New(cl core.Classifier, sc core.Scanner, aud core.Auditor, sessions core.SessionManager, m core.Metrics, log logger.Logger, home string) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		classifier: cl,
		scanner:    sc,
		auditor:    aud,
		sessions:   sessions,
		metrics:    m,
		log:        log,
		home:       home,
		now:        time.Now,
		fsPolicy:   retry.DefaultFilesystemPolicy(),
	}
}

// Clean runs one Request to completion (§4.4).
func (e *Engine) Clean(ctx context.Context, req core.Request, policy core.EffectivePolicy) (core.CleanResult, error) {
	start := e.now()
	dryRun := req.DryRun || policy.EnforceDryRun

	var sessionID string
	if e.sessions != nil && req.Trigger != core.TriggerManual {
		sid, err := e.sessions.StartSession(ctx, req.Trigger)
		if err != nil {
			e.log.Warn("failed to open audit session", logger.F("error", err.Error()))
		} else {
			sessionID = sid
		}
	}

	targets, excluded := e.buildTargetSet(req, policy)
	if len(targets) == 0 {
		return core.CleanResult{}, errors.New("empty target set after policy exclusion filtering")
	}

	agg := newResultAggregator()
	for _, t := range excluded {
		e.emit(ctx, sessionID, t, "skip", core.ResultSkipped, core.SeverityInfo, 0, core.ErrPolicyExcluded, agg)
	}
	gate := newTargetGate()
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrentTargets)

	for _, t := range targets {
		t := t
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			gate.acquire(t.Path)
			defer gate.release(t.Path)
			e.runTarget(gctx, t, policy, dryRun, sessionID, agg)
			return nil
		})
	}
	_ = g.Wait()

	result := agg.result()
	result.Duration = e.now().Sub(start)
	select {
	case <-ctx.Done():
		result.Warning = true
	default:
	}

	if e.metrics != nil {
		if dryRun {
			e.metrics.SetBytesEligible(int64(result.FreedBytes))
			e.metrics.SetFilesEligible(int(result.FilesRemoved))
		}
	}

	endResult := core.ResultSuccess
	switch {
	case result.Warning:
		endResult = core.ResultWarning
	case len(result.Errors) > 0:
		endResult = core.ResultWarning
	}
	if sessionID != "" && e.sessions != nil {
		if err := e.sessions.EndSession(ctx, sessionID, endResult); err != nil {
			e.log.Warn("failed to close audit session", logger.F("error", err.Error()))
		}
	}

	if agg.auditUnavailable() {
		return result, core.ErrAuditUnavailable
	}
	return result, nil
}

// buildTargetSet expands a Request into category-tagged targets (§4.4 step
// 2), then separates out any target an exclusion glob matches so the caller
// can record each as a silent Skipped/PolicyExcluded event (§7).
func (e *Engine) buildTargetSet(req core.Request, policy core.EffectivePolicy) (targets, excluded []core.Target) {
	roots := classifier.StandardRoots(e.home)

	var candidates []core.Target
	add := func(cat core.Category) {
		for _, p := range roots[cat] {
			candidates = append(candidates, core.Target{Path: p, Category: cat, Intent: "standard"})
		}
	}
	if req.IncludeSystemCaches {
		add(core.CategorySystemCache)
	}
	if req.IncludeDeveloperCaches {
		add(core.CategoryDeveloperCache)
	}
	if req.IncludeBrowserCaches {
		add(core.CategoryBrowserCache)
	}
	if req.IncludeLogs {
		add(core.CategoryLogs)
	}
	for _, p := range req.ExtraPaths {
		candidates = append(candidates, core.Target{Path: p, Category: core.CategoryCustom, Intent: "extra"})
	}

	for _, t := range candidates {
		if classifier.ExclusionMatches(filepath.Clean(t.Path), policy.ExclusionGlobs) {
			excluded = append(excluded, t)
			continue
		}
		targets = append(targets, t)
	}
	return targets, excluded
}

// runTarget drives one Target through the state machine: Pending ->
// Classified -> (Skipped | Measuring -> (DryRunAccounted | Deleting ->
// (Deleted | Failed))). A target never re-enters Classified.
func (e *Engine) runTarget(ctx context.Context, t core.Target, policy core.EffectivePolicy, dryRun bool, sessionID string, agg *resultAggregator) {
	clean := filepath.Clean(t.Path)
	grade := e.classifier.Grade(ctx, t.Path, policy)
	if e.metrics != nil {
		e.metrics.IncGradeDecision(grade, t.Category)
	}

	// ProtectedSet membership must block deletion regardless of level —
	// LevelSystem's ceiling is GradeDanger too, so the ceiling check alone
	// would authorize a protected path at LevelSystem (§3, §7 ProtectedPath,
	// §8 invariant 1).
	if classifier.MatchesProtected(clean, classifier.ExpandedProtectedSet(e.home)) {
		e.emit(ctx, sessionID, t, "skip", core.ResultSkipped, core.SeverityWarning, 0, core.ErrProtectedPath, agg)
		return
	}

	if !policy.CleanupLevel.Authorizes(grade) {
		e.emit(ctx, sessionID, t, "skip", core.ResultSkipped, core.SeverityInfo, 0, errors.New("grade exceeds level ceiling"), agg)
		return
	}

	if _, statErr := os.Lstat(t.Path); statErr != nil && errors.Is(statErr, fs.ErrNotExist) {
		e.emit(ctx, sessionID, t, "skip", core.ResultSkipped, core.SeverityInfo, 0, errors.New("not present"), agg)
		return
	}

	if dryRun {
		bytes, files, dirs, err := e.measureTarget(ctx, t.Path)
		if err != nil {
			agg.addError(t.Path, err.Error())
			e.emit(ctx, sessionID, t, "measure", core.ResultFailure, core.SeverityError, 0, err, agg)
			return
		}
		agg.addCounts(bytes, files, dirs)
		e.emit(ctx, sessionID, t, "would_delete", core.ResultSuccess, core.SeverityInfo, bytes, nil, agg)
		return
	}

	files, dirs, bytes, err := e.deleteTarget(ctx, t.Path, t.Path)
	if err != nil {
		agg.addCounts(bytes, files, dirs)
		agg.addError(t.Path, retry.Classify(err).Error())
		if e.metrics != nil {
			e.metrics.IncDeleteErrors(retry.Classify(err).Error())
		}
		e.emit(ctx, sessionID, t, "delete", core.ResultFailure, core.SeverityError, bytes, err, agg)
		return
	}

	agg.addCounts(bytes, files, dirs)
	e.emit(ctx, sessionID, t, "delete", core.ResultSuccess, core.SeverityInfo, bytes, nil, agg)
}

// measureTarget sizes a target without deleting anything, for dry-run
// accounting (§4.4 step 3b).
func (e *Engine) measureTarget(ctx context.Context, path string) (bytes int64, files, dirs uint64, err error) {
	info, statErr := os.Lstat(path)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return 0, 0, 0, nil
		}
		return 0, 0, 0, statErr
	}
	if !info.IsDir() {
		return info.Size(), 1, 0, nil
	}
	if e.scanner != nil {
		res, scanErr := e.scanner.Scan(ctx, path, core.ScanConfig{IncludeHidden: true})
		if scanErr != nil {
			return 0, 0, 0, scanErr
		}
		return res.TotalSize, uint64(res.FileCount), uint64(res.DirCount) + 1, nil
	}

	var size int64
	var fileCount, dirCount uint64
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			dirCount++
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		fileCount++
		return nil
	})
	if walkErr != nil {
		return 0, 0, 0, walkErr
	}
	return size, fileCount, dirCount, nil
}

// deleteTarget recursively removes path bottom-up under the filesystem
// retry policy (§4.2), counting files and directories separately.
// rootLabel is the original target path, used only as the metrics label.
func (e *Engine) deleteTarget(ctx context.Context, rootLabel, path string) (files, dirs uint64, bytes int64, err error) {
	info, statErr := os.Lstat(path)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return 0, 0, 0, nil
		}
		return 0, 0, 0, statErr
	}

	if !info.IsDir() {
		size := info.Size()
		removeErr := retry.Do(ctx, e.fsPolicy, "remove_file", func(context.Context) error {
			return os.Remove(path)
		})
		if removeErr != nil {
			if errors.Is(removeErr, fs.ErrNotExist) {
				return 0, 0, 0, nil
			}
			return 0, 0, 0, removeErr
		}
		if e.metrics != nil {
			e.metrics.IncFilesDeleted(rootLabel)
			e.metrics.AddBytesFreed(size)
		}
		return 1, 0, size, nil
	}

	entries, readErr := os.ReadDir(path)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return 0, 0, 0, nil
		}
		return 0, 0, 0, readErr
	}

	var totalFiles, totalDirs uint64
	var totalBytes int64
	var firstErr error
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		f, d, b, cerr := e.deleteTarget(ctx, rootLabel, child)
		totalFiles += f
		totalDirs += d
		totalBytes += b
		if cerr != nil && firstErr == nil {
			firstErr = cerr
		}
	}
	if firstErr != nil {
		return totalFiles, totalDirs, totalBytes, firstErr
	}

	removeErr := retry.Do(ctx, e.fsPolicy, "remove_dir", func(context.Context) error {
		return os.Remove(path)
	})
	if removeErr != nil {
		if errors.Is(removeErr, fs.ErrNotExist) {
			return totalFiles, totalDirs, totalBytes, nil
		}
		return totalFiles, totalDirs, totalBytes, removeErr
	}
	totalDirs++
	if e.metrics != nil {
		e.metrics.IncDirsDeleted(rootLabel)
	}
	return totalFiles, totalDirs, totalBytes, nil
}

// emit records one audit Event for a target's terminal (or skip) outcome.
// An insert failure marks the aggregator's audit-unavailable flag (§4.4
// failure semantics: "fails only if ... the audit store is unreachable")
// but does not halt processing of other targets.
func (e *Engine) emit(ctx context.Context, sessionID string, t core.Target, action string, result core.EventResult, sev core.Severity, bytes int64, cause error, agg *resultAggregator) {
	if e.auditor == nil {
		return
	}
	metadata := map[string]string{
		"category":    string(t.Category),
		"freed_bytes": strconv.FormatInt(bytes, 10),
	}
	if cause != nil {
		metadata["error"] = cause.Error()
	}

	evt := core.Event{
		Timestamp: e.now().UTC(),
		Category:  core.EventCleanup,
		Action:    action,
		Actor:     "engine",
		Target:    t.Path,
		Result:    result,
		Severity:  sev,
		Metadata:  metadata,
		SessionID: sessionID,
	}
	if err := e.auditor.Insert(ctx, evt); err != nil {
		e.log.Error("audit insert failed", logger.F("target", t.Path), logger.F("error", err.Error()))
		agg.markAuditFailed()
	}
}

// resultAggregator merges per-target outcomes under a mutex; runTarget
// calls it concurrently across targets.
type resultAggregator struct {
	mu           sync.Mutex
	freedBytes   uint64
	filesRemoved uint64
	dirsRemoved  uint64
	errs         []core.ErrorRecord
	auditFailed  bool
}

func newResultAggregator() *resultAggregator {
	return &resultAggregator{}
}

func (a *resultAggregator) addCounts(bytes int64, files, dirs uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bytes > 0 {
		a.freedBytes += uint64(bytes)
	}
	a.filesRemoved += files
	a.dirsRemoved += dirs
}

func (a *resultAggregator) addError(path, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, core.ErrorRecord{Path: path, Reason: reason})
}

func (a *resultAggregator) markAuditFailed() {
	a.mu.Lock()
	a.auditFailed = true
	a.mu.Unlock()
}

func (a *resultAggregator) auditUnavailable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.auditFailed
}

func (a *resultAggregator) result() core.CleanResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return core.CleanResult{
		FreedBytes:         a.freedBytes,
		FilesRemoved:       a.filesRemoved,
		DirectoriesRemoved: a.dirsRemoved,
		Errors:             append([]core.ErrorRecord(nil), a.errs...),
	}
}

// targetGate enforces §4.4's ordering constraint: two targets where one
// path is a prefix of the other never run concurrently.
type targetGate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	active map[string]struct{}
}

func newTargetGate() *targetGate {
	g := &targetGate{active: make(map[string]struct{})}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *targetGate) acquire(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.conflictsLocked(path) {
		g.cond.Wait()
	}
	g.active[path] = struct{}{}
}

func (g *targetGate) release(path string) {
	g.mu.Lock()
	delete(g.active, path)
	g.mu.Unlock()
	g.cond.Broadcast()
}

func (g *targetGate) conflictsLocked(path string) bool {
	for p := range g.active {
		if p == path || strings.HasPrefix(p, path+string(filepath.Separator)) || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Ensure Engine implements core.Executor.
var _ core.Executor = (*Engine)(nil)
