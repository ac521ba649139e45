package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kcenon/cleanupengine/internal/audit"
	"github.com/kcenon/cleanupengine/internal/classifier"
	"github.com/kcenon/cleanupengine/internal/config"
	"github.com/kcenon/cleanupengine/internal/core"
	"github.com/kcenon/cleanupengine/internal/executor"
	"github.com/kcenon/cleanupengine/internal/export"
	"github.com/kcenon/cleanupengine/internal/logger"
	"github.com/kcenon/cleanupengine/internal/metrics"
	"github.com/kcenon/cleanupengine/internal/policy"
	"github.com/kcenon/cleanupengine/internal/scanner"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "clean":
		os.Exit(runCleanCmd(os.Args[2:]))
	case "query":
		os.Exit(runQueryCmd(os.Args[2:]))
	case "stats":
		os.Exit(runStatsCmd(os.Args[2:]))
	case "verify":
		os.Exit(runVerifyCmd(os.Args[2:]))
	case "export":
		os.Exit(runExportCmd(os.Args[2:]))
	case "validate":
		os.Exit(runValidateCmd(os.Args[2:]))
	case "-version", "--version", "version":
		fmt.Println("cleanupengine", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: cleanupengine <command> [options]

Commands:
  clean       run a cleanup pass (§4.4)
  query       query the audit store
  stats       show audit store statistics
  verify      verify audit store integrity
  export      export audit events to a file
  validate    validate a configuration file

Run 'cleanupengine <command> -h' for command-specific options.
`)
}

// runCleanCmd implements the documented schedule-agent surface:
// clean --level {light|normal|deep|system} [--dry-run] [--non-interactive].
// Exit codes: 0 success, 1 partial (errors recorded), 2 usage error,
// 3 audit/infra failure.
func runCleanCmd(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	level := fs.String("level", "light", "cleanup level: light, normal, deep, system")
	dryRun := fs.Bool("dry-run", false, "account for space without deleting")
	nonInteractive := fs.Bool("non-interactive", false, "suppress prompts (accepted for schedule-agent compatibility)")
	configPath := fs.String("config", "", "path to YAML configuration file")
	extraPaths := fs.String("path", "", "comma-separated extra paths to include as custom targets")
	jsonOut := fs.Bool("json", false, "print the result summary as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cleanupengine clean --level {light|normal|deep|system} [--dry-run] [--non-interactive]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	_ = nonInteractive

	lvl, err := core.ParseCleanupLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return 2
	}

	log := buildLogger(cfg.Logging)
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		return 3
	}

	fromConfig, err := cfg.Policy.ToEffectivePolicy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	basePolicy := policy.Merge(policy.Default(), fromConfig)
	basePolicy.CleanupLevel = lvl

	store, err := openAuditStore(cfg.Execution.AuditDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open audit store: %v\n", err)
		return 3
	}
	if store != nil {
		defer store.Close()
	}

	cl := classifier.New()
	sc := scanner.New(cl, metrics.NewNoop(), log)
	sessions := audit.NewSessionManager(store)

	var req core.Request
	req.Level = lvl
	req.DryRun = *dryRun
	req.Trigger = core.TriggerManual
	req.IncludeSystemCaches = basePolicy.IncludeSystemCaches
	req.IncludeDeveloperCaches = basePolicy.IncludeDeveloperCaches
	req.IncludeBrowserCaches = basePolicy.IncludeBrowserCaches
	req.IncludeLogs = basePolicy.IncludeLogs
	if *extraPaths != "" {
		req.ExtraPaths = splitCSV(*extraPaths)
	}

	var aud core.Auditor
	if store != nil {
		aud = store
	}

	eng := executor.New(cl, sc, aud, sessions, metrics.NewNoop(), log, home)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Execution.Timeout)
	defer cancel()

	result, err := eng.Clean(ctx, req, basePolicy)
	if err != nil {
		if err == core.ErrAuditUnavailable {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 3
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		fmt.Println(result.FormattedSummary())
	}

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  failed: %s: %s\n", e.Path, e.Reason)
		}
		return 1
	}
	return 0
}

// runQueryCmd queries the audit store for log review.
func runQueryCmd(args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	dbPath := fs.String("db", "", "audit database path (required)")
	category := fs.String("category", "", "filter by category")
	action := fs.String("action", "", "filter by action (substring match)")
	target := fs.String("target", "", "filter by target path (substring match)")
	result := fs.String("result", "", "filter by result (success, failure, warning, skipped)")
	limit := fs.Int("limit", 100, "max records to return")
	jsonOut := fs.Bool("json", false, "output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cleanupengine query -db <path> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "error: -db is required\n")
		fs.Usage()
		return 2
	}

	store, err := audit.Open(audit.Config{Path: *dbPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	q := core.AuditQuery{
		Category:       core.EventCategory(*category),
		ActionContains: *action,
		TargetContains: *target,
		Result:         core.EventResult(*result),
		Limit:          *limit,
	}

	events, err := store.Query(context.Background(), q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: query failed: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(events)
		return 0
	}

	fmt.Printf("Found %d records:\n\n", len(events))
	for _, e := range events {
		fmt.Printf("[%s] %s %s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Severity, e.Action, e.Result)
		if e.Target != "" {
			fmt.Printf(" %s", e.Target)
		}
		fmt.Println()
	}
	return 0
}

// runStatsCmd shows audit store statistics.
func runStatsCmd(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	dbPath := fs.String("db", "", "audit database path (required)")
	jsonOut := fs.Bool("json", false, "output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cleanupengine stats -db <path>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "error: -db is required\n")
		fs.Usage()
		return 2
	}

	store, err := audit.Open(audit.Config{Path: *dbPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	stats, err := store.Statistics(context.Background(), core.AuditQuery{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: stats failed: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(stats)
		return 0
	}

	fmt.Println("Audit Store Statistics")
	fmt.Println("======================")
	fmt.Printf("Total events:      %d\n", stats.TotalCount)
	fmt.Printf("Total bytes freed: %s\n", core.FormatBytes(stats.TotalFreedBytes))
	if !stats.EarliestEvent.IsZero() {
		fmt.Printf("Earliest event:    %s\n", stats.EarliestEvent.Format("2006-01-02 15:04:05"))
	}
	if !stats.LatestEvent.IsZero() {
		fmt.Printf("Latest event:      %s\n", stats.LatestEvent.Format("2006-01-02 15:04:05"))
	}
	return 0
}

// runVerifyCmd verifies audit store tamper-evidence checksums.
func runVerifyCmd(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	dbPath := fs.String("db", "", "audit database path (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cleanupengine verify -db <path>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "error: -db is required\n")
		fs.Usage()
		return 2
	}

	store, err := audit.Open(audit.Config{Path: *dbPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	tampered, err := store.VerifyIntegrity(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: verification failed: %v\n", err)
		return 1
	}

	if len(tampered) == 0 {
		fmt.Println("PASS: all records verified, no tampering detected.")
		return 0
	}
	fmt.Printf("FAIL: %d records have invalid checksums (possible tampering):\n", len(tampered))
	for _, id := range tampered {
		fmt.Printf("  - event ID: %s\n", id)
	}
	return 1
}

// runExportCmd exports audit events to a file in JSON, JSONL, or CSV.
func runExportCmd(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dbPath := fs.String("db", "", "audit database path (required)")
	out := fs.String("out", "", "output file path (required)")
	format := fs.String("format", "json", "export format: json, jsonl, csv")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cleanupengine export -db <path> -out <path> [-format json|jsonl|csv]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dbPath == "" || *out == "" {
		fmt.Fprintf(os.Stderr, "error: -db and -out are required\n")
		fs.Usage()
		return 2
	}

	store, err := audit.Open(audit.Config{Path: *dbPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	events, err := store.Query(context.Background(), core.AuditQuery{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: query failed: %v\n", err)
		return 1
	}

	hostname, _ := os.Hostname()
	res, err := export.Export(*out, export.Format(*format), events, hostname, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: export failed: %v\n", err)
		return 1
	}

	fmt.Printf("Exported %d events to %s (%s)\n", res.EventCount, res.Path, res.Format)
	return 0
}

// runValidateCmd validates a configuration file without running cleanup.
func runValidateCmd(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to configuration file (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cleanupengine validate -config <path>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "error: -config is required\n")
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: failed to load config: %v\n", err)
		return 1
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v", err)
		return 1
	}

	fmt.Printf("OK: configuration file %q is valid\n", *configFile)
	fmt.Printf("  Default level: %s\n", cfg.Policy.DefaultLevel)
	fmt.Printf("  Audit DB path: %s\n", cfg.Execution.AuditDBPath)
	fmt.Printf("  Retention:     %d days\n", cfg.Execution.RetentionDays)
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file: %w", err)
		}
	}
	return cfg, nil
}

func openAuditStore(path string) (*audit.Store, error) {
	if path == "" {
		return nil, nil
	}
	return audit.Open(audit.Config{Path: path})
}

func buildLogger(cfg config.LoggingConfig) logger.Logger {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		level = logger.LevelInfo
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			output = os.Stderr
		} else {
			output = f
		}
	}

	base := logger.New(level, output)

	if cfg.Loki != nil && cfg.Loki.Enabled {
		return logger.NewLokiLogger(base, logger.LokiConfig{
			URL:       cfg.Loki.URL,
			BatchSize: cfg.Loki.BatchSize,
			BatchWait: cfg.Loki.BatchWait,
			Labels:    cfg.Loki.Labels,
			TenantID:  cfg.Loki.TenantID,
		})
	}

	return base
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
