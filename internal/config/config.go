// Package config loads the engine's local operating parameters (scan
// defaults, built-in policy defaults, audit store path/retention, logging)
// from YAML. It never resolves a team-policy document — that external
// ingestion is the caller's core.PolicyProvider's job (§6); this package
// only seeds the core.EffectivePolicy a caller may override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kcenon/cleanupengine/internal/core"
)

// Config is the complete local configuration for the cleanup engine.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Scan      ScanConfig      `yaml:"scan" json:"scan"`
	Policy    PolicyConfig    `yaml:"policy" json:"policy"`
	Execution ExecutionConfig `yaml:"execution" json:"execution"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ScanConfig configures the scanner's default walk parameters (§4.3).
type ScanConfig struct {
	MaxDepth       int   `yaml:"max_depth" json:"max_depth"` // 0 = unlimited
	MinSizeBytes   int64 `yaml:"min_size_bytes" json:"min_size_bytes"`
	IncludeHidden  bool  `yaml:"include_hidden" json:"include_hidden"`
	FollowSymlinks bool  `yaml:"follow_symlinks" json:"follow_symlinks"`
	CrossMounts    bool  `yaml:"cross_mounts" json:"cross_mounts"`
	TopN           int   `yaml:"top_n" json:"top_n"` // 0 = default of 100
}

// ToScanConfig converts to the core.ScanConfig the Scanner consumes.
func (s ScanConfig) ToScanConfig() core.ScanConfig {
	return core.ScanConfig{
		MinSize:        s.MinSizeBytes,
		IncludeHidden:  s.IncludeHidden,
		MaxDepth:       s.MaxDepth,
		FollowSymlinks: s.FollowSymlinks,
		CrossMounts:    s.CrossMounts,
		TopN:           s.TopN,
	}
}

// PolicyConfig seeds the engine's built-in EffectivePolicy (§4.8). A caller
// wiring in a core.PolicyProvider layers its result on top via
// policy.Merge rather than replacing this outright.
type PolicyConfig struct {
	DefaultLevel           string   `yaml:"default_level" json:"default_level"` // "light", "normal", "deep", "system"
	EnforceDryRun          bool     `yaml:"enforce_dry_run" json:"enforce_dry_run"`
	IncludeSystemCaches    bool     `yaml:"include_system_caches" json:"include_system_caches"`
	IncludeDeveloperCaches bool     `yaml:"include_developer_caches" json:"include_developer_caches"`
	IncludeBrowserCaches   bool     `yaml:"include_browser_caches" json:"include_browser_caches"`
	IncludeLogs            bool     `yaml:"include_logs" json:"include_logs"`
	ExclusionGlobs         []string `yaml:"exclusion_globs" json:"exclusion_globs"`
	AgeDays                uint16   `yaml:"age_days" json:"age_days"` // 0 = classifier default (7)
}

// ToEffectivePolicy parses DefaultLevel and assembles a core.EffectivePolicy.
func (p PolicyConfig) ToEffectivePolicy() (core.EffectivePolicy, error) {
	level := core.LevelLight
	if p.DefaultLevel != "" {
		parsed, err := core.ParseCleanupLevel(p.DefaultLevel)
		if err != nil {
			return core.EffectivePolicy{}, err
		}
		level = parsed
	}
	return core.EffectivePolicy{
		CleanupLevel:           level,
		EnforceDryRun:          p.EnforceDryRun,
		IncludeSystemCaches:    p.IncludeSystemCaches,
		IncludeDeveloperCaches: p.IncludeDeveloperCaches,
		IncludeBrowserCaches:   p.IncludeBrowserCaches,
		IncludeLogs:            p.IncludeLogs,
		ExclusionGlobs:         p.ExclusionGlobs,
		AgeDays:                p.AgeDays,
	}, nil
}

// ExecutionConfig configures the audit store and retention (§4.6).
type ExecutionConfig struct {
	AuditDBPath   string        `yaml:"audit_db_path" json:"audit_db_path"`
	RetentionDays int           `yaml:"retention_days" json:"retention_days"` // 0 = audit store default (365)
	AutoVacuum    bool          `yaml:"auto_vacuum" json:"auto_vacuum"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string      `yaml:"level" json:"level"`   // "debug", "info", "warn", "error"
	Format string      `yaml:"format" json:"format"` // "json" or "text"
	Output string      `yaml:"output" json:"output"` // "stderr", "stdout", or file path
	Loki   *LokiConfig `yaml:"loki,omitempty" json:"loki,omitempty"`
}

// LokiConfig configures Loki log shipping.
type LokiConfig struct {
	Enabled   bool              `yaml:"enabled" json:"enabled"`
	URL       string            `yaml:"url" json:"url"`
	BatchSize int               `yaml:"batch_size" json:"batch_size"`
	BatchWait time.Duration     `yaml:"batch_wait" json:"batch_wait"`
	Labels    map[string]string `yaml:"labels" json:"labels"`
	TenantID  string            `yaml:"tenant_id" json:"tenant_id"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Scan: ScanConfig{
			MaxDepth:       0,
			IncludeHidden:  false,
			FollowSymlinks: false,
			CrossMounts:    false,
			TopN:           100,
		},
		Policy: PolicyConfig{
			DefaultLevel:        "light",
			IncludeSystemCaches: true,
			ExclusionGlobs:      []string{},
		},
		Execution: ExecutionConfig{
			AuditDBPath:   "",
			RetentionDays: 365,
			AutoVacuum:    true,
			Timeout:       30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
			Loki: &LokiConfig{
				Enabled:   false,
				URL:       "http://localhost:3100",
				BatchSize: 100,
				BatchWait: 5 * time.Second,
				Labels: map[string]string{
					"service": "cleanupengine",
				},
			},
		},
	}
}

// Load reads a config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads config from path if it exists, otherwise returns defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	return Load(path)
}

// FindConfigFile searches for a config file in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"cleanupengine.yaml",
		"cleanupengine.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "cleanupengine", "config.yaml"),
		"/etc/cleanupengine/config.yaml",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
