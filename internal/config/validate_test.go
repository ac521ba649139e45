package config

import (
	"strings"
	"testing"
)

func TestValidateScan_NegativeMaxDepth(t *testing.T) {
	errs := ValidateScan(ScanConfig{MaxDepth: -1})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for negative max_depth, got: %d", len(errs))
	}
	if errs[0].Field != "scan.max_depth" {
		t.Errorf("expected field scan.max_depth, got: %s", errs[0].Field)
	}
}

func TestValidateScan_NegativeMinSizeBytes(t *testing.T) {
	errs := ValidateScan(ScanConfig{MinSizeBytes: -5})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for negative min_size_bytes, got: %d", len(errs))
	}
	if errs[0].Field != "scan.min_size_bytes" {
		t.Errorf("expected field scan.min_size_bytes, got: %s", errs[0].Field)
	}
}

func TestValidateScan_NegativeTopN(t *testing.T) {
	errs := ValidateScan(ScanConfig{TopN: -1})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for negative top_n, got: %d", len(errs))
	}
}

func TestValidateScan_ValidDefaults(t *testing.T) {
	errs := ValidateScan(ScanConfig{MaxDepth: 0, MinSizeBytes: 0, TopN: 100})
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got: %v", errs)
	}
}

func TestValidatePolicy_InvalidDefaultLevel(t *testing.T) {
	pol := PolicyConfig{DefaultLevel: "catastrophic"}
	errs := ValidatePolicy(pol)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for invalid default_level, got: %d", len(errs))
	}
	if errs[0].Field != "policy.default_level" {
		t.Errorf("expected field policy.default_level, got: %s", errs[0].Field)
	}
}

func TestValidatePolicy_ValidLevels(t *testing.T) {
	for _, level := range []string{"light", "normal", "deep", "system"} {
		pol := PolicyConfig{DefaultLevel: level}
		errs := ValidatePolicy(pol)
		if len(errs) > 0 {
			t.Fatalf("expected no errors for level %q, got: %v", level, errs)
		}
	}
}

func TestValidatePolicy_EmptyDefaultLevel(t *testing.T) {
	pol := PolicyConfig{DefaultLevel: ""}
	errs := ValidatePolicy(pol)
	if len(errs) > 0 {
		t.Fatalf("expected no errors for empty default_level (uses engine default), got: %v", errs)
	}
}

func TestValidatePolicy_EmptyExclusionGlob(t *testing.T) {
	pol := PolicyConfig{ExclusionGlobs: []string{"**/keep/**", ""}}
	errs := ValidatePolicy(pol)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for empty glob, got: %d", len(errs))
	}
	if errs[0].Field != "policy.exclusion_globs[1]" {
		t.Errorf("expected field policy.exclusion_globs[1], got: %s", errs[0].Field)
	}
}

func TestValidateExecution_NegativeRetentionDays(t *testing.T) {
	errs := ValidateExecution(ExecutionConfig{RetentionDays: -1})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for negative retention_days, got: %d", len(errs))
	}
	if errs[0].Field != "execution.retention_days" {
		t.Errorf("expected field execution.retention_days, got: %s", errs[0].Field)
	}
}

func TestValidateExecution_NegativeTimeout(t *testing.T) {
	errs := ValidateExecution(ExecutionConfig{Timeout: -1})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for negative timeout, got: %d", len(errs))
	}
}

func TestValidateExecution_Valid(t *testing.T) {
	errs := ValidateExecution(ExecutionConfig{RetentionDays: 365})
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got: %v", errs)
	}
}

func TestValidateLogging_InvalidLevel(t *testing.T) {
	log := LoggingConfig{Level: "verbose"}
	errs := ValidateLogging(log)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for invalid level, got: %d", len(errs))
	}
	if errs[0].Field != "logging.level" {
		t.Errorf("expected field logging.level, got: %s", errs[0].Field)
	}
}

func TestValidateLogging_ValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		log := LoggingConfig{Level: level}
		errs := ValidateLogging(log)
		if len(errs) > 0 {
			t.Fatalf("expected no errors for level %q, got: %v", level, errs)
		}
	}
}

func TestValidateLogging_EmptyLevel(t *testing.T) {
	log := LoggingConfig{Level: ""}
	errs := ValidateLogging(log)
	if len(errs) > 0 {
		t.Fatalf("expected no errors for empty level (uses default), got: %v", errs)
	}
}

func TestValidateLogging_InvalidFormat(t *testing.T) {
	log := LoggingConfig{Format: "xml"}
	errs := ValidateLogging(log)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for invalid format, got: %d", len(errs))
	}
	if errs[0].Field != "logging.format" {
		t.Errorf("expected field logging.format, got: %s", errs[0].Field)
	}
}

func TestValidateLogging_ValidFormats(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		log := LoggingConfig{Format: format}
		errs := ValidateLogging(log)
		if len(errs) > 0 {
			t.Fatalf("expected no errors for format %q, got: %v", format, errs)
		}
	}
}

func TestValidateLogging_LokiDisabledSkipsURLCheck(t *testing.T) {
	log := LoggingConfig{Loki: &LokiConfig{Enabled: false}}
	errs := ValidateLogging(log)
	if len(errs) > 0 {
		t.Fatalf("expected no errors when loki disabled, got: %v", errs)
	}
}

func TestValidateLoki_EnabledRequiresURL(t *testing.T) {
	errs := ValidateLoki(LokiConfig{Enabled: true})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for missing url, got: %d", len(errs))
	}
	if errs[0].Field != "logging.loki.url" {
		t.Errorf("expected field logging.loki.url, got: %s", errs[0].Field)
	}
}

func TestValidateLoki_InvalidScheme(t *testing.T) {
	errs := ValidateLoki(LokiConfig{Enabled: true, URL: "ftp://example.com"})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for invalid scheme, got: %d", len(errs))
	}
}

func TestValidate_FullValidConfig(t *testing.T) {
	cfg := Default()

	err := Validate(cfg)
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Scan: ScanConfig{
			MaxDepth: -1, // invalid
		},
		Policy: PolicyConfig{
			DefaultLevel: "badlevel", // invalid
		},
		Execution: ExecutionConfig{
			RetentionDays: -1, // invalid
		},
		Logging: LoggingConfig{
			Level:  "badlevel",  // invalid
			Format: "badformat", // invalid
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got: %T", err)
	}

	if len(verrs) < 5 {
		t.Errorf("expected at least 5 errors, got: %d", len(verrs))
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Message: "test message",
	}
	expected := "config validation failed: test.field: test message"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "field1", Message: "message1"},
		{Field: "field2", Message: "message2"},
	}
	result := errs.Error()
	if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
		t.Errorf("expected both fields in error, got: %s", result)
	}
}

func TestValidationErrors_Empty(t *testing.T) {
	errs := ValidationErrors{}
	if errs.Error() != "" {
		t.Errorf("expected empty string for empty errors, got: %q", errs.Error())
	}
}
