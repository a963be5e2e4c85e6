package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected default config to validate, got: %v", err)
	}
}

func TestValidate_BadLimits(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Limits.BurstLimit = 0
	cfg.Limits.SustainedWindow = 500 * time.Millisecond // shorter than burst window

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("Expected 2 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestValidate_BadStoreBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Backend = "redis"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown backend")
	}
	if !strings.Contains(err.Error(), "store.backend") {
		t.Errorf("Expected store.backend in error, got: %v", err)
	}
}

func TestValidate_LeaseTTLMustExceedInterval(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Drain.Interval = 10 * time.Second
	cfg.Drain.LeaseTTL = 5 * time.Second

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for lease TTL below drain interval")
	}
	if !strings.Contains(err.Error(), "drain.lease_ttl") {
		t.Errorf("Expected drain.lease_ttl in error, got: %v", err)
	}
}

func TestValidate_RetentionSchedule(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retention.PruneSchedule = "not a cron expression"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for bad cron expression")
	}

	// A disabled retention section is not validated.
	cfg.Retention.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected disabled retention to skip validation, got: %v", err)
	}
}

func TestValidate_RetentionMaxAgeBelowSustainedWindow(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retention.MaxAge = 30 * time.Second // below the 60s sustained window

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for max age below sustained window")
	}
	if !strings.Contains(err.Error(), "retention.max_age") {
		t.Errorf("Expected retention.max_age in error, got: %v", err)
	}
}

func TestValidate_BadLogging(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Telemetry.Logging.Level = "verbose"
	cfg.Telemetry.Logging.Format = "pretty"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for bad logging config")
	}

	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("Expected 2 field errors, got %d", len(verr.Errors))
	}
}

func TestFieldError_Error(t *testing.T) {
	err := FieldError{Field: "limits.burst_limit", Message: "must be at least 1"}
	if err.Error() != "limits.burst_limit: must be at least 1" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
}
