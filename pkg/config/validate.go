package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "limits.burst_limit").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateDrain(&cfg.Drain)...)
	errs = append(errs, validateRetention(&cfg.Retention, &cfg.Limits)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateServer validates the server configuration section.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout cannot be negative",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes cannot be negative",
		})
	}

	return errs
}

// validateLimits validates the rate-limit thresholds.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.BurstLimit < 1 {
		errs = append(errs, FieldError{
			Field:   "limits.burst_limit",
			Message: "burst limit must be at least 1",
		})
	}
	if cfg.BurstWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.burst_window",
			Message: "burst window must be positive",
		})
	}
	if cfg.SustainedLimit < 1 {
		errs = append(errs, FieldError{
			Field:   "limits.sustained_limit",
			Message: "sustained limit must be at least 1",
		})
	}
	if cfg.SustainedWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.sustained_window",
			Message: "sustained window must be positive",
		})
	}
	if cfg.BurstWindow > 0 && cfg.SustainedWindow > 0 && cfg.SustainedWindow < cfg.BurstWindow {
		errs = append(errs, FieldError{
			Field:   "limits.sustained_window",
			Message: "sustained window must not be shorter than the burst window",
		})
	}

	return errs
}

// validateStore validates the store configuration section.
func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q (must be \"memory\" or \"sqlite\")", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "store.path",
			Message: "path is required for the sqlite backend",
		})
	}

	return errs
}

// validateDrain validates the drain loop configuration section.
func validateDrain(cfg *DrainConfig) []FieldError {
	var errs []FieldError

	if cfg.Interval <= 0 {
		errs = append(errs, FieldError{
			Field:   "drain.interval",
			Message: "interval must be positive",
		})
	}
	if cfg.LeaseTTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "drain.lease_ttl",
			Message: "lease TTL must be positive",
		})
	}
	if cfg.LeaseTTL > 0 && cfg.Interval > 0 && cfg.LeaseTTL <= cfg.Interval {
		errs = append(errs, FieldError{
			Field:   "drain.lease_ttl",
			Message: "lease TTL must exceed the drain interval or the lease expires between iterations",
		})
	}
	if cfg.MaxConsecutiveFailures < 1 {
		errs = append(errs, FieldError{
			Field:   "drain.max_consecutive_failures",
			Message: "max consecutive failures must be at least 1",
		})
	}
	if cfg.MaxBackoff <= 0 {
		errs = append(errs, FieldError{
			Field:   "drain.max_backoff",
			Message: "max backoff must be positive",
		})
	}

	return errs
}

// validateRetention validates the retention configuration section.
func validateRetention(cfg *RetentionConfig, limits *LimitsConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "retention.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.PruneSchedule, err),
		})
	}
	// Pruning inside the sustained window would change limiter decisions.
	if cfg.MaxAge < limits.SustainedWindow {
		errs = append(errs, FieldError{
			Field:   "retention.max_age",
			Message: "max age must be at least the sustained rate-limit window",
		})
	}

	return errs
}

// validateTelemetry validates the telemetry configuration section.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown log level %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown log format %q", cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	return errs
}
