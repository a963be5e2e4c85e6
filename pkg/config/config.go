package config

import "time"

// Config is the root configuration structure for taskgate.
// It contains all configuration sections for the HTTP server, rate limits,
// the admission store, the drain loop, the task log, retention, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Limits contains the two-tier rate limit thresholds.
	Limits LimitsConfig `yaml:"limits"`

	// Store contains configuration for the shared admission/backlog store.
	Store StoreConfig `yaml:"store"`

	// Drain contains configuration for the per-user backlog drain loop.
	Drain DrainConfig `yaml:"drain"`

	// TaskLog contains configuration for the task-completion log.
	TaskLog TaskLogConfig `yaml:"task_log"`

	// Retention contains configuration for pruning stale admission records.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:5000", "0.0.0.0:5000").
	// Default: "127.0.0.1:5000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means no timeout.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// LimitsConfig contains the two-tier sliding-window rate limit thresholds.
// Both windows are evaluated on every admission check; a breach of either
// one blocks the admission.
type LimitsConfig struct {
	// BurstLimit is the maximum number of admissions inside BurstWindow.
	// Default: 1
	BurstLimit int64 `yaml:"burst_limit"`

	// BurstWindow is the short sliding window.
	// Default: 1s
	BurstWindow time.Duration `yaml:"burst_window"`

	// SustainedLimit is the maximum number of admissions inside SustainedWindow.
	// Default: 20
	SustainedLimit int64 `yaml:"sustained_limit"`

	// SustainedWindow is the long sliding window.
	// Default: 60s
	SustainedWindow time.Duration `yaml:"sustained_window"`

	// Watch reloads the limit thresholds when the configuration file
	// changes on disk. Only the limits section is hot-reloaded; all other
	// sections require a restart.
	// Default: false
	Watch bool `yaml:"watch"`
}

// StoreConfig contains configuration for the shared admission store.
type StoreConfig struct {
	// Backend selects the store implementation: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path. Only used when Backend is "sqlite".
	// Default: "data/admissions.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for SQLite locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often to checkpoint the SQLite WAL.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// DrainConfig contains configuration for the backlog drain loop.
type DrainConfig struct {
	// Interval is the pause between drain iterations.
	// Default: 1s
	Interval time.Duration `yaml:"interval"`

	// LeaseTTL is the lifetime of the per-user drain lease. The lease is
	// renewed every iteration, so it must comfortably exceed Interval or
	// a slow iteration can lose the lease mid-drain.
	// Default: 15s
	LeaseTTL time.Duration `yaml:"lease_ttl"`

	// MaxConsecutiveFailures is the number of consecutive iteration
	// failures after which the drain loop gives up. The backlog is picked
	// up again by the next trigger.
	// Default: 5
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

	// MaxBackoff caps the exponential backoff applied after iteration
	// failures.
	// Default: 30s
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// TaskLogConfig contains configuration for the task-completion log.
type TaskLogConfig struct {
	// Path is the SQLite database file path for the completion log.
	// Default: "data/tasklog.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains configuration for pruning admission records.
// Admission timestamps older than the longest rate-limit window are never
// read again; pruning keeps the store bounded.
type RetentionConfig struct {
	// Enabled controls whether the prune scheduler runs.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// PruneSchedule is a cron expression for when to prune.
	// Default: "*/5 * * * *" (every 5 minutes)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxAge is how long admission records are kept. Must be at least the
	// sustained rate-limit window; entries inside that window are still
	// consulted by the limiter.
	// Default: 5m
	MaxAge time.Duration `yaml:"max_age"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
