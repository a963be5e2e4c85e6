package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:5000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Limits defaults: 1 task per rolling second, 20 per rolling minute.
	DefaultBurstLimit      = int64(1)
	DefaultBurstWindow     = time.Second
	DefaultSustainedLimit  = int64(20)
	DefaultSustainedWindow = 60 * time.Second
	DefaultLimitsWatch     = false

	// Store defaults
	DefaultStoreBackend            = "memory"
	DefaultStorePath               = "data/admissions.db"
	DefaultStoreBusyTimeout        = 5 * time.Second
	DefaultStoreCheckpointInterval = 5 * time.Minute

	// Drain defaults
	DefaultDrainInterval               = time.Second
	DefaultDrainLeaseTTL               = 15 * time.Second
	DefaultDrainMaxConsecutiveFailures = 5
	DefaultDrainMaxBackoff             = 30 * time.Second

	// Task log defaults
	DefaultTaskLogPath         = "data/tasklog.db"
	DefaultTaskLogMaxOpenConns = 10
	DefaultTaskLogMaxIdleConns = 5
	DefaultTaskLogBusyTimeout  = 5 * time.Second

	// Retention defaults
	DefaultRetentionEnabled  = true
	DefaultRetentionSchedule = "*/5 * * * *"
	DefaultRetentionMaxAge   = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// NewDefaultConfig returns a configuration with all default values applied.
// Boolean fields that default to true are set here; LoadConfig unmarshals
// the file over this struct so an absent field keeps the default while an
// explicit false still wins.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Retention.Enabled = DefaultRetentionEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any zero-valued fields.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Limits defaults
	if cfg.Limits.BurstLimit == 0 {
		cfg.Limits.BurstLimit = DefaultBurstLimit
	}
	if cfg.Limits.BurstWindow == 0 {
		cfg.Limits.BurstWindow = DefaultBurstWindow
	}
	if cfg.Limits.SustainedLimit == 0 {
		cfg.Limits.SustainedLimit = DefaultSustainedLimit
	}
	if cfg.Limits.SustainedWindow == 0 {
		cfg.Limits.SustainedWindow = DefaultSustainedWindow
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}
	if cfg.Store.CheckpointInterval == 0 {
		cfg.Store.CheckpointInterval = DefaultStoreCheckpointInterval
	}

	// Drain defaults
	if cfg.Drain.Interval == 0 {
		cfg.Drain.Interval = DefaultDrainInterval
	}
	if cfg.Drain.LeaseTTL == 0 {
		cfg.Drain.LeaseTTL = DefaultDrainLeaseTTL
	}
	if cfg.Drain.MaxConsecutiveFailures == 0 {
		cfg.Drain.MaxConsecutiveFailures = DefaultDrainMaxConsecutiveFailures
	}
	if cfg.Drain.MaxBackoff == 0 {
		cfg.Drain.MaxBackoff = DefaultDrainMaxBackoff
	}

	// Task log defaults
	if cfg.TaskLog.Path == "" {
		cfg.TaskLog.Path = DefaultTaskLogPath
	}
	if cfg.TaskLog.MaxOpenConns == 0 {
		cfg.TaskLog.MaxOpenConns = DefaultTaskLogMaxOpenConns
	}
	if cfg.TaskLog.MaxIdleConns == 0 {
		cfg.TaskLog.MaxIdleConns = DefaultTaskLogMaxIdleConns
	}
	if cfg.TaskLog.BusyTimeout == 0 {
		cfg.TaskLog.BusyTimeout = DefaultTaskLogBusyTimeout
	}

	// Retention defaults
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = DefaultRetentionSchedule
	}
	if cfg.Retention.MaxAge == 0 {
		cfg.Retention.MaxAge = DefaultRetentionMaxAge
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
