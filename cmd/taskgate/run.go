package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"taskgate-hq/taskgate/pkg/admission"
	"taskgate-hq/taskgate/pkg/cli"
	"taskgate-hq/taskgate/pkg/config"
	"taskgate-hq/taskgate/pkg/retention"
	"taskgate-hq/taskgate/pkg/server"
	"taskgate-hq/taskgate/pkg/store"
	"taskgate-hq/taskgate/pkg/tasklog"
	"taskgate-hq/taskgate/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the taskgate admission server",
	Long: `Start the taskgate admission server with the specified configuration.

The server accepts task submissions on POST /api/v1/tasks, enforces the
per-user rate limits, and drains queued tasks in the background.

Examples:
  # Start with default config
  taskgate run

  # Start with custom config
  taskgate run --config /etc/taskgate/config.yaml

  # Override listen address
  taskgate run --listen 0.0.0.0:5000

  # Validate config without starting server
  taskgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	// Logging must be configured before any component grabs
	// slog.Default().
	if _, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Taskgate v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Shared admission/backlog store
	var st store.Store
	switch cfg.Store.Backend {
	case "sqlite":
		slog.Info("initializing store", "backend", "sqlite", "path", cfg.Store.Path)
		st, err = store.NewSQLiteStoreWithConfig(store.SQLiteStoreConfig{
			DBPath:             cfg.Store.Path,
			BusyTimeout:        cfg.Store.BusyTimeout,
			CheckpointInterval: cfg.Store.CheckpointInterval,
		})
		if err != nil {
			return fmt.Errorf("failed to create SQLite store: %w", err)
		}
	case "memory":
		slog.Info("initializing store", "backend", "memory")
		st = store.NewMemoryStore()
	default:
		return fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
	defer st.Close()
	fmt.Println("✓ Store initialized")

	// Task-completion log
	sink, err := tasklog.NewSQLiteLog(&tasklog.SQLiteConfig{
		Path:         cfg.TaskLog.Path,
		MaxOpenConns: cfg.TaskLog.MaxOpenConns,
		MaxIdleConns: cfg.TaskLog.MaxIdleConns,
		WALMode:      true,
		BusyTimeout:  cfg.TaskLog.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create task log: %w", err)
	}
	defer sink.Close()
	fmt.Println("✓ Task log initialized")

	// Admission pipeline
	metrics := admission.NewMetrics()
	limiter := admission.NewLimiter(st, admission.LimiterConfig{
		BurstLimit:      cfg.Limits.BurstLimit,
		BurstWindow:     cfg.Limits.BurstWindow,
		SustainedLimit:  cfg.Limits.SustainedLimit,
		SustainedWindow: cfg.Limits.SustainedWindow,
	})
	backlog := admission.NewBacklog(st)
	drainer := admission.NewDrainer(st, limiter, backlog, sink, metrics, admission.DrainerConfig{
		Interval:               cfg.Drain.Interval,
		LeaseTTL:               cfg.Drain.LeaseTTL,
		MaxConsecutiveFailures: cfg.Drain.MaxConsecutiveFailures,
		MaxBackoff:             cfg.Drain.MaxBackoff,
	})
	defer drainer.Stop()
	svc := admission.NewService(limiter, backlog, drainer, sink, metrics)

	ctx := cli.SetupSignalHandler()

	// Retention scheduler
	if cfg.Retention.Enabled {
		pruner := retention.NewPruner(st, &retention.Config{
			MaxAge:        cfg.Retention.MaxAge,
			PruneSchedule: cfg.Retention.PruneSchedule,
		})
		if err := pruner.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				slog.Debug("retention scheduler started", "next_pruning", next)
			}
		}
	}

	// Hot reload of limit thresholds
	if cfg.Limits.Watch {
		watcher, err := config.NewWatcher(config.WatcherConfig{
			Path: cfgFile,
			OnReload: func(newCfg *config.Config) {
				limiter.UpdateLimits(admission.LimiterConfig{
					BurstLimit:      newCfg.Limits.BurstLimit,
					BurstWindow:     newCfg.Limits.BurstWindow,
					SustainedLimit:  newCfg.Limits.SustainedLimit,
					SustainedWindow: newCfg.Limits.SustainedWindow,
				})
				slog.Info("rate limits reloaded",
					"burst_limit", newCfg.Limits.BurstLimit,
					"sustained_limit", newCfg.Limits.SustainedLimit,
				)
			},
		}, slog.Default())
		if err != nil {
			slog.Warn("failed to create config watcher", "error", err)
		} else if err := watcher.Start(); err != nil {
			slog.Warn("failed to start config watcher", "error", err)
		} else {
			defer watcher.Stop()
			fmt.Println("✓ Config watcher started")
		}
	}

	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, svc, st)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Blocks until signal or fatal server error; graceful shutdown is
	// handled inside Start.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}
