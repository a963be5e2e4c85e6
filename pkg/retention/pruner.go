package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskgate-hq/taskgate/pkg/store"
)

// Config contains configuration for the admission-record pruner.
type Config struct {
	// MaxAge is how long admission timestamps are retained. Records older
	// than this are deleted on each prune cycle. It must be at least as
	// long as the sustained rate-limit window, otherwise pruning would
	// delete records the limiter still counts. 0 means keep records
	// forever (no pruning).
	MaxAge time.Duration

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "*/5 * * * *" (every five minutes)
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:        5 * time.Minute,
		PruneSchedule: "*/5 * * * *",
	}
}

// Pruner deletes admission timestamps that have aged out of every
// rate-limit window. The limiter filters by time range so stale records
// never affect a decision; pruning only keeps the store from growing
// without bound.
type Pruner struct {
	store     store.Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(st store.Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		store:  st,
		config: config,
		logger: slog.Default().With("component", "retention"),
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Prune deletes admission records older than MaxAge and returns how many
// were deleted. With MaxAge zero it is a no-op.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.MaxAge <= 0 {
		return 0, nil
	}

	cutoffMs := time.Now().Add(-p.config.MaxAge).UnixMilli()

	deleted, err := p.store.PruneAdmissions(ctx, cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("prune admissions: %w", err)
	}

	return deleted, nil
}

// Start starts the automatic pruning scheduler.
// Call this when starting the application.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
