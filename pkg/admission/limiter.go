package admission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskgate-hq/taskgate/pkg/store"
)

// Limiter decides whether a new task may be admitted for a user right now,
// and records the admission when it may.
//
// Two sliding windows are evaluated on every check, both anchored at the
// current instant: a short burst window and a long sustained window. A
// breach of either one denies admission. The windows are right-closed: an
// admission recorded in the same millisecond as the check falls inside the
// window and counts against it.
//
// The count-and-insert sequence runs as a single store transaction, so two
// concurrent checks for the same user cannot both observe "under threshold"
// and both admit past the cap.
type Limiter struct {
	store store.Store

	// cfg is guarded by mu so thresholds can be hot-reloaded while checks
	// are in flight.
	mu  sync.RWMutex
	cfg LimiterConfig
}

// LimiterConfig contains the rate limit thresholds.
type LimiterConfig struct {
	// BurstLimit is the maximum number of admissions inside BurstWindow.
	// Default: 1
	BurstLimit int64

	// BurstWindow is the short sliding window.
	// Default: 1s
	BurstWindow time.Duration

	// SustainedLimit is the maximum number of admissions inside SustainedWindow.
	// Default: 20
	SustainedLimit int64

	// SustainedWindow is the long sliding window.
	// Default: 60s
	SustainedWindow time.Duration
}

// applyDefaults fills in zero-valued thresholds.
func (c *LimiterConfig) applyDefaults() {
	if c.BurstLimit == 0 {
		c.BurstLimit = 1
	}
	if c.BurstWindow == 0 {
		c.BurstWindow = time.Second
	}
	if c.SustainedLimit == 0 {
		c.SustainedLimit = 20
	}
	if c.SustainedWindow == 0 {
		c.SustainedWindow = 60 * time.Second
	}
}

// NewLimiter creates a rate limiter backed by the given store.
func NewLimiter(st store.Store, cfg LimiterConfig) *Limiter {
	cfg.applyDefaults()
	return &Limiter{
		store: st,
		cfg:   cfg,
	}
}

// TryAdmit checks both windows for user and records the admission when
// neither threshold is reached. It returns true when the task may run now.
//
// A store failure is returned as an error with no admission decision; the
// caller must treat it as a distinct outcome, never as "allowed" or
// "denied".
func (l *Limiter) TryAdmit(ctx context.Context, user string) (bool, error) {
	if user == "" {
		return false, ErrMissingUser
	}

	l.mu.RLock()
	cfg := l.cfg
	l.mu.RUnlock()

	nowMs := time.Now().UnixMilli()

	admitted, err := l.store.ConditionalAdmit(ctx, user, nowMs,
		cfg.BurstWindow.Milliseconds(), cfg.BurstLimit,
		cfg.SustainedWindow.Milliseconds(), cfg.SustainedLimit,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return admitted, nil
}

// UpdateLimits replaces the thresholds. In-flight checks finish with the
// thresholds they read; subsequent checks use the new ones.
func (l *Limiter) UpdateLimits(cfg LimiterConfig) {
	cfg.applyDefaults()

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
}

// Limits returns the current thresholds.
func (l *Limiter) Limits() LimiterConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}
