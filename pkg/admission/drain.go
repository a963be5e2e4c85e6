package admission

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskgate-hq/taskgate/pkg/store"
	"taskgate-hq/taskgate/pkg/tasklog"
)

// DrainerConfig controls the backlog drain loop.
type DrainerConfig struct {
	// Interval is the pause between drain iterations while the user is
	// rate limited. Default: 1s
	Interval time.Duration

	// LeaseTTL is how long a drain lease stays valid without renewal. It
	// must comfortably exceed Interval so a live drainer never loses its
	// own lease mid-loop. Default: 15s
	LeaseTTL time.Duration

	// MaxConsecutiveFailures is how many store or sink failures in a row
	// the loop tolerates before giving up on this drain attempt.
	// Default: 5
	MaxConsecutiveFailures int

	// MaxBackoff caps the exponential backoff applied after consecutive
	// failures. Default: 30s
	MaxBackoff time.Duration
}

func (c *DrainerConfig) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = time.Second
	}
	if c.LeaseTTL == 0 {
		c.LeaseTTL = 15 * time.Second
	}
	if c.MaxConsecutiveFailures == 0 {
		c.MaxConsecutiveFailures = 5
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
}

// Drainer works off per-user backlogs in the background. A drain run is
// self-terminating: it exists only while its user's queue is non-empty and
// exits once the queue drains, so an idle user costs nothing.
//
// At most one drain run is active per user across all processes. Each run
// holds a store-level lease keyed by user and renews it every iteration;
// a second trigger for the same user finds the lease taken and returns
// without starting a duplicate loop.
type Drainer struct {
	store   store.Store
	limiter *Limiter
	backlog *Backlog
	sink    tasklog.Sink
	metrics *Metrics
	logger  *slog.Logger
	cfg     DrainerConfig

	// baseCtx is cancelled by Stop; every drain run derives from it.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDrainer creates a drainer. metrics may be nil.
func NewDrainer(st store.Store, limiter *Limiter, backlog *Backlog, sink tasklog.Sink, metrics *Metrics, cfg DrainerConfig) *Drainer {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Drainer{
		store:   st,
		limiter: limiter,
		backlog: backlog,
		sink:    sink,
		metrics: metrics,
		logger:  slog.Default().With("component", "drainer"),
		cfg:     cfg,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Trigger starts a background drain run for user. It returns immediately;
// the run itself acquires the lease, so a trigger for a user that already
// has an active drainer is a cheap no-op.
func (d *Drainer) Trigger(user string) {
	if user == "" {
		return
	}
	select {
	case <-d.baseCtx.Done():
		return
	default:
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(d.baseCtx, user)
	}()
}

// Stop cancels all active drain runs and waits for them to finish. Queued
// tasks remain in the store and are picked up by the next trigger.
func (d *Drainer) Stop() {
	d.cancel()
	d.wg.Wait()
}

// run owns one drain attempt for user. It acquires the user's lease, works
// the queue until it is empty or the failure budget is spent, releases the
// lease, then re-checks the queue to close the race where a task was
// enqueued after the last emptiness check but before the lease release.
func (d *Drainer) run(ctx context.Context, user string) {
	owner := uuid.New().String()

	for {
		acquired, err := d.store.AcquireLease(ctx, user, owner, d.cfg.LeaseTTL)
		if err != nil {
			d.logger.Error("drain lease acquisition failed",
				"user", user,
				"error", err)
			return
		}
		if !acquired {
			// Another drainer holds the lease; the queue is its problem.
			return
		}

		d.metrics.RecordDrainStart()
		drained := d.drainLoop(ctx, user, owner)

		if err := d.store.ReleaseLease(ctx, user, owner); err != nil {
			d.logger.Warn("drain lease release failed",
				"user", user,
				"error", err)
		}

		if !drained {
			// Gave up or was cancelled. Leave the remainder for the next
			// trigger rather than spinning against a broken dependency.
			d.metrics.RecordDrainAbandoned()
			return
		}

		// The queue was observed empty while we still held the lease, but
		// an admission denied after that observation may have enqueued
		// behind our back. Re-check now that the lease is free; if there
		// is new work, loop around and re-acquire.
		n, err := d.backlog.Length(ctx, user)
		if err != nil || n == 0 {
			d.metrics.RecordDrainComplete()
			return
		}
		d.logger.Debug("backlog refilled during drain exit, restarting",
			"user", user,
			"queue_length", n)
	}
}

// drainLoop works user's queue under an acquired lease. It returns true
// when the queue was drained to empty, false when the run was cancelled or
// the consecutive failure budget was exhausted.
func (d *Drainer) drainLoop(ctx context.Context, user, owner string) bool {
	failures := 0

	for {
		if ctx.Err() != nil {
			return false
		}

		if ok, err := d.store.RenewLease(ctx, user, owner, d.cfg.LeaseTTL); err != nil || !ok {
			// Lost the lease, either to expiry or a store fault. Another
			// drainer may already own the queue; stop touching it.
			d.logger.Warn("drain lease lost",
				"user", user,
				"error", err)
			return false
		}

		n, err := d.backlog.Length(ctx, user)
		if err != nil {
			if !d.backoff(ctx, user, &failures, err) {
				return false
			}
			continue
		}
		if n == 0 {
			return true
		}

		admitted, err := d.limiter.TryAdmit(ctx, user)
		if err != nil {
			if !d.backoff(ctx, user, &failures, err) {
				return false
			}
			continue
		}
		if !admitted {
			// Still rate limited. Wait out the interval and re-check.
			failures = 0
			if !sleep(ctx, d.cfg.Interval) {
				return false
			}
			continue
		}

		markerMs, ok, err := d.backlog.DequeueFront(ctx, user)
		if err != nil {
			if !d.backoff(ctx, user, &failures, err) {
				return false
			}
			continue
		}
		if !ok {
			// Queue emptied between the length check and the pop. The
			// admission slot is spent but there was nothing to run; the
			// next iteration observes empty and exits.
			if !sleep(ctx, d.cfg.Interval) {
				return false
			}
			continue
		}

		if err := d.sink.Execute(ctx, user); err != nil {
			d.logger.Error("drained task execution failed",
				"user", user,
				"deferred_at_ms", markerMs,
				"error", err)
			d.metrics.RecordTaskOutcome(string(OutcomeUnavailable), "drain")
			if !d.backoff(ctx, user, &failures, err) {
				return false
			}
			continue
		}

		failures = 0
		d.metrics.RecordTaskOutcome(string(OutcomeCompleted), "drain")
		d.metrics.RecordQueueWait(time.Since(time.UnixMilli(markerMs)))

		// Pause between executions regardless of outcome; pacing comes
		// from the interval, not just from admission denials.
		if !sleep(ctx, d.cfg.Interval) {
			return false
		}
	}
}

// backoff records a failure and sleeps for an exponentially growing pause,
// capped at MaxBackoff. It returns false once the consecutive failure
// budget is spent or the context is cancelled.
func (d *Drainer) backoff(ctx context.Context, user string, failures *int, cause error) bool {
	*failures++
	if *failures >= d.cfg.MaxConsecutiveFailures {
		d.logger.Error("drain giving up after repeated failures",
			"user", user,
			"consecutive_failures", *failures,
			"error", cause)
		return false
	}

	pause := d.cfg.Interval << (*failures - 1)
	if pause > d.cfg.MaxBackoff || pause <= 0 {
		pause = d.cfg.MaxBackoff
	}
	d.logger.Warn("drain iteration failed, backing off",
		"user", user,
		"consecutive_failures", *failures,
		"backoff", pause,
		"error", cause)
	return sleep(ctx, pause)
}

// sleep pauses for dur or until ctx is cancelled, reporting whether the
// full pause elapsed.
func sleep(ctx context.Context, dur time.Duration) bool {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
