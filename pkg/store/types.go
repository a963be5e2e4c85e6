package store

import (
	"context"
	"time"
)

// Store defines the interface for the shared admission-event store.
// It holds two kinds of per-user state: a time-ordered set of admission
// timestamps and a FIFO backlog of deferred-task markers, plus the drain
// leases that keep duplicate drain loops off the same backlog.
//
// All timestamps and markers are wall-clock milliseconds since the Unix
// epoch. Implementations must be thread-safe; each individual operation
// must be atomic against concurrent callers, but no atomicity is implied
// across operations (callers must tolerate QueueLength going stale before
// a subsequent PopFrontOfQueue).
type Store interface {
	// CountInRange returns the number of admission timestamps for user in
	// the half-open range (fromMs, toMs]. The lower bound is exclusive and
	// the upper bound inclusive, so a timestamp equal to toMs counts.
	CountInRange(ctx context.Context, user string, fromMs, toMs int64) (int64, error)

	// InsertTimestamp records an admission timestamp for user.
	// Duplicate timestamps are allowed; two admissions in the same
	// millisecond produce two entries.
	InsertTimestamp(ctx context.Context, user string, tsMs int64) error

	// ConditionalAdmit atomically evaluates both rate-limit windows and
	// inserts nowMs only if neither threshold is reached. It returns true
	// when the insert happened. The count-and-insert sequence executes as
	// a single transaction so two concurrent callers cannot both observe
	// "under threshold" and both insert.
	ConditionalAdmit(ctx context.Context, user string, nowMs int64, burstWindowMs, burstLimit, sustainedWindowMs, sustainedLimit int64) (bool, error)

	// AppendToQueue appends a deferred-task marker to the tail of the
	// user's backlog. Every call produces exactly one marker; there is no
	// deduplication and no size cap.
	AppendToQueue(ctx context.Context, user string, markerMs int64) error

	// PopFrontOfQueue removes and returns the head of the user's backlog.
	// ok is false when the backlog is empty; that is not an error.
	PopFrontOfQueue(ctx context.Context, user string) (markerMs int64, ok bool, err error)

	// QueueLength returns the current number of markers in the user's
	// backlog. An empty or never-created backlog reports zero.
	QueueLength(ctx context.Context, user string) (int64, error)

	// AcquireLease attempts to claim the drain lease for user on behalf of
	// owner, for ttl. Expired leases are reclaimed. Returns true when the
	// lease was acquired; false means another live owner holds it.
	AcquireLease(ctx context.Context, user, owner string, ttl time.Duration) (bool, error)

	// RenewLease extends the lease for user if owner still holds it.
	// Returns false when the lease was lost (expired and reclaimed).
	RenewLease(ctx context.Context, user, owner string, ttl time.Duration) (bool, error)

	// ReleaseLease drops the lease for user if owner holds it. Releasing a
	// lease held by someone else, or no lease at all, is a no-op.
	ReleaseLease(ctx context.Context, user, owner string) error

	// PruneAdmissions deletes admission timestamps older than olderThanMs
	// across all users and returns the number deleted. Stale entries are
	// harmless to the limiter (it filters by time range) but grow without
	// bound otherwise.
	PruneAdmissions(ctx context.Context, olderThanMs int64) (int64, error)

	// Close releases any resources held by the store.
	// The store must not be used after calling Close.
	Close() error
}
