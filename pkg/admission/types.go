package admission

import "errors"

// Outcome is the result of submitting a task for a user.
type Outcome string

const (
	// OutcomeCompleted means the task was admitted and executed immediately.
	OutcomeCompleted Outcome = "completed"

	// OutcomeDeferred means the rate limit was exceeded and the task was
	// queued for asynchronous draining.
	OutcomeDeferred Outcome = "deferred"

	// OutcomeRejected means the submission was invalid and nothing was
	// recorded.
	OutcomeRejected Outcome = "rejected"

	// OutcomeUnavailable means the admission store failed and the
	// submission could not be evaluated. This is a third state distinct
	// from both "allowed" and "denied" and must be surfaced as such.
	OutcomeUnavailable Outcome = "unavailable"
)

// Error types for the admission path.
var (
	// ErrMissingUser is returned when a submission carries no user identifier.
	ErrMissingUser = errors.New("missing user identifier")

	// ErrStoreUnavailable is returned when the admission store cannot be
	// reached. A failed limit check is never reported as admitted or denied.
	ErrStoreUnavailable = errors.New("admission store unavailable")
)
