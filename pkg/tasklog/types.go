package tasklog

import "context"

// Sink records the completion of a task for a user. It is the terminal side
// effect of both the synchronous admission path and the drain loop.
//
// Implementations should tolerate rare duplicate invocations for the same
// submission: when two drain loops race the same backlog, the individually
// atomic dequeue keeps duplicates rare but a retried iteration can still
// execute twice.
type Sink interface {
	// Execute records one task completion for user.
	Execute(ctx context.Context, user string) error
}

// Completion is a single recorded task completion.
type Completion struct {
	// ID is the unique identifier of this record.
	ID string

	// User is the user the task was completed for.
	User string

	// CompletedAtMs is the completion time in milliseconds since the epoch.
	CompletedAtMs int64
}
