package admission

import (
	"context"
	"fmt"

	"taskgate-hq/taskgate/pkg/store"
)

// Backlog is the per-user FIFO of deferred tasks. Each entry is the
// millisecond timestamp at which the task was deferred; the work itself is
// homogeneous, so a marker is all the drainer needs.
type Backlog struct {
	store store.Store
}

// NewBacklog creates a backlog backed by the given store.
func NewBacklog(st store.Store) *Backlog {
	return &Backlog{store: st}
}

// Enqueue appends a deferred task marker to the back of user's queue.
func (b *Backlog) Enqueue(ctx context.Context, user string, markerMs int64) error {
	if user == "" {
		return ErrMissingUser
	}
	if err := b.store.AppendToQueue(ctx, user, markerMs); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DequeueFront removes and returns the oldest marker in user's queue.
// ok is false when the queue is empty.
func (b *Backlog) DequeueFront(ctx context.Context, user string) (markerMs int64, ok bool, err error) {
	if user == "" {
		return 0, false, ErrMissingUser
	}
	markerMs, ok, err = b.store.PopFrontOfQueue(ctx, user)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return markerMs, ok, nil
}

// Length reports how many deferred tasks user currently has. A user with no
// queue has length zero.
func (b *Backlog) Length(ctx context.Context, user string) (int64, error) {
	if user == "" {
		return 0, ErrMissingUser
	}
	n, err := b.store.QueueLength(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}
