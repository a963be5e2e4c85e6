package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory storage.
// This is the default backend and provides fast access with no persistence.
// All data is lost when the process exits.
//
// MemoryStore is thread-safe and supports concurrent access using sync.Mutex.
type MemoryStore struct {
	// users maps user id to that user's admission and backlog state.
	users map[string]*userState

	// leases maps user id to the active drain lease.
	leases map[string]lease

	// mu protects access to both maps.
	mu sync.Mutex
}

// userState holds the per-user admission records and backlog.
type userState struct {
	// admissions holds admission timestamps in insertion order.
	admissions []int64

	// backlog holds deferred-task markers, head first.
	backlog []int64
}

// lease is a time-bounded exclusive claim on a user's drain loop.
type lease struct {
	owner     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*userState),
		leases: make(map[string]lease),
	}
}

// CountInRange returns the number of admission timestamps in (fromMs, toMs].
func (m *MemoryStore) CountInRange(ctx context.Context, user string, fromMs, toMs int64) (int64, error) {
	if user == "" {
		return 0, fmt.Errorf("user cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.countInRangeLocked(user, fromMs, toMs), nil
}

// InsertTimestamp records an admission timestamp for user.
func (m *MemoryStore) InsertTimestamp(ctx context.Context, user string, tsMs int64) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.stateLocked(user)
	state.admissions = append(state.admissions, tsMs)
	return nil
}

// ConditionalAdmit evaluates both windows and inserts nowMs under one lock hold.
func (m *MemoryStore) ConditionalAdmit(ctx context.Context, user string, nowMs int64, burstWindowMs, burstLimit, sustainedWindowMs, sustainedLimit int64) (bool, error) {
	if user == "" {
		return false, fmt.Errorf("user cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	burstCount := m.countInRangeLocked(user, nowMs-burstWindowMs, nowMs)
	sustainedCount := m.countInRangeLocked(user, nowMs-sustainedWindowMs, nowMs)

	if burstCount >= burstLimit || sustainedCount >= sustainedLimit {
		return false, nil
	}

	state := m.stateLocked(user)
	state.admissions = append(state.admissions, nowMs)
	return true, nil
}

// AppendToQueue appends a deferred-task marker to the tail of the backlog.
func (m *MemoryStore) AppendToQueue(ctx context.Context, user string, markerMs int64) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.stateLocked(user)
	state.backlog = append(state.backlog, markerMs)
	return nil
}

// PopFrontOfQueue removes and returns the head of the backlog.
func (m *MemoryStore) PopFrontOfQueue(ctx context.Context, user string) (int64, bool, error) {
	if user == "" {
		return 0, false, fmt.Errorf("user cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.users[user]
	if !exists || len(state.backlog) == 0 {
		return 0, false, nil
	}

	markerMs := state.backlog[0]
	state.backlog = state.backlog[1:]
	return markerMs, true, nil
}

// QueueLength returns the current backlog length for user.
func (m *MemoryStore) QueueLength(ctx context.Context, user string) (int64, error) {
	if user == "" {
		return 0, fmt.Errorf("user cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.users[user]
	if !exists {
		return 0, nil
	}
	return int64(len(state.backlog)), nil
}

// AcquireLease attempts to claim the drain lease for user.
func (m *MemoryStore) AcquireLease(ctx context.Context, user, owner string, ttl time.Duration) (bool, error) {
	if user == "" {
		return false, fmt.Errorf("user cannot be empty")
	}
	if owner == "" {
		return false, fmt.Errorf("owner cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, held := m.leases[user]; held && existing.expiresAt.After(now) {
		return false, nil
	}

	m.leases[user] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// RenewLease extends the lease for user if owner still holds it.
func (m *MemoryStore) RenewLease(ctx context.Context, user, owner string, ttl time.Duration) (bool, error) {
	if user == "" {
		return false, fmt.Errorf("user cannot be empty")
	}
	if owner == "" {
		return false, fmt.Errorf("owner cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, held := m.leases[user]
	if !held || existing.owner != owner {
		return false, nil
	}

	m.leases[user] = lease{owner: owner, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// ReleaseLease drops the lease for user if owner holds it.
func (m *MemoryStore) ReleaseLease(ctx context.Context, user, owner string) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, held := m.leases[user]; held && existing.owner == owner {
		delete(m.leases, user)
	}
	return nil
}

// PruneAdmissions deletes admission timestamps older than olderThanMs.
func (m *MemoryStore) PruneAdmissions(ctx context.Context, olderThanMs int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, state := range m.users {
		kept := state.admissions[:0]
		for _, ts := range state.admissions {
			if ts >= olderThanMs {
				kept = append(kept, ts)
			} else {
				deleted++
			}
		}
		state.admissions = kept
	}
	return deleted, nil
}

// Close releases any resources held by the store.
func (m *MemoryStore) Close() error {
	return nil
}

// AdmissionCount returns the total number of stored admission records for user.
// This is useful for monitoring and testing.
func (m *MemoryStore) AdmissionCount(user string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.users[user]
	if !exists {
		return 0
	}
	return len(state.admissions)
}

// stateLocked returns the state for user, creating it if needed.
// Caller must hold the lock.
func (m *MemoryStore) stateLocked(user string) *userState {
	state, exists := m.users[user]
	if !exists {
		state = &userState{}
		m.users[user] = state
	}
	return state
}

// countInRangeLocked counts admissions in (fromMs, toMs].
// Caller must hold the lock.
func (m *MemoryStore) countInRangeLocked(user string, fromMs, toMs int64) int64 {
	state, exists := m.users[user]
	if !exists {
		return 0
	}

	var count int64
	for _, ts := range state.admissions {
		if ts > fromMs && ts <= toMs {
			count++
		}
	}
	return count
}
