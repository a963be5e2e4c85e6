// Package store provides the shared persistence backends for admission state.
//
// # Overview
//
// The store package defines the interface the admission core depends on and
// provides two implementations:
//
//   - Memory: fast in-memory storage (default, no persistence)
//   - SQLite: lightweight file-based persistence surviving restarts
//
// Three kinds of per-user state live here:
//
//   - Admission records: a time-ordered set of admission timestamps,
//     queried over sliding windows by the rate limiter
//   - Backlog: a FIFO list of deferred-task markers
//   - Drain leases: time-bounded exclusive claims preventing duplicate
//     drain loops for the same user
//
// # Usage
//
//	st := store.NewMemoryStore()
//
//	admitted, err := st.ConditionalAdmit(ctx, "user-1", now, 1000, 1, 60000, 20)
//	if admitted {
//	    // proceed with the task
//	}
//
// # Thread Safety
//
// All store backends are thread-safe and support concurrent access from
// multiple goroutines. Each operation is individually atomic; SQLite runs
// the conditional-admit count-and-insert as one transaction.
package store
