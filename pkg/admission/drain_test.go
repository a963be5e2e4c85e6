package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskgate-hq/taskgate/pkg/store"
)

// ============================================================================
// Drainer Tests
// ============================================================================

func TestDrainerEmptiesBacklog(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	sink := &recordingSink{}

	// A generous limit lets the drain loop fire on every iteration.
	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1000,
		BurstWindow:     time.Second,
		SustainedLimit:  1000,
		SustainedWindow: 60 * time.Second,
	})
	backlog := NewBacklog(st)
	drainer := NewDrainer(st, limiter, backlog, sink, nil, DrainerConfig{
		Interval: 10 * time.Millisecond,
		LeaseTTL: time.Second,
	})
	defer drainer.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := backlog.Enqueue(ctx, "alice", time.Now().UnixMilli()); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	drainer.Trigger("alice")

	waitFor(t, 5*time.Second, func() bool {
		return sink.count("alice") == 3
	}, "backlog to drain")

	n, err := backlog.Length(ctx, "alice")
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty backlog after drain, got %d", n)
	}
}

func TestDrainerRespectsRateLimit(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	sink := &recordingSink{}

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1,
		BurstWindow:     40 * time.Millisecond,
		SustainedLimit:  1000,
		SustainedWindow: 60 * time.Second,
	})
	backlog := NewBacklog(st)
	drainer := NewDrainer(st, limiter, backlog, sink, nil, DrainerConfig{
		Interval: 10 * time.Millisecond,
		LeaseTTL: time.Second,
	})
	defer drainer.Stop()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := backlog.Enqueue(ctx, "alice", time.Now().UnixMilli()); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	start := time.Now()
	drainer.Trigger("alice")

	waitFor(t, 5*time.Second, func() bool {
		return sink.count("alice") == 2
	}, "backlog to drain")

	// One burst slot per 40ms window forces at least one wait between the
	// two executions.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Expected drain to be paced by the rate limit, finished in %v", elapsed)
	}
}

func TestDrainerLeaseDeduplicates(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	sink := &recordingSink{}

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1000,
		BurstWindow:     time.Second,
		SustainedLimit:  1000,
		SustainedWindow: 60 * time.Second,
	})
	backlog := NewBacklog(st)
	drainer := NewDrainer(st, limiter, backlog, sink, nil, DrainerConfig{
		Interval: 10 * time.Millisecond,
		LeaseTTL: time.Second,
	})
	defer drainer.Stop()

	ctx := context.Background()
	if err := backlog.Enqueue(ctx, "alice", time.Now().UnixMilli()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Hold the lease as a foreign owner; the triggered drainer must back
	// off without touching the queue.
	acquired, err := st.AcquireLease(ctx, "alice", "foreign-owner", time.Second)
	if err != nil || !acquired {
		t.Fatalf("AcquireLease failed: acquired=%v err=%v", acquired, err)
	}

	drainer.Trigger("alice")
	time.Sleep(100 * time.Millisecond)

	if got := sink.count("alice"); got != 0 {
		t.Errorf("Expected no executions while lease is held elsewhere, got %d", got)
	}
	if n, _ := backlog.Length(ctx, "alice"); n != 1 {
		t.Errorf("Expected queue untouched, got length %d", n)
	}

	// Release and re-trigger; the drain proceeds normally.
	if err := st.ReleaseLease(ctx, "alice", "foreign-owner"); err != nil {
		t.Fatalf("ReleaseLease failed: %v", err)
	}
	drainer.Trigger("alice")

	waitFor(t, 5*time.Second, func() bool {
		return sink.count("alice") == 1
	}, "drain after lease release")
}

func TestDrainerGivesUpAfterRepeatedFailures(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	sink := &recordingSink{failErr: errors.New("sink down")}

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1000,
		BurstWindow:     time.Second,
		SustainedLimit:  1000,
		SustainedWindow: 60 * time.Second,
	})
	backlog := NewBacklog(st)
	drainer := NewDrainer(st, limiter, backlog, sink, nil, DrainerConfig{
		Interval:               5 * time.Millisecond,
		LeaseTTL:               time.Second,
		MaxConsecutiveFailures: 2,
		MaxBackoff:             10 * time.Millisecond,
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := backlog.Enqueue(ctx, "alice", time.Now().UnixMilli()); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	drainer.Trigger("alice")

	// With a budget of 2 the run ends quickly on its own.
	done := make(chan struct{})
	go func() {
		drainer.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Drain run did not give up within deadline")
	}
	drainer.Stop()

	// One marker is consumed per failed attempt, so the third entry
	// outlives the exhausted failure budget and waits for a later trigger.
	n, err := backlog.Length(ctx, "alice")
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 entry to remain after drain gave up, got %d", n)
	}
	if got := sink.count("alice"); got != 0 {
		t.Errorf("Expected no successful executions, got %d", got)
	}
}

func TestDrainerStopCancelsRun(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	sink := &recordingSink{}

	// A limiter that never admits keeps the drain loop in its wait state.
	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1,
		BurstWindow:     60 * time.Second,
		SustainedLimit:  1,
		SustainedWindow: 60 * time.Second,
	})
	if _, err := limiter.TryAdmit(context.Background(), "alice"); err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}

	backlog := NewBacklog(st)
	drainer := NewDrainer(st, limiter, backlog, sink, nil, DrainerConfig{
		Interval: 20 * time.Millisecond,
		LeaseTTL: time.Second,
	})

	if err := backlog.Enqueue(context.Background(), "alice", time.Now().UnixMilli()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	drainer.Trigger("alice")
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		drainer.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within deadline")
	}

	// Triggers after Stop are no-ops.
	drainer.Trigger("alice")
	if n, _ := backlog.Length(context.Background(), "alice"); n != 1 {
		t.Error("Expected queue untouched after Stop")
	}
}

func TestDrainerRestartsWhenQueueRefills(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	sink := &recordingSink{}

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1000,
		BurstWindow:     time.Second,
		SustainedLimit:  1000,
		SustainedWindow: 60 * time.Second,
	})
	backlog := NewBacklog(st)
	drainer := NewDrainer(st, limiter, backlog, sink, nil, DrainerConfig{
		Interval: 10 * time.Millisecond,
		LeaseTTL: time.Second,
	})
	defer drainer.Stop()

	ctx := context.Background()

	// Two separate trigger cycles against the same user exercise lease
	// reuse after a completed run.
	if err := backlog.Enqueue(ctx, "alice", time.Now().UnixMilli()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	drainer.Trigger("alice")
	waitFor(t, 5*time.Second, func() bool { return sink.count("alice") == 1 }, "first drain")

	if err := backlog.Enqueue(ctx, "alice", time.Now().UnixMilli()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	drainer.Trigger("alice")
	waitFor(t, 5*time.Second, func() bool { return sink.count("alice") == 2 }, "second drain")
}
