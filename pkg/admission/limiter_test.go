package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskgate-hq/taskgate/pkg/store"
)

// ============================================================================
// Limiter Tests
// ============================================================================

func TestLimiterBurstLimit(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1,
		BurstWindow:     time.Second,
		SustainedLimit:  100,
		SustainedWindow: 60 * time.Second,
	})

	ctx := context.Background()

	admitted, err := limiter.TryAdmit(ctx, "alice")
	if err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	if !admitted {
		t.Fatal("Expected first admission to be allowed")
	}

	admitted, err = limiter.TryAdmit(ctx, "alice")
	if err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	if admitted {
		t.Error("Expected second admission within burst window to be denied")
	}
}

func TestLimiterSustainedLimit(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	// Burst window too small to ever trip; only the sustained cap binds.
	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      100,
		BurstWindow:     time.Millisecond,
		SustainedLimit:  3,
		SustainedWindow: 60 * time.Second,
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		admitted, err := limiter.TryAdmit(ctx, "alice")
		if err != nil {
			t.Fatalf("TryAdmit %d failed: %v", i, err)
		}
		if !admitted {
			t.Fatalf("Expected admission %d to be allowed", i)
		}
		time.Sleep(2 * time.Millisecond)
	}

	admitted, err := limiter.TryAdmit(ctx, "alice")
	if err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	if admitted {
		t.Error("Expected admission over sustained limit to be denied")
	}
}

func TestLimiterDenialLeavesNoRecord(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1,
		BurstWindow:     time.Second,
		SustainedLimit:  100,
		SustainedWindow: 60 * time.Second,
	})

	ctx := context.Background()

	if _, err := limiter.TryAdmit(ctx, "alice"); err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := limiter.TryAdmit(ctx, "alice"); err != nil {
			t.Fatalf("TryAdmit failed: %v", err)
		}
	}

	if count := st.AdmissionCount("alice"); count != 1 {
		t.Errorf("Expected 1 admission record after denials, got %d", count)
	}
}

func TestLimiterUserIsolation(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1,
		BurstWindow:     time.Second,
		SustainedLimit:  100,
		SustainedWindow: 60 * time.Second,
	})

	ctx := context.Background()

	if admitted, _ := limiter.TryAdmit(ctx, "alice"); !admitted {
		t.Fatal("Expected alice's first admission to be allowed")
	}
	if admitted, _ := limiter.TryAdmit(ctx, "alice"); admitted {
		t.Fatal("Expected alice's second admission to be denied")
	}

	admitted, err := limiter.TryAdmit(ctx, "bob")
	if err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	if !admitted {
		t.Error("Expected bob to be unaffected by alice's limit")
	}
}

func TestLimiterMissingUser(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	limiter := NewLimiter(st, LimiterConfig{})

	_, err := limiter.TryAdmit(context.Background(), "")
	if !errors.Is(err, ErrMissingUser) {
		t.Errorf("Expected ErrMissingUser, got %v", err)
	}
}

func TestLimiterStoreError(t *testing.T) {
	limiter := NewLimiter(&failingStore{}, LimiterConfig{})

	_, err := limiter.TryAdmit(context.Background(), "alice")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestLimiterUpdateLimits(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	limiter := NewLimiter(st, LimiterConfig{
		BurstLimit:      1,
		BurstWindow:     time.Second,
		SustainedLimit:  100,
		SustainedWindow: 60 * time.Second,
	})

	ctx := context.Background()

	if admitted, _ := limiter.TryAdmit(ctx, "alice"); !admitted {
		t.Fatal("Expected first admission to be allowed")
	}
	if admitted, _ := limiter.TryAdmit(ctx, "alice"); admitted {
		t.Fatal("Expected second admission to be denied")
	}

	limiter.UpdateLimits(LimiterConfig{
		BurstLimit:      10,
		BurstWindow:     time.Second,
		SustainedLimit:  100,
		SustainedWindow: 60 * time.Second,
	})

	admitted, err := limiter.TryAdmit(ctx, "alice")
	if err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	if !admitted {
		t.Error("Expected admission to be allowed under raised limit")
	}

	if got := limiter.Limits().BurstLimit; got != 10 {
		t.Errorf("Expected BurstLimit 10, got %d", got)
	}
}

func TestLimiterConfigDefaults(t *testing.T) {
	limiter := NewLimiter(store.NewMemoryStore(), LimiterConfig{})

	cfg := limiter.Limits()
	if cfg.BurstLimit != 1 {
		t.Errorf("Expected default BurstLimit 1, got %d", cfg.BurstLimit)
	}
	if cfg.BurstWindow != time.Second {
		t.Errorf("Expected default BurstWindow 1s, got %v", cfg.BurstWindow)
	}
	if cfg.SustainedLimit != 20 {
		t.Errorf("Expected default SustainedLimit 20, got %d", cfg.SustainedLimit)
	}
	if cfg.SustainedWindow != 60*time.Second {
		t.Errorf("Expected default SustainedWindow 60s, got %v", cfg.SustainedWindow)
	}
}

// ============================================================================
// Test Helpers
// ============================================================================

// failingStore fails every operation. Methods not overridden panic via the
// embedded nil interface, which is fine: a test reaching them is a bug.
type failingStore struct {
	store.Store
}

func (f *failingStore) ConditionalAdmit(ctx context.Context, user string, nowMs, burstWindowMs, burstLimit, sustainedWindowMs, sustainedLimit int64) (bool, error) {
	return false, errors.New("store down")
}

func (f *failingStore) AppendToQueue(ctx context.Context, user string, markerMs int64) error {
	return errors.New("store down")
}

func (f *failingStore) QueueLength(ctx context.Context, user string) (int64, error) {
	return 0, errors.New("store down")
}
