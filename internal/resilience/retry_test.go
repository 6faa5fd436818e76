package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBusy = errors.New("database is locked (5) (SQLITE_BUSY)")

func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts:       attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultPolicy(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls, retries int
	p := fastPolicy(3)
	p.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), p, func(_ context.Context) error {
		calls++
		return errBusy
	})
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if retries != 2 {
		t.Errorf("expected 2 retries, got %d", retries)
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(3), func(_ context.Context) error {
		calls++
		return errors.New("UNIQUE constraint failed: runs.id")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_CustomRetryable(t *testing.T) {
	var calls int
	p := fastPolicy(2)
	p.Retryable = func(error) bool { return true }

	_ = Do(context.Background(), p, func(_ context.Context) error {
		calls++
		return errors.New("anything")
	})
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_ContextCancelledStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	p := fastPolicy(5)
	p.InitialBackoff = time.Hour
	p.MaxBackoff = time.Hour
	p.OnRetry = func(int, error) { cancel() }

	err := Do(ctx, p, func(_ context.Context) error {
		calls++
		return errBusy
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	v, err := DoVal(context.Background(), fastPolicy(3), func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errBusy
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("expected ok, got %q", v)
	}
}

func TestWithDefaults(t *testing.T) {
	p := withDefaults(Policy{Jitter: -1})
	d := DefaultPolicy()
	if p.Attempts != d.Attempts || p.InitialBackoff != d.InitialBackoff ||
		p.MaxBackoff != d.MaxBackoff || p.Multiplier != d.Multiplier {
		t.Errorf("defaults not applied: %+v", p)
	}
	if p.Jitter != 0 {
		t.Errorf("negative jitter should clamp to 0, got %v", p.Jitter)
	}
}

func TestBackoff_Capped(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := backoff(i, p); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestBackoff_JitterWithinBounds(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2, Jitter: 0.5}
	for range 50 {
		d := backoff(0, p)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %v outside [50ms,150ms]", d)
		}
	}
}
