// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func transientAll(error) bool { return true }

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()
	x := New(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, WithClassifier(transientAll))
	calls := 0
	err := x.Do(context.Background(), "noop", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_TransientFailuresThenSuccess(t *testing.T) {
	t.Parallel()
	x := New(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, WithClassifier(transientAll))
	calls := 0
	err := x.Do(context.Background(), "flaky", func(context.Context) error {
		calls++
		if calls <= 2 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Fails twice, succeeds on the third attempt: exactly 2 delayed retries.
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	t.Parallel()
	x := New(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, WithClassifier(transientAll))
	calls := 0
	err := x.Do(context.Background(), "always-fails", func(context.Context) error {
		calls++
		return errBoom
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got: %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected cause chain to contain errBoom, got: %v", err)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected *ExhaustedError, got %T", err)
	}
	if ex.Operation != "always-fails" || ex.Attempts != 3 {
		t.Fatalf("unexpected error context: %+v", ex)
	}
}

func TestDo_FatalErrorZeroRetries(t *testing.T) {
	t.Parallel()
	x := New(Policy{MaxAttempts: 5, BaseDelay: time.Millisecond},
		WithClassifier(func(err error) bool { return false }))
	calls := 0
	err := x.Do(context.Background(), "fatal", func(context.Context) error {
		calls++
		return errBoom
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom in chain, got: %v", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("fatal error must not be reported as exhaustion: %v", err)
	}
}

func TestDo_SelectiveClassifier(t *testing.T) {
	t.Parallel()
	errFatal := errors.New("fatal")
	x := New(Policy{MaxAttempts: 4, BaseDelay: time.Millisecond},
		WithClassifier(func(err error) bool { return errors.Is(err, errBoom) }))
	calls := 0
	err := x.Do(context.Background(), "mixed", func(context.Context) error {
		calls++
		if calls == 1 {
			return errBoom // transient, retried
		}
		return errFatal // fatal, stops immediately
	})
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if !errors.Is(err, errFatal) {
		t.Fatalf("expected errFatal, got: %v", err)
	}
}

func TestDo_ContextCanceledBetweenAttempts(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	x := New(Policy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond}, WithClassifier(transientAll))
	calls := 0
	err := x.Do(ctx, "canceled", func(context.Context) error {
		calls++
		cancel()
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_BackoffGrowsExponentially(t *testing.T) {
	t.Parallel()
	var delays []time.Duration
	x := New(Policy{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, GrowthFactor: 2},
		WithClassifier(transientAll),
		withSleep(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))
	_ = x.Do(context.Background(), "growth", func(context.Context) error { return errBoom })

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d delays, got %d: %v", len(want), len(delays), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: expected %s, got %s", i, want[i], delays[i])
		}
	}
}

func TestDo_JitterStaysWithinBounds(t *testing.T) {
	t.Parallel()
	var delays []time.Duration
	x := New(Policy{MaxAttempts: 20, BaseDelay: 100 * time.Millisecond, GrowthFactor: 1, JitterFraction: 0.5},
		WithClassifier(transientAll),
		withSleep(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))
	_ = x.Do(context.Background(), "jitter", func(context.Context) error { return errBoom })

	for _, d := range delays {
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %s outside ±50%% of base", d)
		}
	}
}

func TestDoValue_ReturnsResult(t *testing.T) {
	t.Parallel()
	x := New(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, WithClassifier(transientAll))
	calls := 0
	got, err := DoValue(context.Background(), x, "value", func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errBoom
		}
		return "ready", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ready" {
		t.Fatalf("expected %q, got %q", "ready", got)
	}
}
