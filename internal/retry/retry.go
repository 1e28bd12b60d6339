// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ErrExhausted is the sentinel matched by errors.Is when an operation
// failed on every attempt allowed by its policy.
var ErrExhausted = errors.New("retry budget exhausted")

type (
	// Policy bounds the retry behavior for one operation.
	Policy struct {
		// MaxAttempts is the total number of attempts, including the first.
		MaxAttempts int
		// BaseDelay is the delay before the second attempt.
		BaseDelay time.Duration
		// GrowthFactor multiplies the delay after each failed attempt.
		// Values below 1 are treated as 2.
		GrowthFactor float64
		// JitterFraction is the symmetric random jitter applied to each
		// delay (0.5 means ±50%). Jitter prevents synchronized retry
		// storms across concurrent sessions. Zero disables jitter.
		JitterFraction float64
	}

	// Classifier reports whether an error is transient and worth retrying.
	Classifier func(error) bool

	// Executor runs operations under a Policy. It holds no per-operation
	// state and is safe for concurrent use from independent sessions.
	Executor struct {
		policy   Policy
		classify Classifier
		logger   *slog.Logger
		sleep    func(ctx context.Context, d time.Duration) error
	}

	// Option configures an Executor during construction.
	Option func(*Executor)

	// ExhaustedError carries the context the caller needs to report a
	// terminal failure: which operation, how many attempts, and how much
	// time was spent waiting between them. It matches ErrExhausted via
	// errors.Is and unwraps to the last underlying error.
	ExhaustedError struct {
		Operation string
		Attempts  int
		Elapsed   time.Duration
		Cause     error
	}
)

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempt(s) over %s: %v",
		e.Operation, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Cause)
}

// Unwrap returns the last underlying error so callers can inspect the
// original cause chain with errors.Is/As.
func (e *ExhaustedError) Unwrap() error { return e.Cause }

// Is matches ErrExhausted in addition to the unwrapped cause chain.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// WithClassifier sets the transient-error classifier. The default
// classifier treats no error as transient, making every failure fatal.
func WithClassifier(c Classifier) Option {
	return func(x *Executor) { x.classify = c }
}

// WithLogger sets the logger used for per-attempt log entries.
func WithLogger(l *slog.Logger) Option {
	return func(x *Executor) { x.logger = l }
}

// withSleep overrides the delay function. Test seam.
func withSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(x *Executor) { x.sleep = f }
}

// New creates an Executor for the given policy.
func New(policy Policy, opts ...Option) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.GrowthFactor < 1 {
		policy.GrowthFactor = 2
	}
	x := &Executor{
		policy:   policy,
		classify: func(error) bool { return false },
		logger:   slog.Default(),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Policy returns the executor's policy.
func (x *Executor) Policy() Policy { return x.policy }

// Do runs op under the executor's policy. On success it returns nil. A
// non-transient failure is returned immediately, wrapped with the
// operation name. A transient failure is retried after an exponentially
// growing, jittered delay; once attempts are exhausted the last error is
// returned inside an *ExhaustedError. Cancellation is honored between
// attempts, never mid-operation.
func (x *Executor) Do(ctx context.Context, name string, op func(context.Context) error) error {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= x.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := x.delay(attempt - 1)
			x.logger.Debug("retrying operation",
				"operation", name, "attempt", attempt, "delay", delay)
			if err := x.sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: retry aborted: %w", name, err)
			}
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				x.logger.Info("operation succeeded after retry",
					"operation", name, "attempt", attempt)
			}
			return nil
		}
		if !x.classify(err) {
			x.logger.Debug("operation failed with non-transient error",
				"operation", name, "attempt", attempt, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}

		x.logger.Warn("operation failed with transient error",
			"operation", name, "attempt", attempt,
			"max_attempts", x.policy.MaxAttempts, "error", err)
		lastErr = err
	}

	return &ExhaustedError{
		Operation: name,
		Attempts:  x.policy.MaxAttempts,
		Elapsed:   time.Since(start),
		Cause:     lastErr,
	}
}

// DoValue runs op under x's policy and returns its value. It is a free
// function because Go methods cannot be generic.
func DoValue[T any](ctx context.Context, x *Executor, name string, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := x.Do(ctx, name, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		return *new(T), err
	}
	return result, nil
}

// delay computes the backoff before attempt number failed+1, where failed
// counts completed failed attempts: base * growth^(failed-1), with
// symmetric jitter applied last.
func (x *Executor) delay(failed int) time.Duration {
	d := float64(x.policy.BaseDelay)
	for i := 1; i < failed; i++ {
		d *= x.policy.GrowthFactor
	}
	if j := x.policy.JitterFraction; j > 0 {
		// Uniform in [1-j, 1+j].
		d *= 1 - j + 2*j*rand.Float64()
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
