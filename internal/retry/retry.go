// Package retry runs an idempotent read with a bounded number of attempts
// and a fixed delay between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"busboard.hk/internal/clock"
	"busboard.hk/internal/logging"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Policy is a fixed retry budget. Attempts counts the first call.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy returns three attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Single is a policy that never retries.
func Single() Policy {
	return Policy{Attempts: 1}
}

// RetryExhaustedError is returned when every attempt failed.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempt(s): %v", e.Operation, e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

// Permanent marks err as not worth retrying. Do returns the wrapped error as is.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Observer is notified before each wait. attempt is the 1-based attempt that just failed.
type Observer func(operation string, attempt int, err error, wait time.Duration)

// Retrier executes operations under a Policy. The zero value is not usable; use New.
type Retrier struct {
	clock    clock.Clock
	logger   *slog.Logger
	observer Observer
}

// New returns a Retrier that waits on clk and logs retries to logger.
func New(clk clock.Clock, logger *slog.Logger, observer Observer) *Retrier {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		clock:    clk,
		logger:   logger.With(slog.String("component", "retry")),
		observer: observer,
	}
}

// Do calls op until it succeeds, returns a Permanent error, the context ends,
// or the policy's attempts are used up. Only the last case produces a
// *RetryExhaustedError.
func Do[T any](ctx context.Context, r *Retrier, operation string, p Policy, op func(context.Context) (T, error)) (T, error) {
	if r == nil {
		r = New(nil, nil, nil)
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		tries     int
		permanent bool
	)
	wrapped := func() (T, error) {
		tries++
		v, err := op(ctx)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			permanent = true
		}
		return v, err
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("retrying after failure",
			slog.String("operation", operation),
			slog.Int("attempt", tries),
			slog.Int("max_attempts", attempts),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
		if r.observer != nil {
			r.observer(operation, tries, err, wait)
		}
	}

	v, err := backoff.RetryNotifyWithTimerAndData(wrapped, b, notify, &clockTimer{clock: r.clock})
	if err == nil {
		return v, nil
	}
	if permanent || ctx.Err() != nil {
		return v, err
	}

	if tries > 1 {
		logging.LogError(r.logger, "retry budget exhausted", err,
			slog.String("operation", operation),
			slog.Int("attempts", tries))
	}
	return v, &RetryExhaustedError{Operation: operation, Attempts: tries, Cause: err}
}

// clockTimer lets backoff wait on a clock.Clock instead of the wall clock.
type clockTimer struct {
	clock clock.Clock
	timer clock.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	t.timer = t.clock.NewTimer(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.C()
}
