package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busboard.hk/internal/clock"
)

func newTestRetrier() (*Retrier, *clock.MockClock) {
	mc := clock.NewMockClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	return New(mc, nil, nil), mc
}

func TestDo_FailsTwiceThenSucceeds(t *testing.T) {
	r, mc := newTestRetrier()

	calls := 0
	got, err := Do(context.Background(), r, "catalog", DefaultPolicy(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "routes", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "routes", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, mc.Waits())
}

func TestDo_SucceedsFirstTimeWithoutWaiting(t *testing.T) {
	r, mc := newTestRetrier()

	got, err := Do(context.Background(), r, "stop", DefaultPolicy(), func(context.Context) (int, error) {
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Empty(t, mc.Waits())
}

func TestDo_ExhaustsBudget(t *testing.T) {
	r, mc := newTestRetrier()
	cause := errors.New("503 Service Unavailable")

	calls := 0
	_, err := Do(context.Background(), r, "catalog", DefaultPolicy(), func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, cause
	})

	require.Error(t, err)
	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "catalog", exhausted.Operation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
	assert.Len(t, mc.Waits(), 2)
}

func TestDo_PermanentErrorIsNotRetried(t *testing.T) {
	r, mc := newTestRetrier()
	decodeErr := errors.New("unexpected end of JSON input")

	calls := 0
	_, err := Do(context.Background(), r, "catalog", DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(decodeErr)
	})

	require.Error(t, err)
	assert.Equal(t, decodeErr, err)
	var exhausted *RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	assert.Equal(t, 1, calls)
	assert.Empty(t, mc.Waits())
}

func TestDo_SingleAttempt(t *testing.T) {
	r, mc := newTestRetrier()

	calls := 0
	_, err := Do(context.Background(), r, "probe", Single(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("timeout")
	})

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, mc.Waits())
}

func TestDo_ZeroAttemptsTreatedAsOne(t *testing.T) {
	r, _ := newTestRetrier()

	calls := 0
	_, err := Do(context.Background(), r, "probe", Policy{}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	r, _ := newTestRetrier()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, r, "eta", DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("interrupted")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ObserverSeesEachRetry(t *testing.T) {
	mc := clock.NewMockClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	var seen []int
	r := New(mc, nil, func(op string, attempt int, err error, wait time.Duration) {
		assert.Equal(t, "catalog", op)
		assert.Equal(t, 250*time.Millisecond, wait)
		seen = append(seen, attempt)
	})

	_, _ = Do(context.Background(), r, "catalog", Policy{Attempts: 3, Delay: 250 * time.Millisecond}, func(context.Context) (int, error) {
		return 0, errors.New("down")
	})

	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_RealClockWaits(t *testing.T) {
	r := New(clock.RealClock{}, nil, nil)

	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), r, "catalog", Policy{Attempts: 2, Delay: 20 * time.Millisecond}, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("flaky")
		}
		return 1, nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
