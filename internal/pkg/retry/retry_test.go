package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func recordingSleep(delays *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestDo_BackoffDoublesUpToMaxDelay(t *testing.T) {
	var delays []time.Duration
	r := New(Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}, recordingSleep(&delays))

	err := r.Do(context.Background(), "list-loans", func(context.Context) error { return errBoom })

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, delays)
}

func TestDo_SingleAttemptNeverWaits(t *testing.T) {
	var delays []time.Duration
	r := New(Policy{MaxAttempts: 1, BaseDelay: time.Second}, recordingSleep(&delays))

	calls := 0
	err := r.Do(context.Background(), "get-loan", func(context.Context) error {
		calls++
		return errBoom
	})

	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	var delays []time.Duration
	r := New(Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}, recordingSleep(&delays))

	calls := 0
	err := r.Do(context.Background(), "get-loan", func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
}

func TestDo_Exhausted(t *testing.T) {
	var delays []time.Duration
	r := New(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, recordingSleep(&delays))

	calls := 0
	err := r.Do(context.Background(), "list-loans", func(context.Context) error {
		calls++
		return errBoom
	})

	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errBoom)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "list-loans", exhausted.Op)
}

func TestDo_TerminalErrorShortCircuits(t *testing.T) {
	r := New(Policy{MaxAttempts: 3}, WithSleep(func(context.Context, time.Duration) error {
		t.Fatal("terminal errors must not back off")
		return nil
	}))

	calls := 0
	err := r.Do(context.Background(), "get-loan", func(context.Context) error {
		calls++
		return Terminal(errBoom)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDo_ClassifierDecides(t *testing.T) {
	errNotFound := errors.New("not found")
	r := New(Policy{MaxAttempts: 3}, WithClassifier(func(err error) bool {
		return !errors.Is(err, errNotFound)
	}))

	calls := 0
	err := r.Do(context.Background(), "get-loan", func(context.Context) error {
		calls++
		return errNotFound
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errNotFound)
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	r := New(Policy{MaxAttempts: 2, AttemptTimeout: 20 * time.Millisecond}, WithSleep(func(context.Context, time.Duration) error {
		return nil
	}))

	var deadlines int
	err := r.Do(context.Background(), "slow", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			deadlines++
		}
		<-ctx.Done()
		return ctx.Err()
	})

	assert.Equal(t, 2, deadlines)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestDo_ObserverSeesEveryAttempt(t *testing.T) {
	var seen []int
	r := New(Policy{MaxAttempts: 3},
		WithSleep(func(context.Context, time.Duration) error { return nil }),
		WithObserver(func(_ string, attempt int, _ error) { seen = append(seen, attempt) }),
	)

	_ = r.Do(context.Background(), "op", func(context.Context) error { return errBoom })
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestDo_ParentCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Policy{MaxAttempts: 3, BaseDelay: time.Hour})

	calls := 0
	err := r.Do(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errBoom
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
