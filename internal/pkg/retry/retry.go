// Package retry runs remote calls under a bounded exponential backoff
// (cenkalti/backoff) with a per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is matched by the error returned when every attempt failed
var ErrExhausted = errors.New("retries exhausted")

// Policy bounds a retried call
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

// DefaultPolicy is three attempts, 200ms doubling to at most 2s, 5s per attempt
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		AttemptTimeout: 5 * time.Second,
	}
}

// Classifier reports whether a failed attempt may be retried
type Classifier func(err error) bool

// AlwaysRetry treats every failure as retryable
func AlwaysRetry(error) bool { return true }

// Terminal marks an error as not worth retrying
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// IsTerminal reports whether err was wrapped with Terminal
func IsTerminal(err error) bool {
	var t *terminalError
	return errors.As(err, &t)
}

// ExhaustedError is returned after the last attempt failed
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts failed: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error { return []error{ErrExhausted, e.Last} }

// Observer is notified after every attempt
type Observer func(op string, attempt int, err error)

// Retrier executes operations under a Policy
type Retrier struct {
	policy    Policy
	retryable Classifier
	logger    *slog.Logger
	observe   Observer
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Retrier
type Option func(*Retrier)

// WithClassifier sets the retryable-vs-terminal classifier
func WithClassifier(c Classifier) Option {
	return func(r *Retrier) { r.retryable = c }
}

// WithLogger sets the logger used for retry warnings
func WithLogger(l *slog.Logger) Option {
	return func(r *Retrier) { r.logger = l }
}

// WithObserver registers a per-attempt hook, used for metrics
func WithObserver(o Observer) Option {
	return func(r *Retrier) { r.observe = o }
}

// WithSleep replaces the backoff wait. Tests use it to record delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = fn }
}

// New creates a Retrier. Errors wrapped with Terminal are never retried,
// whatever the classifier says.
func New(policy Policy, opts ...Option) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	r := &Retrier{
		policy:    policy,
		retryable: AlwaysRetry,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the retrier's policy
func (r *Retrier) Policy() Policy { return r.policy }

// Do runs fn until it succeeds, fails terminally or the attempts run out.
// Each attempt gets its own context bounded by the attempt timeout.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var (
		last     error
		attempts int
		terminal bool
	)

	operation := func() error {
		attempts++
		last = r.attempt(ctx, fn)
		if r.observe != nil {
			r.observe(op, attempts, last)
		}
		if last == nil {
			return nil
		}
		if IsTerminal(last) || !r.retryable(last) {
			terminal = true
			return backoff.Permanent(last)
		}
		return last
	}

	notify := func(err error, delay time.Duration) {
		r.logger.Warn("remote call failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempts),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, r.backOff(ctx), notify, r.timer(ctx))
	switch {
	case err == nil:
		return nil
	case terminal:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	return &ExhaustedError{Op: op, Attempts: attempts, Last: last}
}

// backOff doubles from BaseDelay up to MaxDelay without jitter and stops
// after MaxAttempts calls or when ctx is done.
func (r *Retrier) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseDelay
	b.MaxInterval = r.policy.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = backoff.DefaultMaxInterval
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.policy.MaxAttempts-1)), ctx)
}

// timer is nil, the library's real timer, unless a sleep was injected
func (r *Retrier) timer(ctx context.Context) backoff.Timer {
	if r.sleep == nil {
		return nil
	}
	return &sleepTimer{ctx: ctx, sleep: r.sleep}
}

func (r *Retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// sleepTimer adapts an injected sleep to backoff.Timer
type sleepTimer struct {
	ctx   context.Context
	sleep func(ctx context.Context, d time.Duration) error
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	// a cancelled ctx is picked up by the caller's select
	_ = t.sleep(t.ctx, d)
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.c }
