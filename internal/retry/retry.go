// Package retry wraps idempotent reads in fixed-interval retry loops.
//
// Forever never surfaces an operation error: it blocks until the operation
// succeeds or the caller's context is done. Use it only for side-effect-free
// reads where waiting is preferable to failing, never for writes.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-pool-resolver/internal/clock"
	"solana-pool-resolver/internal/observability"
)

// DefaultInterval is the delay between attempts.
const DefaultInterval = 1 * time.Second

// ErrAttemptsExhausted is returned by Bounded after the last failed attempt.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Op is a retried operation.
type Op[T any] func(ctx context.Context) (T, error)

type options struct {
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// Option configures a retry loop.
type Option func(*options)

// WithInterval sets the fixed delay between attempts.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithClock sets the clock used for sleeping.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger that receives one warning per failed attempt.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics sink for failed attempts.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{
		interval: DefaultInterval,
		clock:    clock.Real{},
		logger:   zap.NewNop(),
		metrics:  observability.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.interval < 0 {
		o.interval = 0
	}
	return o
}

// Forever calls op until it succeeds. Each failure is logged with name and
// followed by a fixed sleep. The only error returned is ctx.Err() once the
// caller abandons the wait.
func Forever[T any](ctx context.Context, name string, op Op[T], opts ...Option) (T, error) {
	o := buildOptions(opts)

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		o.fail(name, attempt, err)

		if err := o.clock.Sleep(ctx, o.interval); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Bounded calls op at most maxAttempts times with the same logging and
// spacing as Forever. After the last failure it returns an error wrapping
// ErrAttemptsExhausted and the operation's final error.
func Bounded[T any](ctx context.Context, name string, maxAttempts int, op Op[T], opts ...Option) (T, error) {
	o := buildOptions(opts)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		o.fail(name, attempt, err)

		if attempt >= maxAttempts {
			return zero, fmt.Errorf("%s: %w after %d attempts: %w", name, ErrAttemptsExhausted, attempt, err)
		}
		if err := o.clock.Sleep(ctx, o.interval); err != nil {
			return zero, err
		}
	}
}

func (o *options) fail(name string, attempt int, err error) {
	o.logger.Warn("operation failed, retrying",
		zap.String("operation", name),
		zap.Int("attempt", attempt),
		zap.Duration("interval", o.interval),
		zap.Error(err),
	)
	o.metrics.RecordRetryAttempt(name)
}
