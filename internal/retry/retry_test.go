package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"solana-pool-resolver/internal/clock"
)

var errTransient = errors.New("transient")

// failingOp fails the first n calls, then returns value.
func failingOp(n int, value string, calls *int) Op[string] {
	return func(context.Context) (string, error) {
		*calls++
		if *calls <= n {
			return "", errTransient
		}
		return value, nil
	}
}

func TestForever_ImmediateSuccess(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	calls := 0

	v, err := Forever(context.Background(), "op", failingOp(0, "ok", &calls), WithClock(fake))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
	assert.Empty(t, fake.Sleeps())
}

func TestForever_RetriesUntilSuccess(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	core, logs := observer.New(zap.WarnLevel)
	calls := 0

	v, err := Forever(context.Background(), "token list", failingOp(4, "list", &calls),
		WithClock(fake),
		WithLogger(zap.New(core)),
		WithInterval(250*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, "list", v)
	assert.Equal(t, 5, calls)

	sleeps := fake.Sleeps()
	require.Len(t, sleeps, 4)
	for _, d := range sleeps {
		assert.Equal(t, 250*time.Millisecond, d)
	}

	require.Equal(t, 4, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "token list", entry.ContextMap()["operation"])
	assert.Equal(t, "transient", entry.ContextMap()["error"])
}

func TestForever_DefaultInterval(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	calls := 0

	_, err := Forever(context.Background(), "op", failingOp(1, "ok", &calls), WithClock(fake))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultInterval}, fake.Sleeps())
}

func TestForever_CancelledContext(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	op := func(context.Context) (int, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return 0, errTransient
	}

	_, err := Forever(ctx, "op", op, WithClock(fake))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestBounded_Exhausted(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	calls := 0

	_, err := Bounded(context.Background(), "op", 3, failingOp(10, "x", &calls), WithClock(fake))
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	assert.Len(t, fake.Sleeps(), 2)
}

func TestBounded_SucceedsWithinLimit(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	calls := 0

	v, err := Bounded(context.Background(), "op", 3, failingOp(2, "x", &calls), WithClock(fake))
	require.NoError(t, err)
	assert.Equal(t, "x", v)
	assert.Equal(t, 3, calls)
}
