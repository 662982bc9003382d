package ttlcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pool-resolver/internal/clock"
	"solana-pool-resolver/internal/observability"
)

var errUpstream = errors.New("upstream down")

type counter struct {
	calls int
	fail  bool
}

func (c *counter) fetch(context.Context) (int, error) {
	c.calls++
	if c.fail {
		return 0, errUpstream
	}
	return c.calls * 10, nil
}

func TestFresh(t *testing.T) {
	entry := &Entry[int]{FetchedAtMillis: 1000, Value: 1}

	tests := []struct {
		name  string
		entry *Entry[int]
		ttl   time.Duration
		now   int64
		want  bool
	}{
		{"nil entry", nil, time.Minute, 1000, false},
		{"nil entry never expire", nil, NeverExpire, 1000, false},
		{"within ttl", entry, time.Second, 1500, true},
		{"exactly at ttl", entry, time.Second, 2000, true},
		{"past ttl", entry, time.Second, 2001, false},
		{"zero ttl", entry, 0, 1000, false},
		{"never expire old entry", entry, NeverExpire, 1 << 50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fresh(tt.entry, tt.ttl, tt.now))
		})
	}
}

func TestGetOrFetch_WithinTTL(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(1_000_000))
	c := &counter{}
	ctx := context.Background()

	v, entry, err := GetOrFetch(ctx, fake, nil, 5*time.Minute, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, int64(1_000_000), entry.FetchedAtMillis)

	for i := 0; i < 5; i++ {
		fake.Advance(time.Minute)
		var next *Entry[int]
		v, next, err = GetOrFetch(ctx, fake, entry, 5*time.Minute, c.fetch)
		require.NoError(t, err)
		assert.Equal(t, 10, v)
		assert.Same(t, entry, next)
	}
	assert.Equal(t, 1, c.calls)

	fake.Advance(time.Millisecond)
	v, next, err := GetOrFetch(ctx, fake, entry, 5*time.Minute, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, 2, c.calls)
	assert.NotSame(t, entry, next)
	assert.Equal(t, clock.Millis(fake.Now()), next.FetchedAtMillis)
}

func TestGetOrFetch_FailureKeepsStale(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	c := &counter{}
	ctx := context.Background()

	_, entry, err := GetOrFetch(ctx, fake, nil, time.Second, c.fetch)
	require.NoError(t, err)

	fake.Advance(time.Hour)
	c.fail = true
	_, after, err := GetOrFetch(ctx, fake, entry, time.Second, c.fetch)
	assert.ErrorIs(t, err, errUpstream)
	assert.Same(t, entry, after)
	assert.Equal(t, 10, after.Value)
}

func TestGetOrFetch_FailureWithoutEntry(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	c := &counter{fail: true}

	_, entry, err := GetOrFetch(context.Background(), fake, nil, time.Second, c.fetch)
	assert.ErrorIs(t, err, errUpstream)
	assert.Nil(t, entry)
}

func TestGetOrFetch_ZeroTTLAlwaysFetches(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	c := &counter{}
	ctx := context.Background()

	_, entry, err := GetOrFetch(ctx, fake, nil, 0, c.fetch)
	require.NoError(t, err)
	_, _, err = GetOrFetch(ctx, fake, entry, 0, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, c.calls)
}

func TestGetOrFetch_NeverExpire(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	c := &counter{}
	ctx := context.Background()

	_, entry, err := GetOrFetch(ctx, fake, nil, NeverExpire, c.fetch)
	require.NoError(t, err)

	fake.Advance(24 * 365 * time.Hour)
	v, _, err := GetOrFetch(ctx, fake, entry, NeverExpire, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.calls)
}

func TestCache_GetRefreshAndMetrics(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(0))
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	cache := New[int]("token_list", time.Minute, WithClock(fake), WithMetrics(metrics))
	c := &counter{}
	ctx := context.Background()

	assert.Nil(t, cache.Peek())

	v, err := cache.Get(ctx, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = cache.Get(ctx, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.calls)

	v, err = cache.Refresh(ctx, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	c.fail = true
	_, err = cache.Refresh(ctx, c.fetch)
	assert.ErrorIs(t, err, errUpstream)
	require.NotNil(t, cache.Peek())
	assert.Equal(t, 20, cache.Peek().Value)

	v, err = cache.Get(ctx, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("token_list", observability.CacheHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("token_list", observability.CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("token_list", observability.CacheError)))
	assert.Equal(t, time.Minute, cache.TTL())
	assert.Equal(t, "token_list", cache.Name())
}
