package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordCacheRequest("token_list", CacheHit)
	m.RecordCacheRequest("token_list", CacheHit)
	m.RecordCacheRequest("token_list", CacheMiss)
	m.RecordRetryAttempt("token list")
	m.RecordResolve("api")
	m.RecordLoad(map[string]int{"external": 12, "curated": 3}, 0.5, 1700000000)
	m.RecordDBQuery("postgres", "list", 0.01, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("token_list", CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("token_list", CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetryAttempts.WithLabelValues("token list")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveTotal.WithLabelValues("api")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.TokensLoaded.WithLabelValues("external")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastSuccessfulLoad))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "list")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCacheRequest("c", CacheHit)
		m.RecordRetryAttempt("op")
		m.RecordResolve("table")
		m.RecordLoad(nil, 0, 0)
		m.RecordRPCLatency("getAccountInfo", 0.1)
		m.RecordAPILatency("mint/ids", 0.1)
		m.RecordDBQuery("postgres", "list", 0.1, nil)
	})
}
