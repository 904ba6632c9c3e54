package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()

	m.ObserveRun("1m", "completed", 2*time.Second)
	m.ObserveRun("1m", "completed", time.Second)
	m.ObserveRun("1d", "aborted", time.Second)
	m.AddCandles("1m", 500)
	m.AddCandles("1m", 0)
	m.RunSkipped("30m")
	m.CacheResult("hit")
	m.CacheResult("hit")
	m.CacheResult("miss")
	m.PublishResult("queued", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("1m", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("1d", "aborted")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.candlesTotal.WithLabelValues("1m")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsSkipped.WithLabelValues("30m")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.publishEvents.WithLabelValues("queued")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveRun("1m", "completed", time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `market_data_ingest_runs_total{interval="1m",state="completed"} 1`)
	assert.Contains(t, string(body), "market_data_ingest_run_duration_seconds_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}
