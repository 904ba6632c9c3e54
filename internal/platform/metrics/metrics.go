// Package metrics はPrometheusの計測値（取り込み・キャッシュ・配信）を提供します。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "market_data"

// Metrics は取り込みパイプラインの指標集合です。
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runsSkipped   *prometheus.CounterVec
	candlesTotal  *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	publishEvents *prometheus.CounterVec
}

// New は専用のレジストリに指標を登録して返します。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by interval and final state",
		}, []string{"interval", "state"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Ingestion run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"interval"}),
		runsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_skipped_total",
			Help:      "Scheduled runs skipped because the previous run was still active",
		}, []string{"interval"}),
		candlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_candles_total",
			Help:      "Candles upserted by interval",
		}, []string{"interval"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Candle cache lookups by result",
		}, []string{"result"}),
		publishEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_events_total",
			Help:      "Price update events by publish result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsTotal,
		m.runDuration,
		m.runsSkipped,
		m.candlesTotal,
		m.cacheRequests,
		m.publishEvents,
	)
	return m
}

// ObserveRun records a finished ingestion run.
func (m *Metrics) ObserveRun(interval, state string, d time.Duration) {
	m.runsTotal.WithLabelValues(interval, state).Inc()
	m.runDuration.WithLabelValues(interval).Observe(d.Seconds())
}

func (m *Metrics) AddCandles(interval string, n int) {
	if n <= 0 {
		return
	}
	m.candlesTotal.WithLabelValues(interval).Add(float64(n))
}

func (m *Metrics) RunSkipped(interval string) {
	m.runsSkipped.WithLabelValues(interval).Inc()
}

func (m *Metrics) CacheResult(result string) {
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) PublishResult(result string, n int) {
	if n <= 0 {
		return
	}
	m.publishEvents.WithLabelValues(result).Add(float64(n))
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用のHTTPハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
