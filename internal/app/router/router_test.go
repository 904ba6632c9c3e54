package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/scheduler"
	candleshandler "market_data/internal/feature/candles/transport/handler"
	"market_data/internal/feature/candles/usecase"
	instrumentsentity "market_data/internal/feature/instruments/domain/entity"
	instrumentshandler "market_data/internal/feature/instruments/transport/handler"
)

type stubCandles struct{}

func (stubCandles) GetLatest(context.Context, string, entity.Interval, time.Time) (entity.Candle, bool) {
	return entity.Candle{}, false
}
func (stubCandles) GetHistorical(context.Context, string, entity.Interval) []entity.Candle {
	return []entity.Candle{}
}
func (stubCandles) InvalidateCache(context.Context, string, entity.Interval) error { return nil }
func (stubCandles) InvalidateAllCache(context.Context) error { return nil }

type stubUniverse struct{}

func (stubUniverse) Symbols(context.Context) ([]string, error) { return []string{"A"}, nil }
func (stubUniverse) Refresh(context.Context) ([]string, error) { return []string{"A"}, nil }

type stubCatalog struct{}

func (stubCatalog) ListActiveInstruments(context.Context) ([]instrumentsentity.Instrument, error) {
	return nil, nil
}

type stubTrigger struct{}

func (stubTrigger) Trigger(_ context.Context, iv entity.Interval) (usecase.RunReport, error) {
	return usecase.RunReport{Interval: iv, State: usecase.RunCompleted}, nil
}
func (stubTrigger) TriggerAsync(entity.Interval) error { return nil }
func (stubTrigger) Entries() []scheduler.Entry { return nil }

func init() {
	gin.SetMode(gin.TestMode)
}

// TestNewServerRouter は参照APIのルートが登録されていることを検証します。
func TestNewServerRouter(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	r := NewServerRouter(
		candleshandler.NewCandlesHandler(stubCandles{}),
		instrumentshandler.NewInstrumentHandler(stubUniverse{}, stubCatalog{}),
		func(c *gin.Context) { c.Status(http.StatusOK) },
		metrics,
	)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodHead, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/candles/NSE_EQ:RELIANCE", http.StatusOK},
		{http.MethodGet, "/candles/NSE_EQ:RELIANCE/latest?interval=1m", http.StatusNotFound},
		{http.MethodGet, "/instruments/catalog", http.StatusOK},
		{http.MethodDelete, "/cache/candles", http.StatusNoContent},
		{http.MethodDelete, "/cache/candles/NSE_EQ:RELIANCE", http.StatusNoContent},
		{http.MethodPost, "/ingest/1m", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

// TestNewIngestRouter は取り込み管理APIのルートが登録されていることを検証します。
func TestNewIngestRouter(t *testing.T) {
	t.Parallel()

	r := NewIngestRouter(
		candleshandler.NewIngestHandler(stubTrigger{}),
		instrumentshandler.NewInstrumentHandler(stubUniverse{}, stubCatalog{}),
		nil,
		nil,
	)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodPost, "/ingest/1m", http.StatusAccepted},
		{http.MethodPost, "/ingest/1d?wait=true", http.StatusOK},
		{http.MethodGet, "/schedules", http.StatusOK},
		{http.MethodGet, "/instruments", http.StatusOK},
		{http.MethodPost, "/universe/refresh", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusNotFound},
		{http.MethodGet, "/candles/A", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
