// Package router はプロセスごとのginルーターを組み立てます。
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	candleshandler "market_data/internal/feature/candles/transport/handler"
	instrumentshandler "market_data/internal/feature/instruments/transport/handler"
	"market_data/internal/platform/http/handler"
)

// NewServerRouter は参照API（cmd/server）のルーターを作成します。
func NewServerRouter(candles *candleshandler.CandlesHandler, instruments *instrumentshandler.InstrumentHandler,
	ready gin.HandlerFunc, metrics http.Handler) *gin.Engine {
	r := newEngine(ready, metrics)

	// ローソク足の参照
	r.GET("/candles/:symbol", candles.GetHistorical)
	r.GET("/candles/:symbol/latest", candles.GetLatest)

	// 銘柄マスタ
	r.GET("/instruments/catalog", instruments.Catalog)

	// キャッシュ管理
	r.DELETE("/cache/candles", candles.InvalidateAllCache)
	r.DELETE("/cache/candles/:symbol", candles.InvalidateCache)

	return r
}

// NewIngestRouter は取り込みプロセス（cmd/ingest）の管理用ルーターを作成します。
func NewIngestRouter(ingest *candleshandler.IngestHandler, instruments *instrumentshandler.InstrumentHandler,
	ready gin.HandlerFunc, metrics http.Handler) *gin.Engine {
	r := newEngine(ready, metrics)

	r.POST("/ingest/:interval", ingest.Trigger)
	r.GET("/schedules", ingest.Schedules)

	r.GET("/instruments", instruments.List)
	r.GET("/instruments/catalog", instruments.Catalog)
	r.POST("/universe/refresh", instruments.Refresh)

	return r
}

// newEngine registers the endpoints both processes share.
func newEngine(ready gin.HandlerFunc, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	if ready != nil {
		r.GET("/readyz", ready)
	}
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	return r
}

// requestLogger はリクエストをslogで記録します。ヘルスチェックはdebugレベルです。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		switch path := c.FullPath(); {
		case path == "/healthz" || path == "/readyz" || path == "/metrics":
			level = slog.LevelDebug
		case c.Writer.Status() >= http.StatusInternalServerError:
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
