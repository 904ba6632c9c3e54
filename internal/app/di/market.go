// Package di provides dependency injection factories for creating application components.
package di

import (
	"market_data/internal/platform/externalapi/upstox"
	infrahttp "market_data/internal/platform/http"
	"market_data/internal/shared/ratelimiter"
)

// NewMarket creates a fully configured Upstox client with HTTP client.
func NewMarket(cfg upstox.Config) *upstox.Client {
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	return upstox.NewClient(cfg, httpClient)
}

// NewUpstreamLimiter は上流APIの呼び出し回数を制限するリミッターを作成します。
// 全時間足の取り込みで共有します。
func NewUpstreamLimiter(cfg upstox.Config) *ratelimiter.RateLimiter {
	return ratelimiter.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
}
