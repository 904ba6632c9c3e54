// Package upstox provides a client for the Upstox market quote API.
package upstox

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds configuration for the Upstox API client.
type Config struct {
	BaseURL    string        `env:"UPSTOX_BASE_URL" envDefault:"https://api.upstox.com/v3"` // Base URL for the API
	AuthToken  string        `env:"UPSTOX_AUTH_TOKEN"`                                     // Bearer token
	Timeout    time.Duration `env:"UPSTOX_TIMEOUT" envDefault:"10s"`                       // HTTP request timeout
	RateLimit  int           `env:"UPSTOX_RATE_LIMIT" envDefault:"50"`                     // requests per RateWindow, 0 disables
	RateWindow time.Duration `env:"UPSTOX_RATE_WINDOW" envDefault:"1s"`
}

// LoadConfig loads Upstox configuration from environment variables.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}
