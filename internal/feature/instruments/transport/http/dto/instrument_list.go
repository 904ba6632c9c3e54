// Package dto defines data transfer objects for the instruments HTTP API.
package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// UniverseResponse is the loaded ingestion universe.
type UniverseResponse struct {
	Count          int      `json:"count"`
	InstrumentKeys []string `json:"instrument_keys"`
}

// InstrumentItem represents a catalogue row in the API response.
type InstrumentItem struct {
	Symbol        string          `json:"symbol"`
	InstrumentKey string          `json:"instrument_key"`
	LastPrice     decimal.Decimal `json:"last_price"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
