// Package dto defines data transfer objects for the candles HTTP API.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"market_data/internal/feature/candles/domain/entity"
)

// CandleResponse はロウソク足データのレスポンスDTOです。OHLCが未取得の場合は null になります。
type CandleResponse struct {
	Symbol          string              `json:"symbol"`
	InstrumentToken string              `json:"instrument_token,omitempty"`
	Interval        string              `json:"interval"`
	Timestamp       int64               `json:"timestamp"` // ms since epoch
	Time            time.Time           `json:"time"`
	Open            decimal.NullDecimal `json:"open"`
	High            decimal.NullDecimal `json:"high"`
	Low             decimal.NullDecimal `json:"low"`
	Close           decimal.NullDecimal `json:"close"`
	Volume          *int64              `json:"volume"`
	LastPrice       decimal.Decimal     `json:"last_price"`
}

// ErrorResponse はエラー時のレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewCandleResponse converts a domain candle.
func NewCandleResponse(c entity.Candle) CandleResponse {
	return CandleResponse{
		Symbol:          c.Symbol,
		InstrumentToken: c.InstrumentToken,
		Interval:        c.Interval.String(),
		Timestamp:       c.Time.UnixMilli(),
		Time:            c.Time.UTC(),
		Open:            c.Open,
		High:            c.High,
		Low:             c.Low,
		Close:           c.Close,
		Volume:          c.Volume,
		LastPrice:       c.LastPrice,
	}
}
