// Package dto defines data transfer objects for the Upstox API responses.
package dto

import "github.com/shopspring/decimal"

// OHLCResponse represents the JSON response from the market-quote/ohlc endpoint.
// Data is keyed by the provider's display symbol (e.g. "NSE_EQ:RELIANCE").
type OHLCResponse struct {
	Status string           `json:"status"`
	Data   map[string]Quote `json:"data"`
	Errors []APIError       `json:"errors,omitempty"`
}

// Quote is one instrument entry of OHLCResponse.
type Quote struct {
	LastPrice       *decimal.Decimal `json:"last_price"`
	InstrumentToken string           `json:"instrument_token"`
	PrevOHLC        *OHLC            `json:"prev_ohlc"`
	LiveOHLC        *OHLC            `json:"live_ohlc"`
}

// OHLC is a period summary. Ts is ms since epoch.
type OHLC struct {
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
	Ts     int64           `json:"ts"`
}

// APIError is an entry of the errors array returned with status "error".
type APIError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}
