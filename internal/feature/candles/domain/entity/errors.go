package entity

import "errors"

var (
	// ErrInvalidInterval is returned for a nil, empty or unmapped interval code.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrInvalidSymbol is returned when a symbol is empty.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrCandleNotFound is returned by stores on a point-lookup miss.
	ErrCandleNotFound = errors.New("candle not found")
)
