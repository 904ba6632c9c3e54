// Package entity defines the domain models for the instruments feature.
package entity

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedFormat は銘柄ユニバースファイルの形式を解釈できない場合に返されます。
var ErrUnsupportedFormat = errors.New("unsupported instrument file format")

// Instrument is one row of the instrument catalogue.
// Symbol is the provider's display symbol (e.g. "NSE_EQ:RELIANCE") and
// InstrumentKey the identifier sent upstream (e.g. "NSE_EQ|INE002A01018").
// Each ingested quote refreshes LastPrice and UpdatedAt.
type Instrument struct {
	ID            uint            `gorm:"primaryKey"`
	Symbol        string          `gorm:"size:64;not null;uniqueIndex"`
	InstrumentKey string          `gorm:"size:64;not null;index"`
	LastPrice     decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	IsActive      bool            `gorm:"not null;default:true"`
	SortKey       int             `gorm:"not null;default:0"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}
