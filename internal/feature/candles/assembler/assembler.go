// Package assembler turns provider quotes into canonical candles.
package assembler

import (
	"time"

	"github.com/shopspring/decimal"

	"market_data/internal/feature/candles/domain/entity"
)

// Assembler canonicalizes raw quotes. It performs no I/O; the only inputs
// besides the quote are the clock and the exchange time zone.
type Assembler struct {
	loc *time.Location
	now func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock overrides the clock used when a quote carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// New creates an Assembler aligning day and week boundaries in loc.
// A nil loc means UTC.
func New(loc *time.Location, opts ...Option) *Assembler {
	if loc == nil {
		loc = time.UTC
	}
	a := &Assembler{loc: loc, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Build converts q into a candle for iv.
//
// The candle timestamp is the prior-period ts aligned to the interval
// boundary; when the provider sent no prior period (or no ts) the current
// time is aligned instead. Without prior-period data the OHLCV fields stay
// unset.
func (a *Assembler) Build(q entity.Quote, iv entity.Interval) entity.Candle {
	now := a.now()
	c := entity.Candle{
		Symbol:          q.Symbol,
		InstrumentToken: q.InstrumentToken,
		Interval:        iv,
		LastPrice:       q.LastPrice,
		CreatedAt:       now.UTC(),
	}

	ts := now
	if p := q.Prev; p != nil {
		if !p.Timestamp.IsZero() {
			ts = p.Timestamp
		}
		c.Open = decimal.NewNullDecimal(p.Open)
		c.High = decimal.NewNullDecimal(p.High)
		c.Low = decimal.NewNullDecimal(p.Low)
		c.Close = decimal.NewNullDecimal(p.Close)
		vol := p.Volume
		if vol < 0 {
			vol = 0
		}
		c.Volume = &vol
	}
	c.Time = iv.Align(ts, a.loc)
	return c
}

// BuildAll converts every quote in order.
func (a *Assembler) BuildAll(quotes []entity.Quote, iv entity.Interval) []entity.Candle {
	out := make([]entity.Candle, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, a.Build(q, iv))
	}
	return out
}
