package entity

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the canonical internal code of a candle granularity.
type Interval string

const (
	Interval1Minute  Interval = "1m"
	Interval5Minute  Interval = "5m"
	Interval30Minute Interval = "30m"
	Interval1Day     Interval = "1d"
	Interval1Week    Interval = "1w"
)

// intervalSpec は時間足ごとの上流コード・cron式・境界幅を保持します。
type intervalSpec struct {
	upstream string        // code sent to the quote provider
	cadence  string        // default cron schedule (5-field)
	step     time.Duration // alignment width for sub-day intervals, 0 otherwise
}

// intervalSpecs is the single mapping table between internal codes and the
// upstream provider. Every interval the scheduler may use must appear here.
var intervalSpecs = map[Interval]intervalSpec{
	Interval1Minute:  {upstream: "I1", cadence: "* * * * *", step: time.Minute},
	Interval5Minute:  {upstream: "I5", cadence: "*/5 * * * *", step: 5 * time.Minute},
	Interval30Minute: {upstream: "I30", cadence: "*/30 * * * *", step: 30 * time.Minute},
	Interval1Day:     {upstream: "1d", cadence: "0 0 * * *"},
	Interval1Week:    {upstream: "1w", cadence: "0 0 * * 1"},
}

// allIntervals keeps a stable, finest-first order for listings.
var allIntervals = []Interval{
	Interval1Minute,
	Interval5Minute,
	Interval30Minute,
	Interval1Day,
	Interval1Week,
}

// Intervals returns every supported interval, finest first.
func Intervals() []Interval {
	out := make([]Interval, len(allIntervals))
	copy(out, allIntervals)
	return out
}

// ParseInterval converts a textual code (e.g. "1m") into an Interval.
// Surrounding whitespace and letter case are ignored.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := intervalSpecs[iv]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return iv, nil
}

// ParseIntervals parses a comma separated list, dropping duplicates.
func ParseIntervals(csv string) ([]Interval, error) {
	var out []Interval
	seen := map[Interval]struct{}{}
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		iv, err := ParseInterval(part)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[iv]; ok {
			continue
		}
		seen[iv] = struct{}{}
		out = append(out, iv)
	}
	return out, nil
}

// Valid reports whether the interval has an upstream mapping.
func (iv Interval) Valid() bool {
	_, ok := intervalSpecs[iv]
	return ok
}

// UpstreamCode returns the provider's code for the interval, or "" when unmapped.
func (iv Interval) UpstreamCode() string {
	return intervalSpecs[iv].upstream
}

// Cadence returns the default cron expression that triggers ingestion.
func (iv Interval) Cadence() string {
	return intervalSpecs[iv].cadence
}

func (iv Interval) String() string { return string(iv) }

// Align truncates t to the start of the interval period containing it.
// Sub-day intervals truncate on absolute time; day and week boundaries are
// computed in loc (weeks start on Monday). The result is returned in UTC.
func (iv Interval) Align(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	spec := intervalSpecs[iv]
	if spec.step > 0 {
		return t.Truncate(spec.step).UTC()
	}

	lt := t.In(loc)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	if iv == Interval1Week {
		// time.Weekday: Sunday=0; shift so Monday is the first day.
		offset := (int(day.Weekday()) + 6) % 7
		day = day.AddDate(0, 0, -offset)
	}
	return day.UTC()
}
