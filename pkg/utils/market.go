package utils

import (
	"time"
)

// NewYorkLocation is the timezone for US equity markets.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// TradingDay returns midnight of t's calendar day in loc.
func TradingDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameTradingDay reports whether a and b fall on the same calendar day in loc.
func SameTradingDay(a, b time.Time, loc *time.Location) bool {
	return TradingDay(a, loc).Equal(TradingDay(b, loc))
}

// IsBusinessDay reports whether t falls on a weekday.
func IsBusinessDay(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}

// BusinessWindowStart returns the first day of the n-business-day window
// ending on now's trading day. A weekend day counts as part of the window
// that follows it.
func BusinessWindowStart(now time.Time, n int, loc *time.Location) time.Time {
	day := TradingDay(now, loc)
	if n <= 1 {
		return day
	}
	for !IsBusinessDay(day) {
		day = day.AddDate(0, 0, -1)
	}
	for counted := 1; counted < n; {
		day = day.AddDate(0, 0, -1)
		if IsBusinessDay(day) {
			counted++
		}
	}
	return day
}
