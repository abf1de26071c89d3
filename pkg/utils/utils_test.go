package utils

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCurrency(0))
	assert.Equal(t, "$999.50", FormatCurrency(999.5))
	assert.Equal(t, "$1,000.00", FormatCurrency(1000))
	assert.Equal(t, "$25,000.00", FormatCurrency(25000))
	assert.Equal(t, "-$1,234,567.89", FormatCurrency(-1234567.89))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "+12.50%", FormatPercent(0.125))
	assert.Equal(t, "-5.00%", FormatPercent(-0.05))
	assert.Equal(t, "+$10.00", FormatPnL(10))
	assert.Equal(t, "1,500", FormatQuantity(1500))
	assert.Equal(t, "inf", FormatRatio(math.Inf(1)))
	assert.Equal(t, "2.00", FormatRatio(2))
}

func TestSameTradingDay(t *testing.T) {
	// 03:30 UTC on the 6th is still the 5th in New York.
	a := time.Date(2024, 3, 5, 14, 0, 0, 0, NewYorkLocation)
	b := time.Date(2024, 3, 6, 3, 30, 0, 0, time.UTC)

	assert.True(t, SameTradingDay(a, b, NewYorkLocation))
	assert.False(t, SameTradingDay(a, b, time.UTC))
}

func TestBusinessWindowStart(t *testing.T) {
	// Wednesday 2024-03-06: five business days back is Thursday 2024-02-29.
	wed := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), BusinessWindowStart(wed, 5, time.UTC))

	// Saturday counts from the preceding Friday.
	sat := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), BusinessWindowStart(sat, 5, time.UTC))

	assert.Equal(t, TradingDay(wed, time.UTC), BusinessWindowStart(wed, 1, time.UTC))
}
