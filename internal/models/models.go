// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// PriceSnapshot is the latest price data for one instrument.
type PriceSnapshot struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Close  float64   `json:"close"`
	Sector string    `json:"sector,omitempty"`
	Time   time.Time `json:"time"`
}

// IndicatorValue is one indicator output. Previous carries the prior bar's
// value for indicators compared across bars.
type IndicatorValue struct {
	Ready    bool    `json:"ready"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous,omitempty"`
}

// IndicatorReadings holds the indicator values consumed by the evaluators.
type IndicatorReadings struct {
	ShortEMA   IndicatorValue `json:"short_ema"`
	LongEMA    IndicatorValue `json:"long_ema"`
	ATR        IndicatorValue `json:"atr"`
	RSI        IndicatorValue `json:"rsi"`
	StochRSI   IndicatorValue `json:"stoch_rsi"`
	MACD       IndicatorValue `json:"macd"`
	MACDSignal IndicatorValue `json:"macd_signal"`
}

// Bar pairs a price snapshot with the indicator readings computed for it.
type Bar struct {
	PriceSnapshot
	Indicators IndicatorReadings `json:"indicators"`
}

// Update is one market-data update covering any number of instruments.
type Update struct {
	Time time.Time `json:"time"`
	Bars []Bar     `json:"bars"`
}

// Symbols returns the instruments present in the update in order.
func (u Update) Symbols() []string {
	out := make([]string, 0, len(u.Bars))
	for _, b := range u.Bars {
		out = append(out, b.Symbol)
	}
	return out
}
