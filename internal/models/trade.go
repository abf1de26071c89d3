package models

import "time"

// DayTradeRecord is the same-day round-trip state for one instrument.
type DayTradeRecord struct {
	Bought bool
	Sold   bool
	Date   time.Time
}

// TradeStatistics is a snapshot of running win/loss statistics.
type TradeStatistics struct {
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	TotalProfit    float64 `json:"total_profit"`
	TotalLoss      float64 `json:"total_loss"`
	WinProbability float64 `json:"win_probability"`
	WinLossRatio   float64 `json:"win_loss_ratio"`
	Kelly          float64 `json:"kelly"`
}

// Trades returns the number of closed trades.
func (s TradeStatistics) Trades() int {
	return s.Wins + s.Losses
}

// SectorAllocation is the exposure to a single sector.
type SectorAllocation struct {
	Count   int     `json:"count"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}
