package models

import "time"

// Decision is a journaled trade decision.
type Decision struct {
	ID         string
	Timestamp  time.Time
	Symbol     string
	Side       OrderSide
	Action     string // BUY, SELL, HOLD
	Quantity   int
	LimitPrice float64
	Audit      string
	Executed   bool
	OrderID    string
}

// Intent is an order the engine wants placed for one instrument.
type Intent struct {
	Symbol     string
	Side       OrderSide
	Type       OrderType
	Quantity   int
	LimitPrice float64
	// Tag is the JSON audit record that justified the intent.
	Tag string
}

// PriceTarget is the effective stop-loss and take-profit for one cycle.
type PriceTarget struct {
	StopLoss         float64
	TakeProfit       float64
	StopCandidates   map[string]float64
	ProfitCandidates map[string]float64
	StopMethod       string
	ProfitMethod     string
}

// RiskReward holds per-share risk and reward.
type RiskReward struct {
	Risk   float64
	Reward float64
}

// Ratio returns reward over risk.
func (r RiskReward) Ratio() float64 {
	return r.Reward / r.Risk
}
