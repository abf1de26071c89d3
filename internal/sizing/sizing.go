// Package sizing derives trade quantities from a set of sizing heuristics.
package sizing

import (
	"math"

	"equity-trader/internal/config"
)

// Candidate names.
const (
	CandidateCash             = "cash"
	CandidateKelly            = "kelly"
	CandidateMaxPerTrade      = "max_per_trade"
	CandidateMaxTotalInvested = "max_total_invested"
)

// Inputs are the account and per-share values a size is computed from.
type Inputs struct {
	RiskPerShare float64
	LimitPrice   float64
	Cash         float64
	TotalValue   float64
	Kelly        float64
	// HasHistory is false until a trade has closed. Kelly sizing is skipped
	// without history since the fraction is zero by construction.
	HasHistory bool
}

// Result is the final quantity and every enabled candidate behind it.
type Result struct {
	Quantity   int
	Candidates map[string]float64
}

// Calculator computes position sizes.
type Calculator struct {
	cfg config.SizingConfig
}

// NewCalculator creates a new position-size calculator.
func NewCalculator(cfg config.SizingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Size returns floor(min(enabled candidates)), never negative. A positive
// minimum below one share is raised to one when the cash allows it.
func (c *Calculator) Size(in Inputs) Result {
	res := Result{Candidates: make(map[string]float64)}
	if in.LimitPrice <= 0 || in.RiskPerShare <= 0 || !finite(in.LimitPrice, in.RiskPerShare, in.Cash, in.TotalValue) {
		return res
	}

	res.Candidates[CandidateCash] = in.Cash / in.LimitPrice
	if c.cfg.KellyEnabled && in.HasHistory {
		res.Candidates[CandidateKelly] = in.Cash * in.Kelly / in.RiskPerShare
	}
	if c.cfg.MaxPerTradeEnabled {
		res.Candidates[CandidateMaxPerTrade] = in.TotalValue * c.cfg.MaxPerTrade / in.RiskPerShare
	}
	if c.cfg.MaxTotalInvestedEnabled {
		res.Candidates[CandidateMaxTotalInvested] = in.TotalValue * c.cfg.MaxTotalInvested / in.RiskPerShare
	}

	lowest := math.Inf(1)
	for _, v := range res.Candidates {
		lowest = math.Min(lowest, v)
	}
	if lowest <= 0 || math.IsNaN(lowest) {
		return res
	}

	res.Quantity = int(math.Floor(lowest))
	if res.Quantity == 0 && res.Candidates[CandidateCash] >= 1 {
		res.Quantity = 1
	}
	return res
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
