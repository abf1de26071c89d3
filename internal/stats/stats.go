// Package stats keeps running win/loss statistics of closed trades and the
// Kelly fraction derived from them.
package stats

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"equity-trader/internal/models"
)

// Tracker accumulates trade outcomes. Totals are kept as decimals so long
// replays do not drift. It never resets.
type Tracker struct {
	logger      zerolog.Logger
	wins        int
	losses      int
	totalProfit decimal.Decimal
	totalLoss   decimal.Decimal
}

// NewTracker creates a new trade outcome tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		logger:      logger,
		totalProfit: decimal.Zero,
		totalLoss:   decimal.Zero,
	}
}

// RecordSell applies a sell fill and returns its realized profit. Zero
// profit counts as a loss.
func (t *Tracker) RecordSell(fill models.Fill) float64 {
	profit := decimal.NewFromFloat(fill.Price).
		Sub(decimal.NewFromFloat(fill.AverageCost)).
		Mul(decimal.NewFromInt(int64(fill.Quantity)))

	if profit.IsPositive() {
		t.wins++
		t.totalProfit = t.totalProfit.Add(profit)
	} else {
		t.losses++
		t.totalLoss = t.totalLoss.Add(profit.Abs())
	}

	snap := t.Snapshot()
	t.logger.Info().
		Str("symbol", fill.Symbol).
		Str("profit", profit.StringFixed(2)).
		Int("wins", snap.Wins).
		Int("losses", snap.Losses).
		Float64("win_probability", snap.WinProbability).
		Float64("kelly", snap.Kelly).
		Msg("Trade closed")

	f, _ := profit.Float64()
	return f
}

// HasHistory reports whether any trade has closed.
func (t *Tracker) HasHistory() bool {
	return t.wins+t.losses > 0
}

// Kelly returns the current Kelly fraction.
func (t *Tracker) Kelly() float64 {
	return t.Snapshot().Kelly
}

// Snapshot returns the current statistics. WinLossRatio is +Inf while no
// loss has been recorded.
func (t *Tracker) Snapshot() models.TradeStatistics {
	profit, _ := t.totalProfit.Float64()
	loss, _ := t.totalLoss.Float64()

	s := models.TradeStatistics{
		Wins:        t.wins,
		Losses:      t.losses,
		TotalProfit: profit,
		TotalLoss:   loss,
	}
	if n := t.wins + t.losses; n > 0 {
		s.WinProbability = float64(t.wins) / float64(n)
	}
	if t.totalLoss.IsZero() {
		s.WinLossRatio = math.Inf(1)
	} else {
		s.WinLossRatio, _ = t.totalProfit.Div(t.totalLoss).Float64()
	}
	s.Kelly = kelly(s.WinProbability, s.WinLossRatio)
	return s
}

// kelly returns p - (1-p)/ratio clamped to [0, 1].
func kelly(p, ratio float64) float64 {
	if ratio <= 0 || math.IsNaN(ratio) {
		return 0
	}
	k := p - (1-p)/ratio
	return math.Max(0, math.Min(1, k))
}
