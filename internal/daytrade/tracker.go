// Package daytrade counts same-day round trips for the pattern-day-trader
// rule.
package daytrade

import (
	"time"

	"github.com/rs/zerolog"

	"equity-trader/internal/config"
	"equity-trader/internal/models"
	"equity-trader/pkg/utils"
)

// HistorySize is the number of day-trade dates retained.
const HistorySize = 5

// Tracker records fills and detects completed day trades. It is not safe
// for concurrent use.
type Tracker struct {
	cfg     config.DayTradeConfig
	loc     *time.Location
	logger  zerolog.Logger
	records map[string]*models.DayTradeRecord
	count   int

	// ring of day-trade dates, oldest at head
	history [HistorySize]time.Time
	head    int
	size    int
}

// NewTracker creates a new day-trade tracker.
func NewTracker(cfg config.DayTradeConfig, logger zerolog.Logger) *Tracker {
	return &Tracker{
		cfg:     cfg,
		loc:     cfg.Location(),
		logger:  logger,
		records: make(map[string]*models.DayTradeRecord),
	}
}

// Record applies a fill for symbol at the given time and reports whether it
// completed a day trade.
func (t *Tracker) Record(symbol string, side models.OrderSide, at time.Time) bool {
	day := utils.TradingDay(at, t.loc)
	rec, ok := t.records[symbol]
	if !ok || !rec.Date.Equal(day) {
		rec = &models.DayTradeRecord{Date: day}
		t.records[symbol] = rec
	}

	switch side {
	case models.OrderSideBuy:
		rec.Bought = true
	case models.OrderSideSell:
		rec.Sold = true
	}

	if !rec.Bought || !rec.Sold {
		return false
	}

	rec.Bought, rec.Sold = false, false
	t.count++
	t.push(day)

	t.logger.Info().
		Str("symbol", symbol).
		Int("day_trades", t.count).
		Int("window_count", t.WindowCount(at)).
		Msg("Day trade recorded")
	return true
}

func (t *Tracker) push(day time.Time) {
	if t.size < HistorySize {
		t.history[(t.head+t.size)%HistorySize] = day
		t.size++
		return
	}
	t.history[t.head] = day
	t.head = (t.head + 1) % HistorySize
}

// Count returns the total number of day trades recorded.
func (t *Tracker) Count() int {
	return t.count
}

// History returns the retained day-trade dates, oldest first.
func (t *Tracker) History() []time.Time {
	out := make([]time.Time, 0, t.size)
	for i := 0; i < t.size; i++ {
		out = append(out, t.history[(t.head+i)%HistorySize])
	}
	return out
}

// WindowCount returns the retained day trades within the configured
// business-day window ending at now.
func (t *Tracker) WindowCount(now time.Time) int {
	start := utils.BusinessWindowStart(now, t.cfg.WindowDays, t.loc)
	n := 0
	for _, d := range t.History() {
		if !d.Before(start) {
			n++
		}
	}
	return n
}

// Blocks reports whether the pattern-day-trader rule forbids another trade:
// the window count has reached the limit while cash is below the minimum
// equity.
func (t *Tracker) Blocks(now time.Time, cash float64) bool {
	return t.WindowCount(now) >= t.cfg.MaxDayTrades && cash < t.cfg.MinEquity
}

// RecordFor returns the current record for symbol.
func (t *Tracker) RecordFor(symbol string) (models.DayTradeRecord, bool) {
	rec, ok := t.records[symbol]
	if !ok {
		return models.DayTradeRecord{}, false
	}
	return *rec, true
}

// Snapshot is a read-only view of the tracker.
type Snapshot struct {
	Count       int         `json:"count"`
	WindowCount int         `json:"window_count"`
	History     []time.Time `json:"history"`
}

// Snapshot returns the tracker state at now.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Count:       t.count,
		WindowCount: t.WindowCount(now),
		History:     t.History(),
	}
}
