// Package orders tracks submitted orders and expires the ones that stay
// unfilled past the pending timeout.
package orders

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"equity-trader/internal/config"
	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

// Canceller cancels an order at the broker.
type Canceller interface {
	CancelOrder(ctx context.Context, orderID string) error
}

// AgeReport is a periodic diagnostic for a ticket that is still open.
type AgeReport struct {
	Ticket    models.OrderTicket
	Age       time.Duration
	Remaining time.Duration
}

// SweepResult summarizes one lifecycle pass.
type SweepResult struct {
	Cancelled []models.OrderTicket
	Reports   []AgeReport
	Failed    []error
}

// Manager owns open order tickets. It is not safe for concurrent use.
type Manager struct {
	cfg       config.OrdersConfig
	canceller Canceller
	logger    zerolog.Logger
	tickets   map[string]*models.OrderTicket
	lastAge   map[string]time.Duration
	bySymbol  map[string]int
}

// NewManager creates a new order lifecycle manager.
func NewManager(cfg config.OrdersConfig, canceller Canceller, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		canceller: canceller,
		logger:    logger,
		tickets:   make(map[string]*models.OrderTicket),
		lastAge:   make(map[string]time.Duration),
		bySymbol:  make(map[string]int),
	}
}

// Track starts tracking a submitted order.
func (m *Manager) Track(t models.OrderTicket) {
	if t.Closed {
		return
	}
	if _, ok := m.tickets[t.ID]; ok {
		return
	}
	m.tickets[t.ID] = &t
	m.bySymbol[t.Symbol]++
}

// HasOpen reports whether symbol has an open ticket.
func (m *Manager) HasOpen(symbol string) bool {
	return m.bySymbol[symbol] > 0
}

// Close marks the ticket closed, typically on fill. It reports whether the
// ticket was open.
func (m *Manager) Close(orderID string) (models.OrderTicket, bool) {
	t, ok := m.tickets[orderID]
	if !ok {
		return models.OrderTicket{}, false
	}
	t.Closed = true
	delete(m.tickets, orderID)
	delete(m.lastAge, orderID)
	if m.bySymbol[t.Symbol]--; m.bySymbol[t.Symbol] <= 0 {
		delete(m.bySymbol, t.Symbol)
	}
	return *t, true
}

// Open returns the open tickets ordered by submission time.
func (m *Manager) Open() []models.OrderTicket {
	out := make([]models.OrderTicket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// Sweep cancels tickets older than the pending timeout and reports the age
// of the rest each time it crosses a report interval boundary. A failed
// cancellation leaves the ticket open for the next sweep unless the broker
// no longer knows the order.
func (m *Manager) Sweep(ctx context.Context, now time.Time) SweepResult {
	var res SweepResult
	for _, t := range m.Open() {
		age := t.Age(now)
		if age > m.cfg.PendingTimeout {
			err := m.canceller.CancelOrder(ctx, t.ID)
			if err != nil && !errors.Is(err, errors.ErrOrderNotFound) {
				m.logger.Warn().Err(err).Str("order_id", t.ID).Str("symbol", t.Symbol).Msg("Cancel failed")
				res.Failed = append(res.Failed, err)
				continue
			}
			closed, _ := m.Close(t.ID)
			res.Cancelled = append(res.Cancelled, closed)
			m.logger.Info().
				Str("order_id", t.ID).
				Str("symbol", t.Symbol).
				Dur("age", age).
				Msg("Stale order cancelled")
			continue
		}

		prev := m.lastAge[t.ID]
		m.lastAge[t.ID] = age
		if m.cfg.ReportInterval > 0 && prev/m.cfg.ReportInterval < age/m.cfg.ReportInterval {
			r := AgeReport{Ticket: t, Age: age, Remaining: m.cfg.PendingTimeout - age}
			res.Reports = append(res.Reports, r)
			m.logger.Info().
				Str("order_id", t.ID).
				Str("symbol", t.Symbol).
				Dur("age", age).
				Dur("remaining", r.Remaining).
				Msg("Order still pending")
		}
	}
	return res
}
