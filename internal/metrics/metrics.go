// Package metrics exposes engine counters and gauges to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"equity-trader/internal/models"
)

// Decision results.
const (
	ResultSubmitted = "submitted"
	ResultRejected  = "rejected"
)

// Metrics holds the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	decisions       *prometheus.CounterVec
	faults          *prometheus.CounterVec
	ordersSubmitted *prometheus.CounterVec
	ordersCancelled prometheus.Counter
	dayTradesWindow prometheus.Gauge
	winProbability  prometheus.Gauge
	kellyFraction   prometheus.Gauge
	openOrders      prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_decisions_total", Help: "Buy and sell evaluations by outcome",
		}, []string{"side", "result"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_faults_total", Help: "Per-instrument evaluation faults by kind",
		}, []string{"kind"}),
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_orders_submitted_total", Help: "Order intents emitted",
		}, []string{"side"}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_orders_cancelled_total", Help: "Orders cancelled after the pending timeout",
		}),
		dayTradesWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_day_trades_window", Help: "Day trades inside the rolling window",
		}),
		winProbability: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_win_probability", Help: "Fraction of closed trades that were profitable",
		}),
		kellyFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_kelly_fraction", Help: "Current Kelly fraction",
		}),
		openOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_open_orders", Help: "Tracked orders not yet filled or cancelled",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.decisions, m.faults, m.ordersSubmitted, m.ordersCancelled,
			m.dayTradesWindow, m.winProbability, m.kellyFraction, m.openOrders,
		)
	}
	return m
}

// Decision counts one evaluation.
func (m *Metrics) Decision(side models.OrderSide, submitted bool) {
	if m == nil {
		return
	}
	result := ResultRejected
	if submitted {
		result = ResultSubmitted
	}
	m.decisions.WithLabelValues(string(side), result).Inc()
}

// Fault counts one evaluation fault.
func (m *Metrics) Fault(kind string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(kind).Inc()
}

// OrderSubmitted counts one emitted order intent.
func (m *Metrics) OrderSubmitted(side models.OrderSide) {
	if m == nil {
		return
	}
	m.ordersSubmitted.WithLabelValues(string(side)).Inc()
}

// OrdersCancelled adds n cancelled orders.
func (m *Metrics) OrdersCancelled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersCancelled.Add(float64(n))
}

// SetOpenOrders sets the tracked open order count.
func (m *Metrics) SetOpenOrders(n int) {
	if m == nil {
		return
	}
	m.openOrders.Set(float64(n))
}

// SetDayTrades sets the rolling-window day-trade count.
func (m *Metrics) SetDayTrades(n int) {
	if m == nil {
		return
	}
	m.dayTradesWindow.Set(float64(n))
}

// SetStats publishes trade outcome statistics.
func (m *Metrics) SetStats(s models.TradeStatistics) {
	if m == nil {
		return
	}
	m.winProbability.Set(s.WinProbability)
	m.kellyFraction.Set(s.Kelly)
}
