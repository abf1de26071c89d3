package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-trader/internal/models"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Decision(models.OrderSideBuy, true)
	m.Decision(models.OrderSideBuy, false)
	m.Decision(models.OrderSideBuy, false)
	m.Fault("not_ready")
	m.OrderSubmitted(models.OrderSideSell)
	m.OrdersCancelled(2)
	m.OrdersCancelled(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("BUY", ResultSubmitted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("BUY", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.faults.WithLabelValues("not_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersSubmitted.WithLabelValues("SELL")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCancelled))

	n, err := testutil.GatherAndCount(reg, "trader_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetOpenOrders(3)
	m.SetDayTrades(2)
	m.SetStats(models.TradeStatistics{WinProbability: 0.6, Kelly: 0.2})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.openOrders))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dayTradesWindow))
	assert.Equal(t, 0.6, testutil.ToFloat64(m.winProbability))
	assert.Equal(t, 0.2, testutil.ToFloat64(m.kellyFraction))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Decision(models.OrderSideBuy, true)
		m.Fault("other")
		m.OrderSubmitted(models.OrderSideBuy)
		m.OrdersCancelled(1)
		m.SetOpenOrders(1)
		m.SetDayTrades(1)
		m.SetStats(models.TradeStatistics{})
	})
}

func TestUnregistered(t *testing.T) {
	m := New(nil)
	m.Fault("other")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.faults.WithLabelValues("other")))
}
