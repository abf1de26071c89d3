package stats

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"equity-trader/internal/models"
)

func sell(price, cost float64, qty int) models.Fill {
	return models.Fill{Symbol: "AAPL", Side: models.OrderSideSell, Price: price, AverageCost: cost, Quantity: qty}
}

func TestRecordSell(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	assert.False(t, tr.HasHistory())
	assert.Equal(t, 0.0, tr.Kelly())

	assert.InDelta(t, 30, tr.RecordSell(sell(13, 10, 10)), 1e-9)
	s := tr.Snapshot()
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1.0, s.WinProbability)
	assert.True(t, math.IsInf(s.WinLossRatio, 1))
	assert.Equal(t, 1.0, s.Kelly)

	assert.InDelta(t, -10, tr.RecordSell(sell(9, 10, 10)), 1e-9)
	s = tr.Snapshot()
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 0.5, s.WinProbability, 1e-9)
	assert.InDelta(t, 3, s.WinLossRatio, 1e-9)
	// 0.5 - 0.5/3
	assert.InDelta(t, 1.0/3.0, s.Kelly, 1e-9)
}

func TestZeroProfitIsLoss(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	tr.RecordSell(sell(10, 10, 5))

	s := tr.Snapshot()
	assert.Equal(t, 0, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 0.0, s.TotalLoss)
	assert.Equal(t, 0.0, s.Kelly)
	assert.True(t, tr.HasHistory())
}

func TestKellyClamped(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	tr.RecordSell(sell(11, 10, 1))
	tr.RecordSell(sell(5, 10, 10))
	tr.RecordSell(sell(5, 10, 10))

	s := tr.Snapshot()
	assert.Less(t, s.WinProbability-(1-s.WinProbability)/s.WinLossRatio, 0.0)
	assert.Equal(t, 0.0, s.Kelly)
}

func TestDecimalAccumulation(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	for i := 0; i < 1000; i++ {
		tr.RecordSell(sell(10.1, 10, 1))
	}
	assert.Equal(t, 100.0, tr.Snapshot().TotalProfit)
}

// Property: After N wins of P and M losses of L, p = N/(N+M) and
// ratio = N*P / (M*L).
func TestProperty_WinLossStatistics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("p and ratio follow from the recorded outcomes", prop.ForAll(
		func(n, m, p, l int) bool {
			tr := NewTracker(zerolog.Nop())
			for i := 0; i < n; i++ {
				tr.RecordSell(sell(float64(100+p), 100, 1))
			}
			for i := 0; i < m; i++ {
				tr.RecordSell(sell(float64(100-l), 100, 1))
			}

			s := tr.Snapshot()
			wantP := float64(n) / float64(n+m)
			wantRatio := float64(n*p) / float64(m*l)
			if math.Abs(s.WinProbability-wantP) > 1e-9 || math.Abs(s.WinLossRatio-wantRatio) > 1e-9 {
				t.Logf("FAILED: n=%d m=%d p=%d l=%d got p=%.6f ratio=%.6f", n, m, p, l, s.WinProbability, s.WinLossRatio)
				return false
			}
			return s.Kelly >= 0 && s.Kelly <= 1
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 20),
		gen.IntRange(1, 50),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
