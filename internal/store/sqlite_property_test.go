package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"equity-trader/internal/models"
)

// Property: For any fill, logging it and reading it back by symbol produces
// the same fill.
func TestProperty_FillRoundTripConsistency(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "fills_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"AAPL", "MSFT", "NVDA", "AMZN", "GOOG", "META", "TSLA", "JPM", "XOM", "UNH"}
	baseTime := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	seq := 0

	properties.Property("Fill round-trip: log then retrieve produces equivalent data", prop.ForAll(
		func(symbolIdx int, buy bool, qty int, price, cost float64) bool {
			ctx := context.Background()
			seq++
			symbol := fmt.Sprintf("%s_%d", symbols[symbolIdx%len(symbols)], seq)

			side := models.OrderSideSell
			if buy {
				side = models.OrderSideBuy
			}
			fill := models.Fill{
				OrderID:     fmt.Sprintf("order-%d", seq),
				Symbol:      symbol,
				Side:        side,
				Quantity:    qty,
				Price:       roundToDecimal(price, 2),
				AverageCost: roundToDecimal(cost, 2),
				Time:        baseTime.Add(time.Duration(seq) * time.Minute),
			}

			if err := store.LogFill(ctx, &fill); err != nil {
				t.Logf("Failed to log fill: %v", err)
				return false
			}

			fills, err := store.GetFills(ctx, FillFilter{Symbol: symbol})
			if err != nil {
				t.Logf("Failed to get fills: %v", err)
				return false
			}
			if len(fills) != 1 {
				t.Logf("Count mismatch: expected 1, got %d", len(fills))
				return false
			}
			if !fillsEqual(fill, fills[0]) {
				t.Logf("Fill mismatch: original=%+v, retrieved=%+v", fill, fills[0])
				return false
			}
			return true
		},
		gen.IntRange(0, len(symbols)-1),
		gen.Bool(),
		gen.IntRange(1, 10000),
		gen.Float64Range(1.0, 5000.0),
		gen.Float64Range(0.0, 5000.0),
	))

	properties.TestingRun(t)
}

// Property: GetDecisions honors the limit and returns newest first.
func TestProperty_DecisionOrdering(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "decisions_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	baseTime := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	run := 0

	properties.Property("Decisions are returned newest first within the limit", prop.ForAll(
		func(count, limit int) bool {
			ctx := context.Background()
			run++
			symbol := fmt.Sprintf("SYM%d", run)

			for i := 0; i < count; i++ {
				d := models.Decision{
					ID:        fmt.Sprintf("%s-%d", symbol, i),
					Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
					Symbol:    symbol,
					Side:      models.OrderSideBuy,
					Action:    "HOLD",
					Audit:     "{}",
				}
				if err := store.SaveDecision(ctx, &d); err != nil {
					t.Logf("Failed to save decision: %v", err)
					return false
				}
			}

			got, err := store.GetDecisions(ctx, DecisionFilter{Symbol: symbol, Limit: limit})
			if err != nil {
				t.Logf("Failed to get decisions: %v", err)
				return false
			}
			want := count
			if limit < want {
				want = limit
			}
			if len(got) != want {
				t.Logf("Count mismatch: expected %d, got %d", want, len(got))
				return false
			}
			for i := 1; i < len(got); i++ {
				if got[i].Timestamp.After(got[i-1].Timestamp) {
					t.Logf("Order violated at %d: %v after %v", i, got[i].Timestamp, got[i-1].Timestamp)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 15),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

// roundToDecimal rounds a float to specified decimal places
func roundToDecimal(val float64, places int) float64 {
	multiplier := math.Pow(10, float64(places))
	return math.Round(val*multiplier) / multiplier
}

// fillsEqual compares two fills for equality with floating point tolerance.
func fillsEqual(a, b models.Fill) bool {
	const tolerance = 0.01

	if a.OrderID != b.OrderID || a.Symbol != b.Symbol || a.Side != b.Side || a.Quantity != b.Quantity {
		return false
	}
	if !a.Time.Equal(b.Time) {
		return false
	}
	return floatEqual(a.Price, b.Price, tolerance) && floatEqual(a.AverageCost, b.AverageCost, tolerance)
}

// floatEqual compares two floats with a tolerance.
func floatEqual(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
