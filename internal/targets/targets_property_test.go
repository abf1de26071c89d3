package targets

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"equity-trader/internal/config"
	"equity-trader/internal/models"
)

// Property: With every method enabled and ATR ready, a flat instrument always
// gets stop-loss <= price < take-profit. ATR is bounded to half the price so
// the Fibonacci stop stays below it.
func TestProperty_TargetsBracketPrice(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("stop-loss <= price < take-profit", prop.ForAll(
		func(price, atrFraction, pct, mult float64) bool {
			atr := price * atrFraction
			cfg := config.Default().Strategy.Targets
			cfg.StopLoss.Percent = pct
			cfg.TakeProfit.Percent = pct
			cfg.StopLoss.ATRMultiplier = mult
			cfg.TakeProfit.ATRMultiplier = mult

			calc := NewCalculator(cfg, zerolog.Nop())
			target, err := calc.Compute(Input{
				Symbol: "TEST",
				Price:  price,
				ATR:    models.IndicatorValue{Ready: true, Current: atr},
			})
			if err != nil {
				t.Logf("FAILED: price=%.2f atr=%.2f: %v", price, atr, err)
				return false
			}
			if target.StopLoss > price || target.TakeProfit <= price {
				t.Logf("FAILED: price=%.2f SL=%.4f TP=%.4f", price, target.StopLoss, target.TakeProfit)
				return false
			}
			return true
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(0.001, 0.5),
		gen.Float64Range(0.01, 0.5),
		gen.Float64Range(0.5, 4),
	))

	properties.Property("risk/reward never yields non-positive risk or reward", prop.ForAll(
		func(price, stop, profit float64) bool {
			rr, err := EvaluateRiskReward("TEST", price, models.PriceTarget{StopLoss: stop, TakeProfit: profit})
			if err != nil {
				return stop >= price || profit <= price
			}
			return rr.Risk > 0 && rr.Reward > 0
		},
		gen.Float64Range(1, 200),
		gen.Float64Range(0, 300),
		gen.Float64Range(0, 300),
	))

	properties.Property("trailing stop never decreases while held", prop.ForAll(
		func(prices []float64) bool {
			cfg := config.Default().Strategy.Targets
			cfg.StopLoss = config.TargetMethods{TrailingEnabled: true, TrailingPercent: 0.1}
			cfg.TakeProfit = config.TargetMethods{TrailingEnabled: true, TrailingPercent: 0.1}
			calc := NewCalculator(cfg, zerolog.Nop())

			prev := 0.0
			for _, p := range prices {
				if _, err := calc.Compute(Input{Symbol: "TEST", Price: p, Held: true}); err != nil {
					t.Logf("FAILED: price=%.2f: %v", p, err)
					return false
				}
				stop, _ := calc.TrailingStop("TEST")
				if stop < prev {
					t.Logf("FAILED: trailing stop fell from %.4f to %.4f", prev, stop)
					return false
				}
				prev = stop
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(10, 100)),
	))

	properties.TestingRun(t)
}
