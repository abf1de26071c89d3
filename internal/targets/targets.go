// Package targets computes stop-loss and take-profit prices and the per-share
// risk and reward they imply.
package targets

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"equity-trader/internal/config"
	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

// Method names recorded in PriceTarget candidates.
const (
	MethodPercent  = "percent"
	MethodATR      = "atr"
	MethodFibATR   = "fib_atr"
	MethodTrailing = "trailing"
)

// Input is what the calculator needs for one instrument in one cycle.
type Input struct {
	Symbol      string
	Price       float64
	ATR         models.IndicatorValue
	Held        bool
	AverageCost float64
}

// Calculator computes price targets. Trailing prices are the only state kept
// between cycles.
type Calculator struct {
	cfg            config.TargetsConfig
	logger         zerolog.Logger
	trailingStop   map[string]float64
	trailingProfit map[string]float64
}

// NewCalculator creates a new price-target calculator.
func NewCalculator(cfg config.TargetsConfig, logger zerolog.Logger) *Calculator {
	return &Calculator{
		cfg:            cfg,
		logger:         logger,
		trailingStop:   make(map[string]float64),
		trailingProfit: make(map[string]float64),
	}
}

// Compute returns the effective stop-loss and take-profit for in.
func (c *Calculator) Compute(in Input) (models.PriceTarget, error) {
	if in.Price <= 0 || !finite(in.Price) {
		return models.PriceTarget{}, errors.NotReady(in.Symbol, "price")
	}
	usesATR := c.cfg.StopLoss.UsesATR() || c.cfg.TakeProfit.UsesATR()
	if usesATR && !in.ATR.Ready {
		return models.PriceTarget{}, errors.NotReady(in.Symbol, "atr")
	}
	if !in.Held {
		c.Reset(in.Symbol)
	}

	ref := in.Price
	if in.Held && c.cfg.AnchorHeldToCost && in.AverageCost > 0 {
		ref = in.AverageCost
	}
	atr := in.ATR.Current
	if !finite(ref) || (usesATR && !finite(atr)) {
		return models.PriceTarget{}, errors.NewComputationFault("targets", in.Symbol,
			fmt.Errorf("non-finite input: ref %v atr %v", ref, atr))
	}

	// Candidates are computed in decimal so a target such as 100 * 1.1 is
	// exactly 110 and a price equal to it counts as reaching it.
	stops := candidates{}
	sl := c.cfg.StopLoss
	if sl.PercentEnabled {
		stops.add(MethodPercent, scale(ref, -sl.Percent))
	}
	if sl.ATREnabled {
		stops.add(MethodATR, offset(ref, atr, -sl.ATRMultiplier))
	}
	if sl.FibEnabled {
		stops.add(MethodFibATR, offset(minLevel(ref, sl.FibLevels, -1), atr, 1))
	}
	trail := c.trail(c.trailingStop, in, scale(in.Price, -sl.TrailingPercent), sl.TrailingEnabled)
	if sl.TrailingEnabled {
		stops.add(MethodTrailing, trail)
	} else {
		stops.note(MethodTrailing, trail)
	}

	profits := candidates{}
	tp := c.cfg.TakeProfit
	if tp.PercentEnabled {
		profits.add(MethodPercent, scale(ref, tp.Percent))
	}
	if tp.ATREnabled {
		profits.add(MethodATR, offset(ref, atr, tp.ATRMultiplier))
	}
	if tp.FibEnabled {
		profits.add(MethodFibATR, offset(minLevel(ref, tp.FibLevels, 1), atr, 1))
	}
	trail = c.trail(c.trailingProfit, in, scale(in.Price, tp.TrailingPercent), tp.TrailingEnabled)
	if tp.TrailingEnabled {
		profits.add(MethodTrailing, trail)
	} else {
		profits.note(MethodTrailing, trail)
	}

	target := models.PriceTarget{
		StopCandidates:   stops.values,
		ProfitCandidates: profits.values,
	}
	var ok bool
	if target.StopMethod, target.StopLoss, ok = stops.max(); !ok {
		return target, errors.NewDataError("stop_loss", in.Symbol, "no candidates", errors.ErrNoTargets)
	}
	if target.ProfitMethod, target.TakeProfit, ok = profits.max(); !ok {
		return target, errors.NewDataError("take_profit", in.Symbol, "no candidates", errors.ErrNoTargets)
	}

	if target.StopLoss > target.TakeProfit {
		return target, errors.NewComputationFault("targets", in.Symbol,
			fmt.Errorf("stop-loss %.4f above take-profit %.4f", target.StopLoss, target.TakeProfit))
	}

	c.logger.Debug().
		Str("symbol", in.Symbol).
		Float64("stop_loss", target.StopLoss).
		Str("stop_method", target.StopMethod).
		Float64("take_profit", target.TakeProfit).
		Str("profit_method", target.ProfitMethod).
		Msg("Price targets computed")

	return target, nil
}

// trail ratchets the stored trailing price upward while the position is held.
// When the method is disabled the stored price is reported if present,
// otherwise the fresh estimate, and nothing is stored.
func (c *Calculator) trail(store map[string]float64, in Input, fresh float64, enabled bool) float64 {
	stored, ok := store[in.Symbol]
	if !enabled {
		if ok {
			return stored
		}
		return fresh
	}
	if !in.Held {
		return fresh
	}
	if !ok || fresh > stored {
		stored = fresh
	}
	store[in.Symbol] = stored
	return stored
}

// Reset drops trailing state for symbol.
func (c *Calculator) Reset(symbol string) {
	delete(c.trailingStop, symbol)
	delete(c.trailingProfit, symbol)
}

// TrailingStop returns the stored trailing stop for symbol.
func (c *Calculator) TrailingStop(symbol string) (float64, bool) {
	v, ok := c.trailingStop[symbol]
	return v, ok
}

// TrailingProfit returns the stored trailing take-profit for symbol.
func (c *Calculator) TrailingProfit(symbol string) (float64, bool) {
	v, ok := c.trailingProfit[symbol]
	return v, ok
}

// scale returns ref * (1 + pct).
func scale(ref, pct float64) float64 {
	v := decimal.NewFromFloat(ref).Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(pct)))
	f, _ := v.Float64()
	return f
}

// offset returns ref + atr * mult. A non-finite ref passes through so the
// candidate is dropped by max.
func offset(ref, atr, mult float64) float64 {
	if !finite(ref) {
		return ref
	}
	v := decimal.NewFromFloat(ref).Add(decimal.NewFromFloat(atr).Mul(decimal.NewFromFloat(mult)))
	f, _ := v.Float64()
	return f
}

// minLevel returns min(ref * (1 + sign*level)) over levels.
func minLevel(ref float64, levels []float64, sign float64) float64 {
	lowest := math.Inf(1)
	for _, l := range levels {
		lowest = math.Min(lowest, scale(ref, sign*l))
	}
	return lowest
}

// priceScale is the number of decimal places prices are compared at.
const priceScale = 8

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func atScale(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(priceScale)
}

// Reached reports whether price is at or above target. Both are rounded to
// priceScale places first so float noise in the target does not matter.
func Reached(price, target float64) bool {
	if !finite(price) || !finite(target) {
		return false
	}
	return atScale(price).GreaterThanOrEqual(atScale(target))
}

// Breached reports whether price is at or below target.
func Breached(price, target float64) bool {
	if !finite(price) || !finite(target) {
		return false
	}
	return atScale(price).LessThanOrEqual(atScale(target))
}

type candidates struct {
	values  map[string]float64
	enabled []string
}

func (c *candidates) add(method string, v float64) {
	c.note(method, v)
	c.enabled = append(c.enabled, method)
}

func (c *candidates) note(method string, v float64) {
	if c.values == nil {
		c.values = make(map[string]float64)
	}
	c.values[method] = v
}

// max returns the largest positive enabled candidate.
func (c *candidates) max() (string, float64, bool) {
	var (
		method string
		best   float64
		found  bool
	)
	for _, m := range c.enabled {
		v := c.values[m]
		if v <= 0 || !finite(v) {
			continue
		}
		if !found || v > best {
			method, best, found = m, v, true
		}
	}
	return method, best, found
}
