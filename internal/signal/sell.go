package signal

import (
	"math"

	"equity-trader/internal/config"
	"equity-trader/internal/errors"
	"equity-trader/internal/models"
	"equity-trader/internal/targets"
)

// Sell condition names.
const (
	CondPriceTargetMet  = "PriceTargetMet"
	CondMACDBelowSignal = "MACDCrossBelowSignal"
	CondRSIWeak         = "RSIWeak"
	CondSellPDTRule     = "PDTRule"
)

// Exit reasons.
const (
	ReasonTakeProfit = "take_profit"
	ReasonStopLoss   = "stop_loss"
)

// SellInput is everything the sell evaluator looks at for one instrument.
type SellInput struct {
	Bar        models.Bar
	Target     models.PriceTarget
	Position   models.Position
	Account    models.Balance
	PDTBlocked bool
}

// SellDecision is the outcome of a sell evaluation.
type SellDecision struct {
	Sell       bool
	Quantity   int
	OrderType  models.OrderType
	LimitPrice float64
	Reason     string
	Audit      Audit
}

// SellEvaluator decides whether to reduce or close a held position.
type SellEvaluator struct {
	cfg config.StrategyConfig
}

// NewSellEvaluator creates a new sell evaluator.
func NewSellEvaluator(cfg config.StrategyConfig) *SellEvaluator {
	return &SellEvaluator{cfg: cfg}
}

// RequireReady returns a not-ready error for the first indicator an enabled
// sell predicate needs but does not have.
func (e *SellEvaluator) RequireReady(symbol string, ind models.IndicatorReadings) error {
	sc := e.cfg.Sell
	switch {
	case sc.MACDBelowSignal && !ind.MACD.Ready:
		return errors.NotReady(symbol, "macd")
	case sc.MACDBelowSignal && !ind.MACDSignal.Ready:
		return errors.NotReady(symbol, "macd_signal")
	case sc.RSIWeakEnabled && !ind.RSI.Ready:
		return errors.NotReady(symbol, "rsi")
	}
	return nil
}

// Evaluate runs the sell predicates for a held position.
func (e *SellEvaluator) Evaluate(in SellInput) (SellDecision, error) {
	symbol := in.Bar.Symbol
	if !in.Position.Invested() {
		return SellDecision{}, errors.NewDataError("position", symbol, "not held", errors.ErrPositionNotFound)
	}
	if err := e.RequireReady(symbol, in.Bar.Indicators); err != nil {
		return SellDecision{}, err
	}

	sc := e.cfg.Sell
	ind := in.Bar.Indicators
	price := in.Bar.Price
	a := newAudit(symbol, string(models.OrderSideSell))

	hitProfit := targets.Reached(price, in.Target.TakeProfit)
	hitStop := targets.Breached(price, in.Target.StopLoss)

	a.check(CondPriceTargetMet, true, hitProfit || hitStop)
	a.check(CondMACDBelowSignal, sc.MACDBelowSignal, ind.MACD.Current < ind.MACDSignal.Current)
	a.check(CondRSIWeak, sc.RSIWeakEnabled, ind.RSI.Current < sc.RSIMax)
	a.check(CondSellPDTRule, sc.PDTEnabled, !in.PDTBlocked)

	held := in.Position.Quantity
	d := SellDecision{Audit: a}
	switch {
	case hitProfit:
		d.Reason = ReasonTakeProfit
		d.OrderType = models.OrderTypeLimit
		// Reached allows float noise above price, which a limit must not carry.
		d.LimitPrice = math.Min(in.Target.TakeProfit, price)
		d.Quantity = held
		if in.Target.ProfitMethod == targets.MethodPercent {
			d.Quantity = partial(held, sc.PartialExitFraction)
		}
	case hitStop:
		d.Reason = ReasonStopLoss
		d.OrderType = models.OrderTypeMarket
		d.Quantity = held
	}
	d.Audit.Reason = d.Reason

	d.Audit.UnderlyingValues = map[string]float64{
		"CurrentPrice":    price,
		"TakeProfitPrice": in.Target.TakeProfit,
		"StopLossPrice":   in.Target.StopLoss,
		"HeldQuantity":    float64(held),
		"AverageCost":     in.Position.AveragePrice,
		"SellQuantity":    float64(d.Quantity),
		"Cash":            in.Account.AvailableCash,
		"TotalValue":      in.Account.TotalEquity,
		"MACDValue":       ind.MACD.Current,
		"MACDSignal":      ind.MACDSignal.Current,
		"RSI":             ind.RSI.Current,
	}
	d.Audit.Parameters = map[string]float64{
		"PartialExitFraction": sc.PartialExitFraction,
	}
	if sc.RSIWeakEnabled {
		d.Audit.Parameters["RSIMaxThreshold"] = sc.RSIMax
	}
	if sc.PDTEnabled {
		d.Audit.Parameters["MaxDayTrades"] = float64(e.cfg.DayTrade.MaxDayTrades)
		d.Audit.Parameters["PDTMinEquity"] = e.cfg.DayTrade.MinEquity
	}

	d.Sell = d.Audit.Passed() && d.Quantity > 0
	if !d.Sell {
		d.Quantity = 0
	}
	return d, nil
}

// partial returns round(held * fraction) clamped to [1, held].
func partial(held int, fraction float64) int {
	q := int(math.Round(float64(held) * fraction))
	if q < 1 {
		q = 1
	}
	if q > held {
		q = held
	}
	return q
}
