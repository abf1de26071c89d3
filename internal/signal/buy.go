package signal

import (
	"equity-trader/internal/config"
	"equity-trader/internal/errors"
	"equity-trader/internal/models"
	"equity-trader/internal/sizing"
)

// Buy condition names.
const (
	CondEMACrossover        = "EMACrossover"
	CondShortEMARising      = "ShortEMARising"
	CondEMADistanceWidening = "EMADistanceWidening"
	CondRSIStrong           = "RSIStrong"
	CondStochRSIStrong      = "StochasticRSIStrong"
	CondMACDAboveSignal     = "MACDCrossAboveSignal"
	CondRewardRisk          = "RewardRiskRatio"
	CondMaxPerTrade         = "MaxPortfolioPercentPerTrade"
	CondMaxTotalInvested    = "MaxTotalPortfolioInvestedPercent"
	CondMinStocks           = "MinStocksInvested"
	CondSectorCap           = "MaxSectorInvestedPercent"
	CondPDTRule             = "PDTRule"
	CondCapitalFloor        = "CapitalFloor"
	CondMinCash             = "MinCash"
	CondPositionSize        = "PositionSize"
)

// BuyInput is everything the buy evaluator looks at for one instrument.
type BuyInput struct {
	Bar        models.Bar
	Target     models.PriceTarget
	RiskReward models.RiskReward
	Size       sizing.Result
	Account    models.Balance
	// Held reports whether the instrument is already in the portfolio.
	Held          bool
	HeldCount     int
	SectorPercent float64
	// LargestSectorPercent is the share of the largest-held sector. The cap
	// is checked against SectorPercent, which equals it whenever the bar
	// belongs to that sector.
	LargestSectorPercent float64
	PDTBlocked           bool
}

// BuyDecision is the outcome of a buy evaluation.
type BuyDecision struct {
	Buy        bool
	Quantity   int
	OrderType  models.OrderType
	LimitPrice float64
	Audit      Audit
}

// BuyEvaluator decides whether to open a position. It has no side effects.
type BuyEvaluator struct {
	cfg config.StrategyConfig
}

// NewBuyEvaluator creates a new buy evaluator.
func NewBuyEvaluator(cfg config.StrategyConfig) *BuyEvaluator {
	return &BuyEvaluator{cfg: cfg}
}

// LimitPrice returns the buy limit price for close.
func (e *BuyEvaluator) LimitPrice(close float64) float64 {
	if e.cfg.Buy.LimitOrderEnabled {
		return close * e.cfg.Buy.LimitOrderPercent
	}
	return close
}

// RequireReady returns a not-ready error for the first indicator an enabled
// buy predicate needs but does not have.
func (e *BuyEvaluator) RequireReady(symbol string, ind models.IndicatorReadings) error {
	b := e.cfg.Buy
	needs := []struct {
		enabled bool
		name    string
		value   models.IndicatorValue
	}{
		{b.EMACrossover || b.EMADistanceWidening, "long_ema", ind.LongEMA},
		{b.EMACrossover || b.EMADistanceWidening || b.ShortEMARising, "short_ema", ind.ShortEMA},
		{b.RSIEnabled, "rsi", ind.RSI},
		{b.StochRSIEnabled, "stoch_rsi", ind.StochRSI},
		{b.MACDAboveSignal, "macd", ind.MACD},
		{b.MACDAboveSignal, "macd_signal", ind.MACDSignal},
	}
	for _, n := range needs {
		if n.enabled && !n.value.Ready {
			return errors.NotReady(symbol, n.name)
		}
	}
	return nil
}

// Evaluate runs every buy predicate and returns the decision with its audit.
func (e *BuyEvaluator) Evaluate(in BuyInput) (BuyDecision, error) {
	symbol := in.Bar.Symbol
	if err := e.RequireReady(symbol, in.Bar.Indicators); err != nil {
		return BuyDecision{}, err
	}

	b := e.cfg.Buy
	s := e.cfg.Sizing
	ind := in.Bar.Indicators
	a := newAudit(symbol, string(models.OrderSideBuy))

	qty := in.Size.Quantity
	worstLoss := in.RiskReward.Risk * float64(qty)
	total := in.Account.TotalEquity
	ratio := in.RiskReward.Ratio()

	a.check(CondEMACrossover, b.EMACrossover, ind.ShortEMA.Current > ind.LongEMA.Current)
	a.check(CondShortEMARising, b.ShortEMARising, ind.ShortEMA.Current > ind.ShortEMA.Previous)
	a.check(CondEMADistanceWidening, b.EMADistanceWidening,
		ind.ShortEMA.Current-ind.LongEMA.Current > ind.ShortEMA.Previous-ind.LongEMA.Previous)
	a.check(CondRSIStrong, b.RSIEnabled, ind.RSI.Current > b.RSIMin)
	a.check(CondStochRSIStrong, b.StochRSIEnabled, ind.StochRSI.Current > b.StochRSIMin)
	a.check(CondMACDAboveSignal, b.MACDAboveSignal, ind.MACD.Current > ind.MACDSignal.Current)
	a.check(CondRewardRisk, b.RewardRiskEnabled, ratio >= b.MinRewardRisk)
	a.check(CondMaxPerTrade, s.MaxPerTradeEnabled, worstLoss < s.MaxPerTrade*total)
	a.check(CondMaxTotalInvested, s.MaxTotalInvestedEnabled, worstLoss < s.MaxTotalInvested*total)
	a.check(CondMinStocks, b.MinStocksEnabled, in.HeldCount >= b.MinStocksInvested || !in.Held)
	a.check(CondSectorCap, b.SectorCapEnabled, in.Bar.Sector == "" || in.SectorPercent < b.MaxSectorPercent)
	a.check(CondPDTRule, b.PDTEnabled, !in.PDTBlocked)
	a.check(CondCapitalFloor, b.CapitalFloorEnabled, total > b.CapitalFloor)
	a.check(CondMinCash, b.MinCashEnabled, in.Account.AvailableCash >= b.MinCash)
	a.check(CondPositionSize, true, qty > 0)

	a.UnderlyingValues = map[string]float64{
		"CurrentPrice":     in.Bar.Price,
		"ClosePrice":       in.Bar.Close,
		"TakeProfitPrice":  in.Target.TakeProfit,
		"StopLossPrice":    in.Target.StopLoss,
		"RiskPerShare":     in.RiskReward.Risk,
		"RewardPerShare":   in.RiskReward.Reward,
		"RewardRiskRatio":  ratio,
		"PositionSize":     float64(qty),
		"MaxLossPerTrade":  worstLoss,
		"Cash":             in.Account.AvailableCash,
		"TotalValue":       total,
		"HeldCount":        float64(in.HeldCount),
		"SectorPercent":    in.SectorPercent,
		"LargestSectorPct": in.LargestSectorPercent,
		"ShortEMACurrent":  ind.ShortEMA.Current,
		"ShortEMAPrevious": ind.ShortEMA.Previous,
		"LongEMA":          ind.LongEMA.Current,
		"LongEMAPrevious":  ind.LongEMA.Previous,
		"ATR":              ind.ATR.Current,
		"MACDValue":        ind.MACD.Current,
		"MACDSignal":       ind.MACDSignal.Current,
		"RSI":              ind.RSI.Current,
		"StochasticRSI":    ind.StochRSI.Current,
	}
	for name, v := range in.Size.Candidates {
		a.UnderlyingValues["Size_"+name] = v
	}

	a.Parameters = e.buyParameters()

	d := BuyDecision{
		Buy:        a.Passed(),
		Quantity:   qty,
		OrderType:  models.OrderTypeMarket,
		LimitPrice: e.LimitPrice(in.Bar.Close),
		Audit:      a,
	}
	if b.LimitOrderEnabled {
		d.OrderType = models.OrderTypeLimit
	}
	if !d.Buy {
		d.Quantity = 0
	}
	return d, nil
}

func (e *BuyEvaluator) buyParameters() map[string]float64 {
	b := e.cfg.Buy
	s := e.cfg.Sizing
	p := make(map[string]float64)
	set := func(enabled bool, name string, v float64) {
		if enabled {
			p[name] = v
		}
	}
	set(b.LimitOrderEnabled, "LimitOrderPercent", b.LimitOrderPercent)
	set(b.RSIEnabled, "RSIMinThreshold", b.RSIMin)
	set(b.StochRSIEnabled, "StochasticRSIMinThreshold", b.StochRSIMin)
	set(b.RewardRiskEnabled, "RewardRiskRatio", b.MinRewardRisk)
	set(s.MaxPerTradeEnabled, "MaxPortfolioPercentPerTrade", s.MaxPerTrade)
	set(s.MaxTotalInvestedEnabled, "MaxTotalPortfolioInvestedPercent", s.MaxTotalInvested)
	set(b.MinStocksEnabled, "MinStocksInvested", float64(b.MinStocksInvested))
	set(b.SectorCapEnabled, "MaxSectorInvestedPercent", b.MaxSectorPercent)
	set(b.PDTEnabled, "MaxDayTrades", float64(e.cfg.DayTrade.MaxDayTrades))
	set(b.PDTEnabled, "PDTMinEquity", e.cfg.DayTrade.MinEquity)
	set(b.CapitalFloorEnabled, "CapitalFloor", b.CapitalFloor)
	set(b.MinCashEnabled, "MinCash", b.MinCash)
	return p
}
