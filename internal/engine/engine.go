// Package engine runs the per-update decision cycle for every instrument and
// applies fills to the bookkeeping that feeds later cycles.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"equity-trader/internal/broker"
	"equity-trader/internal/config"
	"equity-trader/internal/daytrade"
	"equity-trader/internal/errors"
	"equity-trader/internal/logging"
	"equity-trader/internal/metrics"
	"equity-trader/internal/models"
	"equity-trader/internal/orders"
	"equity-trader/internal/sector"
	"equity-trader/internal/signal"
	"equity-trader/internal/sizing"
	"equity-trader/internal/stats"
	"equity-trader/internal/store"
	"equity-trader/internal/targets"
)

// Decision actions journaled for every evaluation.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Engine orchestrates the decision cycle. It is not safe for concurrent use:
// OnUpdate and OnFill must be called from one goroutine in arrival order.
type Engine struct {
	cfg     config.StrategyConfig
	broker  broker.Broker
	journal store.Journal
	metrics *metrics.Metrics
	logger  zerolog.Logger

	targets  *targets.Calculator
	sizing   *sizing.Calculator
	buy      *signal.BuyEvaluator
	sell     *signal.SellEvaluator
	dayTrade *daytrade.Tracker
	orders   *orders.Manager
	stats    *stats.Tracker

	allocation sector.Allocation
}

// Options holds the optional collaborators. Zero values disable them.
type Options struct {
	Journal store.Journal
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// New creates an engine trading through b.
func New(cfg config.StrategyConfig, b broker.Broker, opts Options) *Engine {
	logger := logging.WithComponent(opts.Logger, "engine")
	return &Engine{
		cfg:      cfg,
		broker:   b,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		logger:   logger,
		targets:  targets.NewCalculator(cfg.Targets, logging.WithComponent(opts.Logger, "targets")),
		sizing:   sizing.NewCalculator(cfg.Sizing),
		buy:      signal.NewBuyEvaluator(cfg),
		sell:     signal.NewSellEvaluator(cfg),
		dayTrade: daytrade.NewTracker(cfg.DayTrade, logging.WithComponent(opts.Logger, "daytrade")),
		orders:   orders.NewManager(cfg.Orders, b, logging.WithComponent(opts.Logger, "orders")),
		stats:    stats.NewTracker(logging.WithComponent(opts.Logger, "stats")),
	}
}

// cycle is the account state shared by every instrument in one update.
type cycle struct {
	now        time.Time
	positions  map[string]models.Position
	heldCount  int
	account    models.Balance
	pdtBlocked bool
}

// OnUpdate expires stale orders, evaluates every instrument in u and submits
// at most one order per instrument. It returns the submitted intents. A fault
// in one instrument is logged and counted and never stops the others; only a
// failure to read the account aborts the cycle.
func (e *Engine) OnUpdate(ctx context.Context, u models.Update) ([]models.Intent, error) {
	sweep := e.orders.Sweep(ctx, u.Time)
	e.metrics.OrdersCancelled(len(sweep.Cancelled))
	for _, err := range sweep.Failed {
		e.metrics.Fault(errors.FaultKind(err))
	}

	c, err := e.loadCycle(ctx, u.Time)
	if err != nil {
		return nil, err
	}

	var intents []models.Intent
	for _, bar := range u.Bars {
		intent, err := e.evaluateSafe(ctx, c, bar)
		if err != nil {
			kind := errors.FaultKind(err)
			e.metrics.Fault(kind)
			logging.LogFault(e.logger, bar.Symbol, kind, err)
			continue
		}
		if intent == nil {
			continue
		}
		if err := e.submit(ctx, c.now, intent); err != nil {
			e.metrics.Fault(errors.FaultKind(err))
			e.logger.Error().Err(err).Str("symbol", bar.Symbol).Msg("Order submission failed")
			continue
		}
		intents = append(intents, *intent)
	}

	e.metrics.SetOpenOrders(len(e.orders.Open()))
	e.metrics.SetDayTrades(e.dayTrade.WindowCount(u.Time))
	return intents, nil
}

func (e *Engine) loadCycle(ctx context.Context, now time.Time) (*cycle, error) {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get positions")
	}
	balance, err := e.broker.GetBalance(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	if e.allocation == nil {
		e.allocation = sector.Compute(positions, balance.TotalEquity)
	}

	c := &cycle{
		now:        now,
		positions:  make(map[string]models.Position, len(positions)),
		heldCount:  sector.HeldCount(positions),
		account:    *balance,
		pdtBlocked: e.dayTrade.Blocks(now, balance.AvailableCash),
	}
	for _, p := range positions {
		c.positions[p.Symbol] = p
	}
	return c, nil
}

// evaluateSafe turns a panic while evaluating one instrument into a
// computation fault for that instrument.
func (e *Engine) evaluateSafe(ctx context.Context, c *cycle, bar models.Bar) (intent *models.Intent, err error) {
	defer func() {
		if r := recover(); r != nil {
			intent = nil
			err = errors.NewComputationFault("engine", bar.Symbol, fmt.Errorf("panic: %v", r))
		}
	}()
	return e.evaluate(ctx, c, bar)
}

func (e *Engine) evaluate(ctx context.Context, c *cycle, bar models.Bar) (*models.Intent, error) {
	symbol := bar.Symbol
	logger := logging.WithSymbol(e.logger, symbol)
	if e.orders.HasOpen(symbol) {
		logger.Debug().Msg("Order pending, skipping")
		return nil, nil
	}

	pos := c.positions[symbol]
	held := pos.Invested()

	target, err := e.targets.Compute(targets.Input{
		Symbol:      symbol,
		Price:       bar.Price,
		ATR:         bar.Indicators.ATR,
		Held:        held,
		AverageCost: pos.AveragePrice,
	})
	if err != nil {
		return nil, err
	}

	intent, err := e.evaluateBuy(ctx, c, bar, target, held)
	if err != nil && !held {
		return nil, err
	}
	if err != nil {
		kind := errors.FaultKind(err)
		e.metrics.Fault(kind)
		logging.LogFault(logger, symbol, kind, err)
	}
	if intent != nil || !held {
		return intent, nil
	}
	return e.evaluateSell(ctx, c, bar, target, pos)
}

func (e *Engine) evaluateBuy(ctx context.Context, c *cycle, bar models.Bar, target models.PriceTarget, held bool) (*models.Intent, error) {
	symbol := bar.Symbol
	rr, err := targets.EvaluateRiskReward(symbol, bar.Price, target)
	if err != nil {
		return nil, err
	}

	size := e.sizing.Size(sizing.Inputs{
		RiskPerShare: rr.Risk,
		LimitPrice:   e.buy.LimitPrice(bar.Close),
		Cash:         c.account.AvailableCash,
		TotalValue:   c.account.TotalEquity,
		Kelly:        e.stats.Kelly(),
		HasHistory:   e.stats.HasHistory(),
	})

	_, largest, _ := e.allocation.Largest()
	d, err := e.buy.Evaluate(signal.BuyInput{
		Bar:                  bar,
		Target:               target,
		RiskReward:           rr,
		Size:                 size,
		Account:              c.account,
		Held:                 held,
		HeldCount:            c.heldCount,
		SectorPercent:        e.allocation.Percent(bar.Sector),
		LargestSectorPercent: largest.Percent,
		PDTBlocked:           c.pdtBlocked,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Decision(models.OrderSideBuy, d.Buy)

	if !d.Audit.Conditions[signal.CondCapitalFloor] {
		err := errors.NewRiskError(signal.CondCapitalFloor, c.account.TotalEquity, e.cfg.Buy.CapitalFloor,
			"buying disabled", errors.ErrCapitalExhausted)
		e.metrics.Fault(errors.FaultKind(err))
		logging.LogFault(e.logger, symbol, errors.KindCapitalExhausted, err)
	}

	tag := d.Audit.Tag()
	if !d.Buy {
		e.logger.Debug().Str("symbol", symbol).Strs("failed", d.Audit.Failed()).Msg("No buy")
		e.record(ctx, c.now, symbol, models.OrderSideBuy, ActionHold, 0, d.LimitPrice, tag)
		return nil, nil
	}

	return &models.Intent{
		Symbol:     symbol,
		Side:       models.OrderSideBuy,
		Type:       d.OrderType,
		Quantity:   d.Quantity,
		LimitPrice: d.LimitPrice,
		Tag:        tag,
	}, nil
}

func (e *Engine) evaluateSell(ctx context.Context, c *cycle, bar models.Bar, target models.PriceTarget, pos models.Position) (*models.Intent, error) {
	d, err := e.sell.Evaluate(signal.SellInput{
		Bar:        bar,
		Target:     target,
		Position:   pos,
		Account:    c.account,
		PDTBlocked: c.pdtBlocked,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Decision(models.OrderSideSell, d.Sell)

	tag := d.Audit.Tag()
	if !d.Sell {
		e.logger.Debug().Str("symbol", bar.Symbol).Strs("failed", d.Audit.Failed()).Msg("No sell")
		e.record(ctx, c.now, bar.Symbol, models.OrderSideSell, ActionHold, 0, d.LimitPrice, tag)
		return nil, nil
	}

	return &models.Intent{
		Symbol:     bar.Symbol,
		Side:       models.OrderSideSell,
		Type:       d.OrderType,
		Quantity:   d.Quantity,
		LimitPrice: d.LimitPrice,
		Tag:        tag,
	}, nil
}

// submit places intent, tracks its ticket and journals the decision.
func (e *Engine) submit(ctx context.Context, now time.Time, intent *models.Intent) error {
	order := &models.Order{
		Symbol:   intent.Symbol,
		Side:     intent.Side,
		Type:     intent.Type,
		Quantity: intent.Quantity,
		Tag:      intent.Tag,
	}
	if intent.Type == models.OrderTypeLimit {
		order.Price = intent.LimitPrice
	}

	res, err := e.broker.PlaceOrder(ctx, order)
	if err != nil {
		return err
	}

	e.orders.Track(models.OrderTicket{
		ID:          res.OrderID,
		Symbol:      intent.Symbol,
		Side:        intent.Side,
		Quantity:    intent.Quantity,
		LimitPrice:  order.Price,
		SubmittedAt: now,
		Tag:         intent.Tag,
	})
	e.metrics.OrderSubmitted(intent.Side)

	logging.LogDecision(e.logger, intent.Symbol, string(intent.Side), intent.Quantity, intent.LimitPrice, intent.Tag)
	logging.LogOrder(e.logger, res.OrderID, intent.Symbol, string(intent.Side), res.Status)

	d := e.decision(now, intent.Symbol, intent.Side, string(intent.Side), intent.Quantity, intent.LimitPrice, intent.Tag)
	d.Executed = true
	d.OrderID = res.OrderID
	e.save(ctx, d)
	return nil
}

func (e *Engine) decision(now time.Time, symbol string, side models.OrderSide, action string, qty int, price float64, tag string) *models.Decision {
	return &models.Decision{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Symbol:     symbol,
		Side:       side,
		Action:     action,
		Quantity:   qty,
		LimitPrice: price,
		Audit:      tag,
	}
}

func (e *Engine) record(ctx context.Context, now time.Time, symbol string, side models.OrderSide, action string, qty int, price float64, tag string) {
	e.save(ctx, e.decision(now, symbol, side, action, qty, price, tag))
}

func (e *Engine) save(ctx context.Context, d *models.Decision) {
	if e.journal == nil {
		return
	}
	if err := e.journal.SaveDecision(ctx, d); err != nil {
		e.logger.Warn().Err(err).Str("symbol", d.Symbol).Msg("Failed to journal decision")
	}
}

// OnFill applies an executed fill: closes its ticket, updates trade
// statistics on sells, counts day trades and recomputes sector allocation
// from the broker's positions.
func (e *Engine) OnFill(ctx context.Context, fill models.Fill) error {
	logging.LogFill(e.logger, fill.OrderID, fill.Symbol, string(fill.Side), fill.Quantity, fill.Price)
	if e.journal != nil {
		if err := e.journal.LogFill(ctx, &fill); err != nil {
			e.logger.Warn().Err(err).Str("order_id", fill.OrderID).Msg("Failed to journal fill")
		}
	}

	e.orders.Close(fill.OrderID)
	e.metrics.SetOpenOrders(len(e.orders.Open()))

	if fill.Side == models.OrderSideSell {
		profit := e.stats.RecordSell(fill)
		snap := e.stats.Snapshot()
		e.metrics.SetStats(snap)
		e.logger.Info().
			Str("symbol", fill.Symbol).
			Float64("profit", profit).
			Float64("win_probability", snap.WinProbability).
			Float64("kelly", snap.Kelly).
			Msg("Trade closed")
	}

	if e.dayTrade.Record(fill.Symbol, fill.Side, fill.Time) {
		e.metrics.SetDayTrades(e.dayTrade.WindowCount(fill.Time))
	}

	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get positions")
	}
	balance, err := e.broker.GetBalance(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	e.allocation = sector.Compute(positions, balance.TotalEquity)

	held := false
	for _, p := range positions {
		if p.Symbol == fill.Symbol && p.Invested() {
			held = true
			break
		}
	}
	if !held {
		e.targets.Reset(fill.Symbol)
	}
	return nil
}

// Stats returns the trade outcome statistics.
func (e *Engine) Stats() models.TradeStatistics {
	return e.stats.Snapshot()
}

// DayTrades returns the day-trade tracker state at now.
func (e *Engine) DayTrades(now time.Time) daytrade.Snapshot {
	return e.dayTrade.Snapshot(now)
}

// Allocation returns the sector allocation as of the last fill.
func (e *Engine) Allocation() sector.Allocation {
	return e.allocation
}

// OpenOrders returns the tickets still awaiting a fill.
func (e *Engine) OpenOrders() []models.OrderTicket {
	return e.orders.Open()
}
