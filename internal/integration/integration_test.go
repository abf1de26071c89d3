// Package integration exercises the engine against the paper broker, the
// sqlite journal and the metrics registry together.
package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"equity-trader/internal/broker"
	"equity-trader/internal/config"
	"equity-trader/internal/engine"
	"equity-trader/internal/errors"
	"equity-trader/internal/metrics"
	"equity-trader/internal/models"
	"equity-trader/internal/resilience"
	"equity-trader/internal/store"
)

var monday = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

func bar(symbol string, price float64) models.Bar {
	ready := func(cur, prev float64) models.IndicatorValue {
		return models.IndicatorValue{Ready: true, Current: cur, Previous: prev}
	}
	return models.Bar{
		PriceSnapshot: models.PriceSnapshot{Symbol: symbol, Price: price, Close: price, Sector: "Technology"},
		Indicators: models.IndicatorReadings{
			ShortEMA: ready(price*1.01, price),
			LongEMA:  ready(price, price),
			ATR:      ready(4, 4),
		},
	}
}

func strategy() config.StrategyConfig {
	cfg := config.Default().Strategy
	cfg.Targets.StopLoss = config.TargetMethods{PercentEnabled: true, Percent: 0.05}
	cfg.Targets.TakeProfit = config.TargetMethods{PercentEnabled: true, Percent: 0.10}
	cfg.Targets.AnchorHeldToCost = true
	cfg.Buy.LimitOrderEnabled = false
	return cfg
}

type system struct {
	paper   *broker.PaperBroker
	guarded *resilience.GuardedBroker
	store   *store.SQLiteStore
	reg     *prometheus.Registry
	engine  *engine.Engine
}

func newSystem(t *testing.T, inner func(*broker.PaperBroker) broker.Broker) *system {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := &system{
		paper: broker.NewPaperBroker(broker.PaperBrokerConfig{InitialBalance: 1000}),
		store: db,
		reg:   prometheus.NewRegistry(),
	}
	var b broker.Broker = s.paper
	if inner != nil {
		b = inner(s.paper)
	}
	breaker := resilience.NewBreaker("paper", resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour}, zerolog.Nop())
	s.guarded = resilience.NewGuardedBroker(b, breaker)
	s.engine = engine.New(strategy(), s.guarded, engine.Options{
		Journal: db,
		Metrics: metrics.New(s.reg),
		Logger:  zerolog.Nop(),
	})
	return s
}

func (s *system) step(t *testing.T, at time.Time, bars ...models.Bar) ([]models.Intent, error) {
	t.Helper()
	ctx := context.Background()
	for _, b := range bars {
		s.paper.SetSector(b.Symbol, b.Sector)
		s.paper.UpdatePrice(b.Symbol, b.Price, at)
	}
	s.drain(t)
	intents, err := s.engine.OnUpdate(ctx, models.Update{Time: at, Bars: bars})
	s.drain(t)
	return intents, err
}

func (s *system) drain(t *testing.T) {
	t.Helper()
	for _, f := range s.paper.DrainFills() {
		if err := s.engine.OnFill(context.Background(), f); err != nil {
			t.Fatalf("OnFill failed: %v", err)
		}
	}
}

// TestPositionLifecycle buys, takes partial profit the next day and is
// stopped out of the remainder the day after.
func TestPositionLifecycle(t *testing.T) {
	s := newSystem(t, nil)
	ctx := context.Background()

	days := []float64{100, 110, 94}
	for i, price := range days {
		intents, err := s.step(t, monday.AddDate(0, 0, i), bar("AAPL", price))
		if err != nil {
			t.Fatalf("day %d: OnUpdate failed: %v", i, err)
		}
		if len(intents) != 1 {
			t.Fatalf("day %d: expected 1 intent, got %d", i, len(intents))
		}
	}

	fills, err := s.store.GetFills(ctx, store.FillFilter{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("GetFills failed: %v", err)
	}
	if len(fills) != 3 {
		t.Fatalf("expected 3 journaled fills, got %d", len(fills))
	}
	if fills[0].Side != models.OrderSideBuy || fills[1].Side != models.OrderSideSell || fills[2].Side != models.OrderSideSell {
		t.Errorf("unexpected fill sides: %s %s %s", fills[0].Side, fills[1].Side, fills[2].Side)
	}
	if fills[1].Quantity+fills[2].Quantity != fills[0].Quantity {
		t.Errorf("sells %d+%d do not close buy of %d", fills[1].Quantity, fills[2].Quantity, fills[0].Quantity)
	}
	if fills[1].Quantity >= fills[0].Quantity {
		t.Errorf("take profit should be partial, sold %d of %d", fills[1].Quantity, fills[0].Quantity)
	}

	executed := true
	decisions, err := s.store.GetDecisions(ctx, store.DecisionFilter{Symbol: "AAPL", Executed: &executed})
	if err != nil {
		t.Fatalf("GetDecisions failed: %v", err)
	}
	if len(decisions) != 3 {
		t.Fatalf("expected 3 executed decisions, got %d", len(decisions))
	}
	for _, d := range decisions {
		if d.OrderID == "" || d.Audit == "" {
			t.Errorf("decision %s missing order id or audit", d.ID)
		}
	}

	positions, err := s.paper.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("expected flat book, got %d positions", len(positions))
	}

	st := s.engine.Stats()
	if st.Wins != 1 || st.Losses != 1 {
		t.Errorf("expected 1 win and 1 loss, got %d and %d", st.Wins, st.Losses)
	}
	if st.WinProbability != 0.5 {
		t.Errorf("expected win probability 0.5, got %v", st.WinProbability)
	}
	if dt := s.engine.DayTrades(monday.AddDate(0, 0, 2)); dt.WindowCount != 0 {
		t.Errorf("overnight exits are not day trades, got %d", dt.WindowCount)
	}

	if n, err := testutil.GatherAndCount(s.reg, "trader_orders_submitted_total"); err != nil || n != 2 {
		t.Errorf("expected BUY and SELL order series, got %d (%v)", n, err)
	}
	if got := s.guarded.Breaker().State(); got != resilience.CircuitClosed {
		t.Errorf("breaker should stay closed, got %s", got)
	}
}

type downBroker struct {
	broker.Broker
}

func (downBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	return nil, errors.New("broker unreachable")
}

// TestBrokerOutageOpensCircuit checks that repeated broker failures abort
// cycles and then short-circuit further calls.
func TestBrokerOutageOpensCircuit(t *testing.T) {
	s := newSystem(t, func(p *broker.PaperBroker) broker.Broker { return downBroker{Broker: p} })

	for i := 0; i < 2; i++ {
		if _, err := s.step(t, monday.Add(time.Duration(i)*time.Minute), bar("AAPL", 100)); err == nil {
			t.Fatalf("cycle %d should fail while the broker is down", i)
		}
	}

	_, err := s.step(t, monday.Add(2*time.Minute), bar("AAPL", 100))
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	decisions, err := s.store.GetDecisions(context.Background(), store.DecisionFilter{})
	if err != nil {
		t.Fatalf("GetDecisions failed: %v", err)
	}
	if len(decisions) != 0 {
		t.Errorf("aborted cycles must not journal decisions, got %d", len(decisions))
	}
}
