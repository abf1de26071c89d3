package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"equity-trader/internal/broker"
	"equity-trader/internal/engine"
	"equity-trader/internal/metrics"
	"equity-trader/internal/models"
	"equity-trader/internal/resilience"
	"equity-trader/internal/store"
	"equity-trader/pkg/utils"
)

// replaySyncKey records the time of the last replayed update in the journal.
const replaySyncKey = "replay"

// ReplaySummary is the outcome of one replay run.
type ReplaySummary struct {
	Updates        int                                `json:"updates"`
	Intents        int                                `json:"intents"`
	Fills          int                                `json:"fills"`
	LastUpdate     time.Time                          `json:"last_update"`
	Wins           int                                `json:"wins"`
	Losses         int                                `json:"losses"`
	TotalProfit    float64                            `json:"total_profit"`
	TotalLoss      float64                            `json:"total_loss"`
	WinProbability float64                            `json:"win_probability"`
	WinLossRatio   string                             `json:"win_loss_ratio"`
	Kelly          float64                            `json:"kelly"`
	DayTrades      int                                `json:"day_trades"`
	Cash           float64                            `json:"cash"`
	TotalEquity    float64                            `json:"total_equity"`
	Positions      []models.Position                  `json:"positions"`
	Sectors        map[string]models.SectorAllocation `json:"sectors"`
}

func newReplayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay market updates through the engine",
		Long: `Replay JSON-lines market updates through the decision engine against the
paper broker. Each line holds one update: a time and the bars of every active
instrument with price, close, sector and indicator readings. Use - for stdin.`,
		Example: `  trader replay updates.jsonl
  trader replay --json - < updates.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			in, closeIn, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()

			journal, err := app.openStore()
			if err != nil {
				return fmt.Errorf("opening journal: %w", err)
			}

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			if addr := app.Config.Metrics.Addr; addr != "" {
				srv := serveMetrics(addr, reg, app.Logger)
				defer srv.Close()
			}

			summary, err := runReplay(ctx, app, in, journal, m)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}
			printSummary(output, summary)
			return nil
		},
	}
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening updates: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Serving metrics")
	return srv
}

// runReplay drives the engine with the updates read from in. Prices reach the
// paper broker before the engine sees an update, and fills are applied both
// before and after each decision cycle.
func runReplay(ctx context.Context, app *App, in io.Reader, journal store.DataStore, m *metrics.Metrics) (*ReplaySummary, error) {
	paper := broker.NewPaperBroker(broker.PaperBrokerConfig{InitialBalance: app.Config.Paper.StartingCash})
	var b broker.Broker = paper
	if bc := app.Config.Broker; bc.BreakerEnabled {
		breaker := resilience.NewBreaker("paper", resilience.BreakerConfig{
			FailureThreshold: bc.FailureThreshold,
			Cooldown:         bc.Cooldown,
		}, app.Logger)
		b = resilience.NewGuardedBroker(paper, breaker)
	}
	opts := engine.Options{Metrics: m, Logger: app.Logger}
	if journal != nil {
		opts.Journal = journal
	}
	eng := engine.New(app.Config.Strategy, b, opts)

	summary := &ReplaySummary{}
	drain := func() error {
		for _, f := range paper.DrainFills() {
			summary.Fills++
			if err := eng.OnFill(ctx, f); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var u models.Update
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		for _, b := range u.Bars {
			paper.SetSector(b.Symbol, b.Sector)
			paper.UpdatePrice(b.Symbol, b.Price, u.Time)
		}
		if err := drain(); err != nil {
			return nil, err
		}

		intents, err := eng.OnUpdate(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		summary.Intents += len(intents)
		if err := drain(); err != nil {
			return nil, err
		}

		summary.Updates++
		summary.LastUpdate = u.Time
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading updates: %w", err)
	}

	if journal != nil && !summary.LastUpdate.IsZero() {
		if err := journal.SetLastSync(replaySyncKey, summary.LastUpdate); err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to record replay time")
		}
	}

	st := eng.Stats()
	summary.Wins = st.Wins
	summary.Losses = st.Losses
	summary.TotalProfit = st.TotalProfit
	summary.TotalLoss = st.TotalLoss
	summary.WinProbability = st.WinProbability
	summary.WinLossRatio = utils.FormatRatio(st.WinLossRatio)
	summary.Kelly = st.Kelly
	summary.DayTrades = eng.DayTrades(summary.LastUpdate).Count
	summary.Sectors = eng.Allocation()

	balance, err := paper.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	summary.Cash = balance.AvailableCash
	summary.TotalEquity = balance.TotalEquity
	if summary.Positions, err = paper.GetPositions(ctx); err != nil {
		return nil, err
	}
	return summary, nil
}

func printSummary(output *Output, s *ReplaySummary) {
	output.Bold("Replay Summary")
	output.Printf("  Updates:         %d\n", s.Updates)
	output.Printf("  Orders:          %d\n", s.Intents)
	output.Printf("  Fills:           %d\n", s.Fills)
	output.Println()

	output.Bold("Trade Statistics")
	output.Printf("  Wins/Losses:     %d/%d\n", s.Wins, s.Losses)
	output.Printf("  Total profit:    %s\n", output.FormatPnL(s.TotalProfit))
	output.Printf("  Total loss:      %s\n", output.FormatPnL(-s.TotalLoss))
	output.Printf("  Win probability: %s\n", utils.FormatPercent(s.WinProbability))
	output.Printf("  Win/loss ratio:  %s\n", s.WinLossRatio)
	output.Printf("  Kelly fraction:  %.4f\n", s.Kelly)
	output.Printf("  Day trades:      %d\n", s.DayTrades)
	output.Println()

	output.Bold("Account")
	output.Printf("  Cash:            %s\n", utils.FormatCurrency(s.Cash))
	output.Printf("  Total equity:    %s\n", utils.FormatCurrency(s.TotalEquity))

	if len(s.Positions) > 0 {
		output.Println()
		table := NewTable(output, "Symbol", "Qty", "Avg Cost", "Last", "Value", "Sector")
		for _, p := range s.Positions {
			table.AddRow(
				p.Symbol,
				utils.FormatQuantity(int64(p.Quantity)),
				utils.FormatCurrency(p.AveragePrice),
				utils.FormatCurrency(p.LTP),
				utils.FormatCurrency(p.Value),
				p.Sector,
			)
		}
		table.Render()
	}
}
