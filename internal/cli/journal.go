package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"equity-trader/internal/config"
	"equity-trader/internal/models"
	"equity-trader/internal/signal"
	"equity-trader/internal/store"
	"equity-trader/pkg/utils"
)

// addJournalCommands adds journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Decision and fill journal",
		Long:  "Review the decisions and fills recorded by the engine.",
	}

	cmd.AddCommand(newJournalDecisionsCmd(app))
	cmd.AddCommand(newJournalFillsCmd(app))

	rootCmd.AddCommand(cmd)
}

func openJournal(app *App, output *Output) (store.DataStore, error) {
	s, err := app.openStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		output.Warning("Journal disabled. Set store.enabled in %s.toml.", config.ConfigFileName)
	}
	return s, nil
}

func newJournalDecisionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "List journaled decisions",
		Long: `List buy and sell evaluations, newest first. Each row shows the action
taken and, for rejected evaluations, the conditions that failed.`,
		Example: `  trader journal decisions --symbol AAPL --limit 20
  trader journal decisions --executed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			s, err := openJournal(app, output)
			if err != nil || s == nil {
				return err
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")
			filter := store.DecisionFilter{Symbol: strings.ToUpper(symbol), Limit: limit}
			if cmd.Flags().Changed("executed") {
				executed, _ := cmd.Flags().GetBool("executed")
				filter.Executed = &executed
			}

			decisions, err := s.GetDecisions(ctx, filter)
			if err != nil {
				output.Error("Failed to fetch decisions: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(decisions)
			}

			if last := s.GetLastSync(replaySyncKey); !last.IsZero() {
				output.Dim("Last replayed update: %s", last.Format(time.RFC3339))
			}
			if len(decisions) == 0 {
				output.Info("No decisions recorded.")
				return nil
			}

			table := NewTable(output, "Time", "Symbol", "Side", "Action", "Qty", "Price", "Failed")
			for _, d := range decisions {
				table.AddRow(
					d.Timestamp.Format("2006-01-02 15:04"),
					d.Symbol,
					string(d.Side),
					actionLabel(output, d),
					utils.FormatQuantity(int64(d.Quantity)),
					utils.FormatCurrency(d.LimitPrice),
					failedConditions(d.Audit),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 50, "maximum rows")
	cmd.Flags().Bool("executed", false, "only decisions that placed an order (use --executed=false for the rest)")
	return cmd
}

func actionLabel(output *Output, d models.Decision) string {
	if !d.Executed {
		return d.Action
	}
	if d.Side == models.OrderSideSell {
		return output.Red(d.Action)
	}
	return output.Green(d.Action)
}

func failedConditions(tag string) string {
	audit, err := signal.ParseTag(tag)
	if err != nil {
		return "?"
	}
	failed := audit.Failed()
	if len(failed) == 0 {
		return "-"
	}
	return strings.Join(failed, ",")
}

func newJournalFillsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fills",
		Short: "List journaled fills",
		Long:  "List executed fills in order with the realized profit of each sell.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			s, err := openJournal(app, output)
			if err != nil || s == nil {
				return err
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")
			fills, err := s.GetFills(ctx, store.FillFilter{Symbol: strings.ToUpper(symbol), Limit: limit})
			if err != nil {
				output.Error("Failed to fetch fills: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(fills)
			}
			if len(fills) == 0 {
				output.Info("No fills recorded.")
				return nil
			}

			var realized float64
			table := NewTable(output, "Time", "Symbol", "Side", "Qty", "Price", "P&L")
			for _, f := range fills {
				pnl := "-"
				if f.Side == models.OrderSideSell {
					realized += f.Profit()
					pnl = output.FormatPnL(f.Profit())
				}
				table.AddRow(
					f.Time.Format("2006-01-02 15:04"),
					f.Symbol,
					string(f.Side),
					utils.FormatQuantity(int64(f.Quantity)),
					utils.FormatCurrency(f.Price),
					pnl,
				)
			}
			table.Render()
			output.Println()
			output.Printf("  Realized P&L: %s\n", output.FormatPnL(realized))
			output.Printf("  Fills:        %d\n", len(fills))
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 0, "maximum rows (0 for all)")
	return cmd
}
