// Package cli provides the command-line interface for the trading engine.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"equity-trader/internal/config"
	"equity-trader/internal/logging"
	"equity-trader/internal/store"
	"equity-trader/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	ConfigDir string
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.DataStore
}

// openStore opens the journal on first use. A disabled journal returns nil.
func (a *App) openStore() (store.DataStore, error) {
	if a.Store != nil || !a.Config.Store.Enabled {
		return a.Store, nil
	}
	s, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		return nil, err
	}
	a.Store = s
	a.Logger.Debug().Str("path", a.Config.Store.Path).Msg("SQLite journal opened")
	return s, nil
}

// Close releases the journal if it was opened.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// NewRootCmd creates the root command for the CLI. Configuration is loaded
// once flags are parsed.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Equity Trader - rule-based trade decision and risk engine",
		Long: `Equity Trader evaluates market-data updates instrument by instrument and
decides when to open, size, reduce and close positions under volatility-based
price targets, account risk limits, sector caps and the pattern-day-trader rule.

Use 'trader replay <file>' to run the engine against the paper broker.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.ConfigDir, _ = cmd.Flags().GetString("config")
			if app.ConfigDir == "" {
				app.ConfigDir = config.DefaultConfigDir()
			}
			cfg, err := config.Load(app.ConfigDir)
			if err != nil {
				return err
			}
			app.Config = cfg
			app.Logger = logging.NewLoggerWithConfig(logConfig(cfg.Logging))

			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/equity-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newReplayCmd(app))
	addJournalCommands(rootCmd, app)

	return rootCmd
}

func logConfig(c config.LoggingConfig) logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = c.Level
	lc.Console = c.Console
	lc.File = c.File
	if c.FilePath != "" {
		lc.FilePath = c.FilePath
	}
	if c.MaxSize > 0 {
		lc.MaxSize = c.MaxSize
	}
	if c.MaxBackups > 0 {
		lc.MaxBackups = c.MaxBackups
	}
	if c.MaxAge > 0 {
		lc.MaxAge = c.MaxAge
	}
	return lc
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Equity Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage the strategy configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the configuration template",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			force, _ := cmd.Flags().GetBool("force")
			path, err := config.WriteTemplate(app.ConfigDir, force)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Success("Configuration written to %s", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

func enabled(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func showConfig(output *Output, cfg *config.Config) {
	s := cfg.Strategy

	output.Bold("Price Targets")
	for _, m := range []struct {
		name string
		tm   config.TargetMethods
	}{{"Stop-loss", s.Targets.StopLoss}, {"Take-profit", s.Targets.TakeProfit}} {
		output.Printf("  %-12s percent %s (%s)  atr %s (x%.1f)  fib %s %v  trailing %s (%s)\n", m.name,
			enabled(m.tm.PercentEnabled), utils.FormatPercent(m.tm.Percent),
			enabled(m.tm.ATREnabled), m.tm.ATRMultiplier,
			enabled(m.tm.FibEnabled), m.tm.FibLevels,
			enabled(m.tm.TrailingEnabled), utils.FormatPercent(m.tm.TrailingPercent))
	}
	output.Printf("  Anchor held to cost: %s\n", enabled(s.Targets.AnchorHeldToCost))
	output.Println()

	output.Bold("Sizing")
	output.Printf("  Kelly:              %s\n", enabled(s.Sizing.KellyEnabled))
	output.Printf("  Max per trade:      %s (%s)\n", enabled(s.Sizing.MaxPerTradeEnabled), utils.FormatPercent(s.Sizing.MaxPerTrade))
	output.Printf("  Max total invested: %s (%s)\n", enabled(s.Sizing.MaxTotalInvestedEnabled), utils.FormatPercent(s.Sizing.MaxTotalInvested))
	output.Println()

	output.Bold("Buy Rules")
	output.Printf("  Limit orders:       %s (%.2f x close)\n", enabled(s.Buy.LimitOrderEnabled), s.Buy.LimitOrderPercent)
	output.Printf("  EMA crossover:      %s\n", enabled(s.Buy.EMACrossover))
	output.Printf("  Min reward/risk:    %s (%.1f)\n", enabled(s.Buy.RewardRiskEnabled), s.Buy.MinRewardRisk)
	output.Printf("  Min stocks:         %s (%d)\n", enabled(s.Buy.MinStocksEnabled), s.Buy.MinStocksInvested)
	output.Printf("  Sector cap:         %s (%s)\n", enabled(s.Buy.SectorCapEnabled), utils.FormatPercent(s.Buy.MaxSectorPercent))
	output.Printf("  Capital floor:      %s (%s)\n", enabled(s.Buy.CapitalFloorEnabled), utils.FormatCurrency(s.Buy.CapitalFloor))
	output.Printf("  PDT rule:           %s\n", enabled(s.Buy.PDTEnabled))
	output.Println()

	output.Bold("Sell Rules")
	output.Printf("  MACD below signal:  %s\n", enabled(s.Sell.MACDBelowSignal))
	output.Printf("  RSI weak:           %s (%.0f)\n", enabled(s.Sell.RSIWeakEnabled), s.Sell.RSIMax)
	output.Printf("  Partial exit:       %s\n", utils.FormatPercent(s.Sell.PartialExitFraction))
	output.Println()

	output.Bold("Orders & Day Trades")
	output.Printf("  Pending timeout:    %s\n", s.Orders.PendingTimeout)
	output.Printf("  Max day trades:     %d in %d business days below %s\n",
		s.DayTrade.MaxDayTrades, s.DayTrade.WindowDays, utils.FormatCurrency(s.DayTrade.MinEquity))
	output.Println()

	output.Bold("Journal")
	output.Printf("  Enabled:            %s\n", enabled(cfg.Store.Enabled))
	output.Printf("  Path:               %s\n", cfg.Store.Path)
}
