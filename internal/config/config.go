// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"equity-trader/internal/errors"
)

// ConfigFileName is the base name of the strategy configuration file.
const ConfigFileName = "strategy"

// Config holds all application configuration.
type Config struct {
	Strategy StrategyConfig `mapstructure:"strategy"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Store    StoreConfig    `mapstructure:"store"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Paper    PaperConfig    `mapstructure:"paper"`
	Broker   BrokerConfig   `mapstructure:"broker"`
}

// StrategyConfig holds every tunable of the decision engine. One value is
// shared read-only by all components.
type StrategyConfig struct {
	Targets  TargetsConfig  `mapstructure:"targets"`
	Sizing   SizingConfig   `mapstructure:"sizing"`
	Buy      BuyConfig      `mapstructure:"buy"`
	Sell     SellConfig     `mapstructure:"sell"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	DayTrade DayTradeConfig `mapstructure:"day_trade"`
}

// TargetsConfig holds stop-loss and take-profit configuration.
type TargetsConfig struct {
	StopLoss   TargetMethods `mapstructure:"stop_loss"`
	TakeProfit TargetMethods `mapstructure:"take_profit"`
	// AnchorHeldToCost computes held-position targets from average cost
	// instead of the current price.
	AnchorHeldToCost bool `mapstructure:"anchor_held_to_cost"`
}

// TargetMethods toggles and parameterizes the four price-target methods.
type TargetMethods struct {
	PercentEnabled  bool      `mapstructure:"percent_enabled"`
	Percent         float64   `mapstructure:"percent"`
	ATREnabled      bool      `mapstructure:"atr_enabled"`
	ATRMultiplier   float64   `mapstructure:"atr_multiplier"`
	FibEnabled      bool      `mapstructure:"fib_enabled"`
	FibLevels       []float64 `mapstructure:"fib_levels"`
	TrailingEnabled bool      `mapstructure:"trailing_enabled"`
	TrailingPercent float64   `mapstructure:"trailing_percent"`
}

// UsesATR reports whether any enabled method needs the ATR reading.
func (m TargetMethods) UsesATR() bool {
	return m.ATREnabled || m.FibEnabled
}

// SizingConfig holds position-sizing configuration.
type SizingConfig struct {
	KellyEnabled            bool    `mapstructure:"kelly_enabled"`
	MaxPerTradeEnabled      bool    `mapstructure:"max_per_trade_enabled"`
	MaxPerTrade             float64 `mapstructure:"max_per_trade"`
	MaxTotalInvestedEnabled bool    `mapstructure:"max_total_invested_enabled"`
	MaxTotalInvested        float64 `mapstructure:"max_total_invested"`
}

// BuyConfig holds buy-signal predicates and thresholds.
type BuyConfig struct {
	LimitOrderEnabled   bool    `mapstructure:"limit_order_enabled"`
	LimitOrderPercent   float64 `mapstructure:"limit_order_percent"`
	EMACrossover        bool    `mapstructure:"ema_crossover"`
	ShortEMARising      bool    `mapstructure:"short_ema_rising"`
	EMADistanceWidening bool    `mapstructure:"ema_distance_widening"`
	RSIEnabled          bool    `mapstructure:"rsi_enabled"`
	RSIMin              float64 `mapstructure:"rsi_min"`
	StochRSIEnabled     bool    `mapstructure:"stoch_rsi_enabled"`
	StochRSIMin         float64 `mapstructure:"stoch_rsi_min"`
	MACDAboveSignal     bool    `mapstructure:"macd_above_signal"`
	RewardRiskEnabled   bool    `mapstructure:"reward_risk_enabled"`
	MinRewardRisk       float64 `mapstructure:"min_reward_risk"`
	MinStocksEnabled    bool    `mapstructure:"min_stocks_enabled"`
	MinStocksInvested   int     `mapstructure:"min_stocks_invested"`
	SectorCapEnabled    bool    `mapstructure:"sector_cap_enabled"`
	MaxSectorPercent    float64 `mapstructure:"max_sector_percent"`
	PDTEnabled          bool    `mapstructure:"pdt_enabled"`
	CapitalFloorEnabled bool    `mapstructure:"capital_floor_enabled"`
	CapitalFloor        float64 `mapstructure:"capital_floor"`
	MinCashEnabled      bool    `mapstructure:"min_cash_enabled"`
	MinCash             float64 `mapstructure:"min_cash"`
}

// SellConfig holds sell-signal predicates and thresholds.
type SellConfig struct {
	MACDBelowSignal     bool    `mapstructure:"macd_below_signal"`
	RSIWeakEnabled      bool    `mapstructure:"rsi_weak_enabled"`
	RSIMax              float64 `mapstructure:"rsi_max"`
	PDTEnabled          bool    `mapstructure:"pdt_enabled"`
	PartialExitFraction float64 `mapstructure:"partial_exit_fraction"`
}

// OrdersConfig holds order-lifecycle configuration.
type OrdersConfig struct {
	PendingTimeout time.Duration `mapstructure:"pending_timeout"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// DayTradeConfig holds pattern-day-trader rule configuration.
type DayTradeConfig struct {
	MaxDayTrades int     `mapstructure:"max_day_trades"`
	WindowDays   int     `mapstructure:"window_days"`
	MinEquity    float64 `mapstructure:"min_equity"`
	Timezone     string  `mapstructure:"timezone"`
}

// Location returns the configured trading-day timezone, falling back to UTC.
func (d DayTradeConfig) Location() *time.Location {
	if d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// StoreConfig holds journal configuration.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MetricsConfig holds prometheus endpoint configuration.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// PaperConfig holds paper broker configuration.
type PaperConfig struct {
	StartingCash float64 `mapstructure:"starting_cash"`
}

// BrokerConfig holds the circuit breaker guarding broker calls.
type BrokerConfig struct {
	BreakerEnabled   bool          `mapstructure:"breaker_enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/equity-trader"
	}
	return filepath.Join(home, ".config", "equity-trader")
}

func setDefaults(v *viper.Viper) {
	for _, prefix := range []string{"strategy.targets.stop_loss", "strategy.targets.take_profit"} {
		v.SetDefault(prefix+".percent_enabled", true)
		v.SetDefault(prefix+".percent", 0.20)
		v.SetDefault(prefix+".atr_enabled", true)
		v.SetDefault(prefix+".atr_multiplier", 2.0)
		v.SetDefault(prefix+".fib_enabled", true)
		v.SetDefault(prefix+".fib_levels", []float64{0.236, 0.382, 0.618})
		v.SetDefault(prefix+".trailing_enabled", true)
		v.SetDefault(prefix+".trailing_percent", 0.10)
	}
	v.SetDefault("strategy.targets.anchor_held_to_cost", false)

	v.SetDefault("strategy.sizing.kelly_enabled", true)
	v.SetDefault("strategy.sizing.max_per_trade_enabled", true)
	v.SetDefault("strategy.sizing.max_per_trade", 0.50)
	v.SetDefault("strategy.sizing.max_total_invested_enabled", true)
	v.SetDefault("strategy.sizing.max_total_invested", 0.95)

	v.SetDefault("strategy.buy.limit_order_enabled", true)
	v.SetDefault("strategy.buy.limit_order_percent", 0.98)
	v.SetDefault("strategy.buy.ema_crossover", true)
	v.SetDefault("strategy.buy.short_ema_rising", false)
	v.SetDefault("strategy.buy.ema_distance_widening", false)
	v.SetDefault("strategy.buy.rsi_enabled", false)
	v.SetDefault("strategy.buy.rsi_min", 50.0)
	v.SetDefault("strategy.buy.stoch_rsi_enabled", false)
	v.SetDefault("strategy.buy.stoch_rsi_min", 0.5)
	v.SetDefault("strategy.buy.macd_above_signal", false)
	v.SetDefault("strategy.buy.reward_risk_enabled", true)
	v.SetDefault("strategy.buy.min_reward_risk", 2.0)
	v.SetDefault("strategy.buy.min_stocks_enabled", true)
	v.SetDefault("strategy.buy.min_stocks_invested", 5)
	v.SetDefault("strategy.buy.sector_cap_enabled", true)
	v.SetDefault("strategy.buy.max_sector_percent", 0.65)
	v.SetDefault("strategy.buy.pdt_enabled", true)
	v.SetDefault("strategy.buy.capital_floor_enabled", true)
	v.SetDefault("strategy.buy.capital_floor", 50.0)
	v.SetDefault("strategy.buy.min_cash_enabled", false)
	v.SetDefault("strategy.buy.min_cash", 0.0)

	v.SetDefault("strategy.sell.macd_below_signal", false)
	v.SetDefault("strategy.sell.rsi_weak_enabled", false)
	v.SetDefault("strategy.sell.rsi_max", 30.0)
	v.SetDefault("strategy.sell.pdt_enabled", true)
	v.SetDefault("strategy.sell.partial_exit_fraction", 0.50)

	v.SetDefault("strategy.orders.pending_timeout", 15*time.Minute)
	v.SetDefault("strategy.orders.report_interval", 15*time.Minute)

	v.SetDefault("strategy.day_trade.max_day_trades", 3)
	v.SetDefault("strategy.day_trade.window_days", 5)
	v.SetDefault("strategy.day_trade.min_equity", 25000.0)
	v.SetDefault("strategy.day_trade.timezone", "America/New_York")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("paper.starting_cash", 1000.0)
	v.SetDefault("broker.breaker_enabled", true)
	v.SetDefault("broker.failure_threshold", 5)
	v.SetDefault("broker.cooldown", "30s")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the fully defaulted configuration without touching disk.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// strategy.toml is created from the template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, ConfigFileName, cfg); err != nil {
		return nil, fmt.Errorf("loading %s.toml: %w", ConfigFileName, err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "journal.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := newViper()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, create template and continue on defaults
		if _, err := WriteTemplate(configDir, false); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	s := c.Strategy

	for name, tm := range map[string]TargetMethods{
		"strategy.targets.stop_loss":   s.Targets.StopLoss,
		"strategy.targets.take_profit": s.Targets.TakeProfit,
	} {
		if err := validateTargetMethods(name, tm); err != nil {
			return err
		}
	}
	if s.Targets.StopLoss.Percent >= 1 {
		return errors.NewValidationError("strategy.targets.stop_loss.percent", s.Targets.StopLoss.Percent, "must be below 1")
	}

	if err := unitInterval("strategy.sizing.max_per_trade", s.Sizing.MaxPerTrade); err != nil {
		return err
	}
	if err := unitInterval("strategy.sizing.max_total_invested", s.Sizing.MaxTotalInvested); err != nil {
		return err
	}
	if s.Buy.LimitOrderPercent <= 0 {
		return errors.NewValidationError("strategy.buy.limit_order_percent", s.Buy.LimitOrderPercent, "must be positive")
	}
	if s.Buy.MinRewardRisk < 0 {
		return errors.NewValidationError("strategy.buy.min_reward_risk", s.Buy.MinRewardRisk, "must be non-negative")
	}
	if s.Buy.MinStocksInvested < 0 {
		return errors.NewValidationError("strategy.buy.min_stocks_invested", s.Buy.MinStocksInvested, "must be non-negative")
	}
	if err := unitInterval("strategy.buy.max_sector_percent", s.Buy.MaxSectorPercent); err != nil {
		return err
	}
	if s.Sell.PartialExitFraction <= 0 || s.Sell.PartialExitFraction > 1 {
		return errors.NewValidationError("strategy.sell.partial_exit_fraction", s.Sell.PartialExitFraction, "must be in (0, 1]")
	}
	if s.Orders.PendingTimeout <= 0 {
		return errors.NewValidationError("strategy.orders.pending_timeout", s.Orders.PendingTimeout, "must be positive")
	}
	if s.Orders.ReportInterval <= 0 {
		return errors.NewValidationError("strategy.orders.report_interval", s.Orders.ReportInterval, "must be positive")
	}
	if s.DayTrade.MaxDayTrades < 1 {
		return errors.NewValidationError("strategy.day_trade.max_day_trades", s.DayTrade.MaxDayTrades, "must be at least 1")
	}
	if s.DayTrade.WindowDays < 1 {
		return errors.NewValidationError("strategy.day_trade.window_days", s.DayTrade.WindowDays, "must be at least 1")
	}
	if s.DayTrade.Timezone != "" {
		if _, err := time.LoadLocation(s.DayTrade.Timezone); err != nil {
			return errors.NewValidationError("strategy.day_trade.timezone", s.DayTrade.Timezone, err.Error())
		}
	}
	if c.Paper.StartingCash < 0 {
		return errors.NewValidationError("paper.starting_cash", c.Paper.StartingCash, "must be non-negative")
	}
	if c.Broker.BreakerEnabled {
		if c.Broker.FailureThreshold < 1 {
			return errors.NewValidationError("broker.failure_threshold", c.Broker.FailureThreshold, "must be at least 1")
		}
		if c.Broker.Cooldown <= 0 {
			return errors.NewValidationError("broker.cooldown", c.Broker.Cooldown, "must be positive")
		}
	}

	return nil
}

func validateTargetMethods(prefix string, tm TargetMethods) error {
	if tm.Percent < 0 {
		return errors.NewValidationError(prefix+".percent", tm.Percent, "must be non-negative")
	}
	if tm.ATRMultiplier < 0 {
		return errors.NewValidationError(prefix+".atr_multiplier", tm.ATRMultiplier, "must be non-negative")
	}
	if tm.TrailingPercent < 0 || tm.TrailingPercent >= 1 {
		return errors.NewValidationError(prefix+".trailing_percent", tm.TrailingPercent, "must be in [0, 1)")
	}
	if tm.FibEnabled && len(tm.FibLevels) == 0 {
		return errors.NewValidationError(prefix+".fib_levels", tm.FibLevels, "must not be empty when fib_enabled")
	}
	for _, l := range tm.FibLevels {
		if l <= 0 || l >= 1 {
			return errors.NewValidationError(prefix+".fib_levels", l, "levels must be in (0, 1)")
		}
	}
	return nil
}

func unitInterval(field string, v float64) error {
	if v < 0 || v > 1 {
		return errors.NewValidationError(field, v, "must be between 0 and 1")
	}
	return nil
}
