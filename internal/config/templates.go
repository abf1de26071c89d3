package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Equity Trader Strategy Configuration

[strategy.targets]
# Compute targets of held positions from average cost instead of current price
anchor_held_to_cost = false

[strategy.targets.stop_loss]
percent_enabled = true
percent = 0.20
atr_enabled = true
atr_multiplier = 2.0
fib_enabled = true
fib_levels = [0.236, 0.382, 0.618]
trailing_enabled = true
trailing_percent = 0.10

[strategy.targets.take_profit]
percent_enabled = true
percent = 0.20
atr_enabled = true
atr_multiplier = 2.0
fib_enabled = true
fib_levels = [0.236, 0.382, 0.618]
trailing_enabled = true
trailing_percent = 0.10

[strategy.sizing]
# Kelly fraction sizing, skipped until at least one trade has closed
kelly_enabled = true
# Maximum worst-case loss per trade as a fraction of account value
max_per_trade_enabled = true
max_per_trade = 0.50
# Maximum total invested as a fraction of account value
max_total_invested_enabled = true
max_total_invested = 0.95

[strategy.buy]
# Submit buys as limit orders at this fraction of the close
limit_order_enabled = true
limit_order_percent = 0.98
ema_crossover = true
short_ema_rising = false
ema_distance_widening = false
rsi_enabled = false
rsi_min = 50.0
stoch_rsi_enabled = false
stoch_rsi_min = 0.5
macd_above_signal = false
reward_risk_enabled = true
min_reward_risk = 2.0
min_stocks_enabled = true
min_stocks_invested = 5
sector_cap_enabled = true
max_sector_percent = 0.65
pdt_enabled = true
# Stop buying once account value falls to this amount
capital_floor_enabled = true
capital_floor = 50.0
min_cash_enabled = false
min_cash = 0.0

[strategy.sell]
macd_below_signal = false
rsi_weak_enabled = false
rsi_max = 30.0
pdt_enabled = true
# Fraction sold when a percent take-profit is hit
partial_exit_fraction = 0.50

[strategy.orders]
# Cancel unfilled orders after this age
pending_timeout = "15m"
report_interval = "15m"

[strategy.day_trade]
max_day_trades = 3
# Business days counted for the day-trade limit
window_days = 5
# Day-trade limit applies while cash is below this amount
min_equity = 25000.0
timezone = "America/New_York"

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = false
# Defaults to ~/.config/equity-trader/logs/trader.log
file_path = ""
max_size = 100
max_backups = 3
max_age = 28

[store]
enabled = true
# Defaults to ~/.config/equity-trader/journal.db
path = ""

[metrics]
# Serve prometheus metrics on this address during replay, e.g. ":9090"
addr = ""

[paper]
starting_cash = 1000.0

[broker]
# Stop calling the broker after this many consecutive failures
breaker_enabled = true
failure_threshold = 5
cooldown = "30s"
`

// WriteTemplate writes the strategy template into configDir and returns its
// path. An existing file is left untouched unless overwrite is set.
func WriteTemplate(configDir string, overwrite bool) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, ConfigFileName+".toml")
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}
