package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-trader/internal/models"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TRADER_LOGGING_CONSOLE", "false")
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeUpdates(t *testing.T, dir string, updates ...models.Update) string {
	t.Helper()
	var buf bytes.Buffer
	for _, u := range updates {
		b, err := json.Marshal(u)
		require.NoError(t, err)
		buf.Write(b)
		buf.WriteByte('\n')
	}
	path := filepath.Join(dir, "updates.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func aapl(at time.Time, price float64) models.Update {
	ready := func(cur, prev float64) models.IndicatorValue {
		return models.IndicatorValue{Ready: true, Current: cur, Previous: prev}
	}
	return models.Update{
		Time: at,
		Bars: []models.Bar{{
			PriceSnapshot: models.PriceSnapshot{Symbol: "AAPL", Price: price, Close: price, Sector: "Technology", Time: at},
			Indicators: models.IndicatorReadings{
				ShortEMA: ready(price*1.01, price),
				LongEMA:  ready(price, price),
				ATR:      ready(4, 4),
			},
		}},
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := runCmd(t, "--config", t.TempDir(), "--json", "version")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, "--config", dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "strategy.toml"))
	_, err = os.Stat(filepath.Join(dir, "strategy.toml"))
	require.NoError(t, err)

	out, err = runCmd(t, "--config", dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Price Targets")
	assert.Contains(t, out, "$25,000.00")
}

func TestReplayAndJournal(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	path := writeUpdates(t, dir, aapl(start, 100), aapl(start.Add(time.Minute), 97))

	out, err := runCmd(t, "--config", dir, "--json", "replay", path)
	require.NoError(t, err)

	var summary ReplaySummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Updates)
	assert.Equal(t, 1, summary.Intents)
	assert.Equal(t, 1, summary.Fills)
	assert.Equal(t, "inf", summary.WinLossRatio)
	require.Len(t, summary.Positions, 1)
	assert.Equal(t, 10, summary.Positions[0].Quantity)
	assert.InDelta(t, 20, summary.Cash, 1e-9)

	out, err = runCmd(t, "--config", dir, "--json", "journal", "decisions", "--executed")
	require.NoError(t, err)
	var decisions []models.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &decisions))
	require.Len(t, decisions, 1)
	assert.Equal(t, "AAPL", decisions[0].Symbol)
	assert.Equal(t, 10, decisions[0].Quantity)

	out, err = runCmd(t, "--config", dir, "journal", "fills")
	require.NoError(t, err)
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "$98.00")

	out, err = runCmd(t, "--config", dir, "journal", "decisions", "--symbol", "aapl")
	require.NoError(t, err)
	assert.Contains(t, out, "Last replayed update")
	assert.True(t, strings.Count(out, "AAPL") >= 2)
}

func TestReplayRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0644))

	_, err := runCmd(t, "--config", dir, "replay", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
