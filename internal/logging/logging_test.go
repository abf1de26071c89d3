package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogDecisionEmbedsAudit(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	LogDecision(logger, "AAPL", "BUY", 10, 98.5, `{"Conditions":{"EMACrossover":true}}`)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "decision", entry["event"])
	assert.Equal(t, "AAPL", entry["symbol"])
	audit, ok := entry["audit"].(map[string]interface{})
	require.True(t, ok, "audit should be embedded as an object")
	assert.Contains(t, audit, "Conditions")
}

func TestLogFaultLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	LogFault(logger, "AAPL", "not_ready", errors.New("atr not ready"))
	assert.Zero(t, buf.Len(), "not_ready faults log at debug")

	LogFault(logger, "AAPL", "computation", errors.New("stop above target"))
	assert.Contains(t, buf.String(), `"kind":"computation"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}
