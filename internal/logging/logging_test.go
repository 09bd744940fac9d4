package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/andy/billhours/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Int64("contract_id", 7).Msg("contract locked")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "contract locked", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, 7, line["contract_id"])
	assert.Contains(t, line, "time")
}

func TestNewHuman(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "debug", Format: "human"}, &buf)

	logger.Debug().Str("field", "hours_worked").Msg("cached locked total")

	out := buf.String()
	assert.Contains(t, out, "cached locked total")
	assert.Contains(t, out, "field=")
	assert.NotContains(t, out, "{")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "loud", Format: "json"}, &buf)

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}
