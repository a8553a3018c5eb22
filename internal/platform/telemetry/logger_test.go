package telemetry_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/huddle-app/huddle/internal/platform/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger("info", "json", &buf)

	logger.Info("test message", "key", "value")

	var entry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, telemetry.ServiceName, entry["service"])
	assert.NotContains(t, entry, "source")
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger("warn", "json", &buf)

	logger.Info("should not appear")

	assert.Empty(t, buf.String())
}

func TestNewLogger_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger("debug", "json", &buf)

	logger.Debug("with source")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry, "source")
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger("info", "TEXT", &buf)

	logger.Info("plain", "team_id", "t-1")

	out := buf.String()
	assert.True(t, strings.Contains(out, "msg=plain"), out)
	assert.Contains(t, out, "team_id=t-1")
}
