package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "managectl.log")

	log, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.WithSession("abc").WithError(errors.New("boom")).Info("session finished", zap.Int("code", 3))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":"abc"`)
	assert.Contains(t, string(data), `"error":"boom"`)
	assert.Contains(t, string(data), `"code":3`)
}

func TestNewLogger_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	log, err := NewLogger(LoggingConfig{Level: "warn", Format: "console", OutputPath: path})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	log, err := NewLogger(LoggingConfig{Level: "loud", OutputPath: path})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithSession("x").Error("dropped")
	})
}
