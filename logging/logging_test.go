package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spektr-org/cropyield/config"
)

func TestNewHonoursLevel(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cropyield.log")
	cfg := config.LogConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1}

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("loaded", zap.Int("rows", 3))
	_ = logger.Sync()

	require.FileExists(t, path)
}
