package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modvault/internal/config"
)

func TestNewLogger_ConsoleOnly(t *testing.T) {
	cfg := config.DefaultLoggingConfig()
	cfg.ApplyDefaults()
	cfg.File.Enabled = false

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_FileHandlers(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultLoggingConfig()
	cfg.Dir = filepath.Join(dir, "logs")
	cfg.Console.Enabled = false
	cfg.File.Enabled = true
	cfg.ApplyDefaults()

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { Shutdown() })

	logger.Info("plain message")
	logger.Error("broken message")
	require.NoError(t, Shutdown())

	main, err := os.ReadFile(filepath.Join(cfg.Dir, "modvault.log"))
	require.NoError(t, err)
	assert.Contains(t, string(main), "plain message")
	assert.Contains(t, string(main), "broken message")

	// Only warnings and errors reach the error file.
	errors, err := os.ReadFile(filepath.Join(cfg.Dir, "errors.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(errors), "plain message")
	assert.Contains(t, string(errors), "broken message")
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	filtered := NewLevelFilter(inner, slog.LevelWarn)
	logger := slog.New(filtered)

	ctx := context.Background()
	assert.False(t, filtered.Enabled(ctx, slog.LevelInfo))
	assert.True(t, filtered.Enabled(ctx, slog.LevelError))

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestMultiHandler_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	))

	logger.Info("hello")

	assert.Contains(t, a.String(), "hello")
	assert.Contains(t, b.String(), "hello")
}

func TestMultiHandler_RespectsPerHandlerLevels(t *testing.T) {
	var verbose, quiet bytes.Buffer
	logger := slog.New(NewMultiHandler(
		slog.NewTextHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
	))

	logger.Debug("detail")

	assert.Contains(t, verbose.String(), "detail")
	assert.Empty(t, quiet.String())
}
