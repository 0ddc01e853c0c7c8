package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/imraghavojha/lit/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := log.NewSlog(slog.New(handler))

	logger.Debug("debug line", "path", "a.txt")
	logger.Warn("skipping malformed index line", "line", 3)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "path=a.txt")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "line=3")
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := log.NewSlog(slog.New(handler))

	logger.Info("hidden")
	require.Empty(t, buf.String())

	logger.Error("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestContextLogger(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		custom := log.NewSlog(nil)
		ctx := log.WithContextLogger(context.Background(), custom)
		require.Equal(t, custom, log.FromContext(ctx, nil))
	})

	t.Run("falls back when empty", func(t *testing.T) {
		fallback := log.Noop()
		require.Equal(t, fallback, log.FromContext(context.Background(), fallback))
	})

	t.Run("nil fallback is usable", func(t *testing.T) {
		logger := log.FromContext(context.Background(), nil)
		require.NotNil(t, logger)
		logger.Info("no panic")
	})
}
