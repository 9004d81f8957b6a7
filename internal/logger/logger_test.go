package logger

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got, s)
	}

	_, ok := ParseLogLevel("verbose")
	require.False(t, ok)
}

// TestContextScopes checks that WithName and WithKV decorate lines written through the context.
func TestContextScopes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), New(&buf))
	ctx = WithName(ctx, "dialogue")
	ctx = WithKV(ctx, "correlation_key", "psid-1")

	InfoKV(ctx, "Event handled", "kind", "text")

	out := buf.String()
	require.Contains(t, out, "dialogue")
	require.Contains(t, out, "Event handled")
	require.Contains(t, out, "psid-1")
	require.Contains(t, out, "text")
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestSetup_WithFile creates the rotating log file on first write.
//
//nolint:paralleltest // Setup swaps the global logger.
func TestSetup_WithFile(t *testing.T) {
	previous := Logger()
	defer SetLogger(previous)

	file := filepath.Join(t.TempDir(), "bot.log")
	Setup("debug", file)

	defer SetLevel(zapcore.InfoLevel)

	require.Equal(t, zapcore.DebugLevel, Level())

	Info(context.Background(), "hello file")
	require.FileExists(t, file)
}
