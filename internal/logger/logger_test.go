package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestParseFormat verifies supported encoder names.
func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, ok := ParseFormat("JSON")
	require.True(t, ok)
	require.Equal(t, FormatJSON, f)

	f, ok = ParseFormat("")
	require.True(t, ok)
	require.Equal(t, FormatConsole, f)

	_, ok = ParseFormat("xml")
	require.False(t, ok)
}

// TestContextHelpers checks that context loggers carry names and fields.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "pkpass")
	ctx = WithKV(ctx, "destination", "out.pkpass")
	ctx = WithFields(ctx, "serial", "0001")

	InfoKV(ctx, "Build finished", "state", "archived")
	Debugf(ctx, "staged %d files", 3)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "pkpass", entries[0].LoggerName)
	require.Equal(t, "Build finished", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "out.pkpass", fields["destination"])
	require.Equal(t, "0001", fields["serial"])
	require.Equal(t, "archived", fields["state"])
	require.Equal(t, "staged 3 files", entries[1].Message)
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
	require.Same(t, Logger(), FromContext(nil)) //nolint:staticcheck // nil context is tolerated on purpose.
}

// TestNew_JSONFormat verifies JSON output lands in the provided sink.
func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := New(zapcore.InfoLevel, FormatJSON, zapcore.AddSync(&buf))
	l.Infow("Archive published", "path", "a.pkpass")
	l.Debug("dropped")
	require.NoError(t, l.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "Archive published", line["message"])
	require.Equal(t, "a.pkpass", line["path"])
}
