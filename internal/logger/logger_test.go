package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture points the package logger at a buffer for the duration of the test.
func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := defaultLogger
	defaultLogger = New(&buf, level, true)
	t.Cleanup(func() { defaultLogger = prev })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithContext_TagsRequestID(t *testing.T) {
	buf := capture(t, "info")

	ctx := ContextWithRequestID(context.Background(), "req-42")
	WithContext(ctx).Info("auth verified", "telegram_id", 123)

	entry := decode(t, buf)
	assert.Equal(t, "auth verified", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.EqualValues(t, 123, entry["telegram_id"])
}

func TestWithContext_WithoutRequestID(t *testing.T) {
	buf := capture(t, "info")

	WithContext(context.Background()).Info("no request")

	assert.NotContains(t, decode(t, buf), "request_id")
}

func TestNew_HonoursLevel(t *testing.T) {
	buf := capture(t, "warn")

	Info("dropped")
	assert.Zero(t, buf.Len())

	Warn("kept", "reason", "signature_invalid")
	entry := decode(t, buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "signature_invalid", entry["reason"])
}

func TestNew_TextHandler(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", false).Debug("hello", "k", "v")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "k=v")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
