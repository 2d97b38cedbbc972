package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "info", Format: LogFormatText, Output: &buf})

		logger.Info("task created", "task_id", "t-1")

		assert.Contains(t, buf.String(), "task created")
		assert.Contains(t, buf.String(), "task_id=t-1")
	})

	t.Run("json format with service attributes and context ids", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{
			Level:          "debug",
			Format:         LogFormatJSON,
			Output:         &buf,
			ServiceName:    "tempo",
			ServiceVersion: "1.2.3",
		})

		ctx := WithUserID(WithRequestID(context.Background(), "req-42"), "user-7")
		logger.InfoContext(ctx, "hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "tempo", entry["service"])
		assert.Equal(t, "1.2.3", entry["version"])
		assert.Equal(t, "req-42", entry[RequestIDKey])
		assert.Equal(t, "user-7", entry[UserIDKey])
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

		logger.Info("dropped")
		logger.Warn("kept")

		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLogConfigFor(t *testing.T) {
	prod := LogConfigFor("production", "info", "v1")
	assert.Equal(t, LogFormatJSON, prod.Format)
	assert.True(t, prod.AddSource)

	dev := LogConfigFor("development", "debug", "dev")
	assert.Equal(t, LogFormatText, dev.Format)
	assert.Equal(t, "tempo", dev.ServiceName)
}

func TestRequestID_GeneratedWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	assert.NotEmpty(t, RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, UserIDFromContext(context.Background()))
}
