package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestSetup_JSONRespectsLevel(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	logger := Setup("warn", "json", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "path", "Log/a.csv")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "Log/a.csv", line["path"])
	assert.Same(t, logger, slog.Default())
}

func TestSetup_Text(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Setup("debug", "text", &buf).Debug("hello", "n", 3)
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "n=3")
}

func TestFromContext_AddsRequestID(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Setup("info", "text", &buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	WithFields(ctx, "op", "add").Info("done")

	assert.Contains(t, buf.String(), "request_id=req-42")
	assert.Contains(t, buf.String(), "op=add")
}

func TestFromContext_WithoutRequestID(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	Setup("info", "text", &buf)

	FromContext(context.Background()).Info("plain")
	assert.NotContains(t, buf.String(), "request_id")
}
