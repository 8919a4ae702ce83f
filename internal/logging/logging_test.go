package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		assert.Equal(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("returns stored logger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		ctx := WithLogger(context.Background(), logger)
		assert.Same(t, logger, FromContext(ctx))
	})
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", true)

	LogError(logger, "fetch failed", errors.New("boom"), slog.String("stop", "A"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"fetch failed"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"stop":"A"`)
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", false)

	LogOperation(logger, "catalog_loaded", slog.Int("routes", 3))

	out := buf.String()
	assert.Contains(t, out, "operation=catalog_loaded")
	assert.Contains(t, out, "routes=3")
}

func TestLogHTTPRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", true)

	LogHTTPRequest(logger, "GET", "/api/routes", 200, 1.5)
	LogHTTPRequest(logger, "GET", "/api/nope", 404, 0.2)
	LogHTTPRequest(logger, "POST", "/api/selection", 502, 3)

	out := buf.String()
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"level":"ERROR"`)
}

func TestRestyLogger(t *testing.T) {
	var buf bytes.Buffer
	l := RestyLogger{Logger: NewLogger(&buf, "debug", true)}

	l.Warnf("retrying %s\n", "/route/")
	l.Errorf("failed: %d", 500)
	l.Debugf("debug %v", true)

	out := buf.String()
	assert.Contains(t, out, "retrying /route/")
	assert.Contains(t, out, "failed: 500")
	assert.Contains(t, out, "debug true")
}
