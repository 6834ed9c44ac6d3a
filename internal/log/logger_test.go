package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/harvest/internal/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNewLoggerWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "DEBUG")

	logger.Slog().Debug("hello", slog.String("k", "v"))

	m := decodeLine(t, &buf)
	assert.Equal(t, "hello", m["msg"])
	assert.Equal(t, "DEBUG", m["level"])
	assert.Equal(t, "v", m["k"])
}

func TestNewLoggerWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "warning")

	logger.Slog().Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Slog().Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestContextIDsAreAttached(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	ctx := WithCorrelationID(context.Background(), "corr-1")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTenantID(ctx, "acme")
	logger.With("component", "test").Slog().InfoContext(ctx, "with ids")

	m := decodeLine(t, &buf)
	assert.Equal(t, "corr-1", m["correlation_id"])
	assert.Equal(t, "req-1", m["request_id"])
	assert.Equal(t, "acme", m["tenant_id"])
	assert.Equal(t, "test", m["component"])
}

func TestContextWithoutIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	logger.Slog().InfoContext(context.Background(), "plain")

	m := decodeLine(t, &buf)
	assert.NotContains(t, m, "correlation_id")
	assert.NotContains(t, m, "tenant_id")
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationID(ctx))
	assert.Empty(t, TenantID(ctx))

	ctx = WithTenantID(WithCorrelationID(WithRequestID(ctx, "r"), "c"), "t")
	assert.Equal(t, "r", RequestID(ctx))
	assert.Equal(t, "c", CorrelationID(ctx))
	assert.Equal(t, "t", TenantID(ctx))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewLogger_FromConfig(t *testing.T) {
	cfg := config.NewAppConfigWithOptions(config.WithLogLevel("ERROR"))
	logger := NewLogger(cfg)
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
