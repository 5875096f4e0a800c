package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestInitReturnsUsableLogger(t *testing.T) {
	log := Init("perpswap-engine", zapcore.InfoLevel)
	assert.NotNil(t, log)
	log.Info("smoke test")
}

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", TraceID(ctx))

	ctx = WithTraceID(ctx, "abc-123")
	assert.Equal(t, "abc-123", TraceID(ctx))
}

func TestGenerateTraceIDIncludesKeyAndTimestamp(t *testing.T) {
	ts := time.Unix(0, 1_700_000_000_000_000_000)
	id := GenerateTraceID("BTC-USDT-SWAP", ts)
	assert.Equal(t, "BTC-USDT-SWAP-1700000000000000000", id)
}

func TestWithTraceEmptyWhenUnset(t *testing.T) {
	assert.Nil(t, WithTrace(context.Background()))
}

func TestWithTraceIncludesFieldWhenSet(t *testing.T) {
	ctx := WithTraceID(context.Background(), "xyz")
	fields := WithTrace(ctx)
	assert.Len(t, fields, 1)
}
