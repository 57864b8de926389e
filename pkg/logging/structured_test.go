package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevels(t *testing.T) {
	tests := []struct {
		in   string
		slog slog.Level
		zap  zapcore.Level
	}{
		{"debug", slog.LevelDebug, zapcore.DebugLevel},
		{"info", slog.LevelInfo, zapcore.InfoLevel},
		{"warn", slog.LevelWarn, zapcore.WarnLevel},
		{"error", slog.LevelError, zapcore.ErrorLevel},
		{"bogus", slog.LevelInfo, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.slog, parseSlogLevel(tt.in))
			assert.Equal(t, tt.zap, parseZapLevel(tt.in).Level())
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(Config{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, logger.GetSlog())
	require.NotNil(t, logger.GetZap())

	assert.True(t, logger.GetZap().Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(Config{})
	require.NoError(t, err)
	assert.False(t, logger.GetZap().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.GetZap().Core().Enabled(zapcore.InfoLevel))
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields([]interface{}{"a", 1, "b", "two", 3, "skipped", "dangling"})
	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "b", fields[1].Key)

	assert.Nil(t, convertToZapFields(nil))
}

func TestNop_DomainHelpers(t *testing.T) {
	logger := NewNop().WithComponent("test").WithRunID("run-1")
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.LogCycle(ctx, CycleFields{Generation: 3, LoadLevel: "LIGHT", BestFitness: 0.9, Duration: time.Millisecond})
		logger.LogCycleFailure(ctx, "telemetry", errors.New("boom"))
		logger.LogActuation(ctx, "cpu", "quota", 80, 70, true)
		logger.LogCircuitBreaker(ctx, "telemetry", "closed", "open")
		logger.LogHTTPRequest(ctx, "GET", "/health", 200, time.Millisecond)
		_ = logger.Sync()
	})
}
