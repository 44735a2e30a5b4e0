package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(&Config{Format: "xml"})
	require.Error(t, err)
}

func TestLogger_ContextFields(t *testing.T) {
	logger := NewTestLogger()

	ctx := ContextWithQueryID(context.Background(), "q-123")
	ctx = ContextWithStorePath(ctx, "/tmp/memory.db")
	logger.Info(ctx, "search complete", zap.Int("results", 3))

	entries := logger.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "q-123", fields["query.id"])
	assert.Equal(t, "/tmp/memory.db", fields["store.path"])
	assert.Equal(t, int64(3), fields["results"])
}

func TestLogger_EmptyContext(t *testing.T) {
	logger := NewTestLogger()

	logger.Info(context.Background(), "no correlation")

	entries := logger.All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Context)
}

func TestLogger_Named(t *testing.T) {
	logger := NewTestLogger()

	logger.Named("store").Warn(context.Background(), "engine fallback")

	entries := logger.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "store", entries[0].LoggerName)
}

func TestTestLogger_AssertLogged(t *testing.T) {
	logger := NewTestLogger()
	logger.Error(context.Background(), "migration failed: row count mismatch")
	logger.AssertLogged(t, zapcore.ErrorLevel, "row count mismatch")
}
