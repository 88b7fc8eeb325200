package logging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLogger(t *testing.T) {
	err := InitLogger()
	require.NoError(t, err)
	assert.NotNil(t, Logger)
	assert.NotNil(t, Logger.logger)
}

func TestInitLogger_WithLogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Unsetenv("LOG_LEVEL")

	err := InitLogger()
	require.NoError(t, err)
	assert.True(t, Logger.Unwrap().Core().Enabled(zapcore.DebugLevel))
}

func TestInitLogger_WithInvalidLogLevel(t *testing.T) {
	// Invalid levels fall back to the production default
	os.Setenv("LOG_LEVEL", "invalid")
	defer os.Unsetenv("LOG_LEVEL")

	err := InitLogger()
	require.NoError(t, err)
	assert.False(t, Logger.Unwrap().Core().Enabled(zapcore.DebugLevel))
}

func TestSafeLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(core))

	logger.Debug("debug message")
	logger.Info("info message", zap.String("key", "value"))
	logger.Warn("warn message")
	logger.Error("error message", zap.Int("count", 42))

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "info message", entries[1].Message)
	assert.Equal(t, "value", entries[1].ContextMap()["key"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, int64(42), entries[3].ContextMap()["count"])
}

func TestSafeLogger_NilLogger(t *testing.T) {
	logger := &SafeLogger{logger: nil}

	// All methods should be safe to call with nil logger
	logger.Info("test")
	logger.Warn("test")
	logger.Debug("test")
	logger.Error("test")
	assert.NoError(t, logger.Sync())
}

func TestSafeLogger_NilSafeLogger(t *testing.T) {
	var logger *SafeLogger

	logger.Info("test")
	logger.Warn("test")
	logger.Debug("test")
	logger.Error("test")
	assert.NoError(t, logger.Sync())
}

func TestSafeLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := New(zap.New(core))

	child := logger.With(zap.String("guild_id", "123"))
	require.NotNil(t, child)

	child.Info("with context")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "123", logs.All()[0].ContextMap()["guild_id"])
}

func TestSafeLogger_With_NilLogger(t *testing.T) {
	logger := &SafeLogger{logger: nil}

	newLogger := logger.With(zap.String("key", "value"))

	assert.Equal(t, logger, newLogger)
}

func TestSafeLogger_With_NilSafeLogger(t *testing.T) {
	var logger *SafeLogger

	assert.Nil(t, logger.With(zap.String("key", "value")))
	assert.Nil(t, logger.Named("bot"))
}

func TestSafeLogger_Named(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := New(zap.New(core)).Named("dispatcher")

	logger.Info("named")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "dispatcher", logs.All()[0].LoggerName)
}

func TestSafeLogger_Unwrap(t *testing.T) {
	zapLogger := zap.NewNop()
	logger := &SafeLogger{logger: zapLogger}

	assert.Equal(t, zapLogger, logger.Unwrap())
}

func TestSafeLogger_Unwrap_NilSafeLogger(t *testing.T) {
	var logger *SafeLogger

	// Should return a new nop logger
	assert.NotNil(t, logger.Unwrap())
}

func TestGlobalLogger(t *testing.T) {
	assert.NotNil(t, Logger)
	assert.NotNil(t, Logger.logger)

	Logger.Info("test message")
}

func TestInitLogger_MultipleInit(t *testing.T) {
	require.NoError(t, InitLogger())
	require.NoError(t, InitLogger())

	assert.NotNil(t, Logger)
}
