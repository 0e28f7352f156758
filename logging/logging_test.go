package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevels(t *testing.T) {
	require.Equal(t, "WARN", LogLevelToString(ParseLevel("warn")))
	require.Equal(t, "INFO", LogLevelToString(ParseLevel("unknown")))
	require.Equal(t, zapcore.DebugLevel, zapLevel(TraceLevel))
	require.Equal(t, zapcore.ErrorLevel, zapLevel(ErrorLevel))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(DebugLevel, true)
	require.Nil(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.NotNil(t, OrNop(nil))
}
