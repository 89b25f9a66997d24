package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("loud"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel(""))
}

func TestIdentifier_LogsHintOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("registered",
		Identifier("id", "4567-0f1e2d3c"),
		Identifier("token", "c2VjcmV0"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "4567-***", fields["id"])
	assert.Equal(t, "***", fields["token"])
}
