package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"counseling-api/internal/config"
)

func TestNewLevels(t *testing.T) {
	l, err := New(config.Logger{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(config.Logger{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.Logger{Level: "chatty"})
	assert.Error(t, err)
}
