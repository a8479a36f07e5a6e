package logging

import (
	"testing"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		logger, err := New(DefaultConfig())
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("development", func(t *testing.T) {
		logger, err := New(Config{Level: "debug", Development: true})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(Config{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LogConfig{Level: "warn", Development: true})
	assert.Equal(t, "warn", cfg.Level)
	assert.True(t, cfg.Development)

	cfg = FromConfig(config.LogConfig{})
	assert.Equal(t, "info", cfg.Level)
}

func TestNopFallbacks(t *testing.T) {
	assert.NotNil(t, NewDefault())
	assert.NotNil(t, OrNop(nil))
	assert.False(t, Nop().Core().Enabled(zapcore.ErrorLevel))
}
