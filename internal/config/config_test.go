package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WS_SEND_BUFFER", "not-a-number")
	t.Setenv("DISPLAY_NAME_CACHE_TTL", "")

	cfg := Load()

	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.Equal(t, 5*time.Minute, cfg.DisplayNameCacheTTL)
	assert.Equal(t, "chat:group:", cfg.RedisChannelPrefix)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("DISPLAY_NAME_CACHE_TTL", "30s")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.WSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.DisplayNameCacheTTL)
	assert.True(t, cfg.DebugRoutes)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("nonsense"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "development")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
