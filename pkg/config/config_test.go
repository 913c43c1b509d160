package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SERVER_MODE", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/api", cfg.Server.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TokenDuration)
	assert.Equal(t, DefaultAllowOrigins, cfg.CORS.AllowOrigins)
	assert.Equal(t, 86400, cfg.CORS.MaxAge)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example.org, ,https://b.example.org ")
	t.Setenv("CORS_DEFAULT_ORIGIN", "https://b.example.org")
	t.Setenv("JWT_TOKEN_DURATION", "90m")
	t.Setenv("REDIS_ENABLED", "TRUE")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, "https://b.example.org", cfg.CORS.DefaultOrigin)
	assert.Equal(t, 90*time.Minute, cfg.JWT.TokenDuration)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 6380, cfg.Redis.Port)
}

func TestLoadConfigRejectsDefaultSecretInRelease(t *testing.T) {
	t.Setenv("SERVER_MODE", "release")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET_KEY", "a-real-secret")
	_, err = LoadConfig()
	assert.NoError(t, err)
}

func TestLoadConfigRejectsRelativePrefix(t *testing.T) {
	t.Setenv("SERVER_API_PREFIX", "api")

	_, err := LoadConfig()
	assert.Error(t, err)
}
