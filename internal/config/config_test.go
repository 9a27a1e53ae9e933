package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/grc")
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("JWT_SECRET", "j")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 100, cfg.RateLimitBurst)
	assert.Equal(t, 5, cfg.AuthRateLimitBurst)
	assert.Equal(t, "admin@grc.local", cfg.AdminEmail)
	assert.False(t, cfg.SeedDemo)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("DB_DSN", "x")
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("JWT_SECRET", "j")
	t.Setenv("JWT_EXPIRES_IN", "7d")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_EXPIRES_IN")
}
