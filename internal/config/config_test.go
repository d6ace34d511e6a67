package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("COMMERCE_DB_URL", "postgres://localhost/commerce")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("LOCK_TIMEOUT", "")
	t.Setenv("CATEGORY_CACHE_TTL", "")
	t.Setenv("COOKIE_SECURE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CategoryCacheTTL)
	assert.False(t, cfg.CookieSecure)
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("LOCK_TIMEOUT", "500ms")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.LockTimeout)
	assert.True(t, cfg.CookieSecure)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		setRequired(t)
		t.Setenv("COMMERCE_DB_URL", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "COMMERCE_DB_URL")
	})

	t.Run("bad duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOCK_TIMEOUT", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "LOCK_TIMEOUT")
	})
}
