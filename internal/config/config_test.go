package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"AI_MAX_TOKENS", "LOCK_BACKEND", "SESSION_TTL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, 2000, cfg.Ai.MaxTokens)
	assert.Equal(t, "local", cfg.Infra.LockBackend)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AI_MAX_TOKENS", "512")
	t.Setenv("AI_COMPLETION_TIMEOUT", "15s")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SESSION_COOKIE_SECURE", "true")

	cfg := Load()

	assert.Equal(t, 512, cfg.Ai.MaxTokens)
	assert.Equal(t, 15*time.Second, cfg.Ai.CompletionTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Auth.CookieSecure)
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	t.Setenv("SOME_DURATION", "forever")

	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	assert.Equal(t, time.Minute, getEnvAsDuration("SOME_DURATION", time.Minute))
	assert.False(t, getEnvAsBool("MISSING_BOOL_KEY", false))
}
