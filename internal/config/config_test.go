package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CALENDLY_ACCESS_TOKEN", "cal-token")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.SchedulingTimeout)
	assert.Equal(t, "cal-token", cfg.SchedulingAccessToken)
	assert.Equal(t, "https://api.calendly.com", cfg.SchedulingBaseURL)
	assert.Equal(t, "@every 15m", cfg.ResetTokenSweep)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, time.UTC, cfg.MeetingTimezone)
	assert.False(t, cfg.SMTP.Configured())
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SCHEDULING_ACCESS_TOKEN", "primary")
	t.Setenv("CALENDLY_ACCESS_TOKEN", "fallback")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SCHEDULING_BASE_URL", "https://scheduling.internal/")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SMTP_HOST", "smtp.example")
	t.Setenv("SMTP_FROM", "noreply@example")
	t.Setenv("APP_ENV", "production")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "primary", cfg.SchedulingAccessToken)
	assert.Equal(t, "https://scheduling.internal", cfg.SchedulingBaseURL)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.SMTP.Configured())
	assert.False(t, cfg.IsDevelopment())
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "JWT_SECRET is required")
	})

	t.Run("bad values are all reported", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("PORT", "eighty")
		t.Setenv("TOKEN_TTL", "a day")
		t.Setenv("STORE_BACKEND", "postgres")
		t.Setenv("SCHEDULING_BASE_URL", "api.calendly.com")

		_, err := FromEnv()
		require.Error(t, err)
		assert.ErrorContains(t, err, "SCHEDULING_BASE_URL")
		assert.ErrorContains(t, err, "PORT")
		assert.ErrorContains(t, err, "TOKEN_TTL")
		assert.ErrorContains(t, err, "STORE_BACKEND")
	})
}
