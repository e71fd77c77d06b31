package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("STORE_TIMEOUT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "0 9 * * *", cfg.DueDateCron)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("NOTIFY_TIMEOUT", "not-a-duration")
	t.Setenv("NOTIFY_WORKERS", "4")
	t.Setenv("SMTP_USE_TLS", "yes")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.True(t, cfg.SMTPUseTLS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}
