package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.ImportRowPause)
	assert.Equal(t, 2*time.Hour, cfg.ImportSessionTTL)
	assert.Equal(t, 5000, cfg.ImportMaxRows)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("IMPORT_ROW_PAUSE", "10ms")
	t.Setenv("IMPORT_MAX_ROWS", "100")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.clinica.mx, https://admin.clinica.mx")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 10*time.Millisecond, cfg.ImportRowPause)
	assert.Equal(t, 100, cfg.ImportMaxRows)
	assert.True(t, cfg.RedisTLS)
	assert.Equal(t, []string{"https://app.clinica.mx", "https://admin.clinica.mx"}, cfg.CORSAllowedOrigins)
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("IMPORT_ROW_PAUSE", "soon")
	t.Setenv("IMPORT_MAX_ROWS", "many")
	t.Setenv("REDIS_TLS", "sí")

	cfg := Load()

	assert.Equal(t, 50*time.Millisecond, cfg.ImportRowPause)
	assert.Equal(t, 5000, cfg.ImportMaxRows)
	assert.False(t, cfg.RedisTLS)
}
