package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Load caches globally, so defaults and env overrides are checked in one pass.
func TestLoadDefaultsAndEnvOverrides(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("APP_PORT", "9999")
	os.Setenv("STAFF_USERNAMES", "root@example.com, admin@example.com")
	os.Setenv("CACHE_DISABLED", "1")

	cfg := Load()

	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "9999", cfg.AppPort)
	assert.Equal(t, []string{"root@example.com", "admin@example.com"}, cfg.StaffUsernames)
	assert.True(t, cfg.CacheDisabled)

	// Defaults fill what nothing set.
	assert.Equal(t, "http://localhost:9999", cfg.SiteBaseURL)
	assert.Equal(t, "journal", cfg.DBName)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.UploadDir)

	// A second call returns the cached value.
	os.Setenv("APP_PORT", "1234")
	again := Get()
	assert.Equal(t, "9999", again.AppPort)
}

func TestLoadJSONConfigMissingFileIsFine(t *testing.T) {
	var c AppConfig
	require.NoError(t, loadJSONConfig("does/not/exist.json", &c))
	assert.Equal(t, AppConfig{}, c)
}
