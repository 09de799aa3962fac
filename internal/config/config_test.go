package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/intermernet/scoreboard/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable New reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_ADDR", "DATA_PATH", "STATIC_PATH", "FRONTEND_URL", "JWT_SECRET",
		"SESSION_TTL", "COOKIE_SECURE", "LOG_LEVEL", "LOG_JSON", "ADMIN_USERNAME",
		"ADMIN_PASSWORD", "CLUSTERS_FILE", "SEED_SAMPLE_EVENT",
	} {
		t.Setenv(key, "")
	}
}

func TestNewDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "./data", cfg.DataPath)
	assert.Equal(t, filepath.Join("data", "databases", "scoreboard.db"), filepath.Clean(cfg.DbFile))
	assert.Equal(t, filepath.Join("data", "backups"), filepath.Clean(cfg.BackupPath))
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "admin123", cfg.AdminPassword)
	assert.True(t, cfg.SeedSampleEvent)
	assert.False(t, cfg.CookieSecure)
	assert.Nil(t, cfg.ParsedFrontendURL)
	assert.Empty(t, cfg.FrontendOrigin())
}

func TestNewOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_PATH", "/srv/scores")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SEED_SAMPLE_EVENT", "false")
	t.Setenv("FRONTEND_URL", "https://scores.example.com/app/")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/srv/scores/databases/scoreboard.db", cfg.DbFile)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.False(t, cfg.SeedSampleEvent)
	require.NotNil(t, cfg.ParsedFrontendURL)
	assert.Equal(t, "scores.example.com", cfg.ParsedFrontendURL.Host)
	assert.Equal(t, "https://scores.example.com", cfg.FrontendOrigin())
}

func TestNewRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad bool", key: "COOKIE_SECURE", value: "sometimes"},
		{name: "bad duration", key: "SESSION_TTL", value: "a while"},
		{name: "negative duration", key: "SESSION_TTL", value: "-1h"},
		{name: "bad level", key: "LOG_LEVEL", value: "loud"},
		{name: "relative frontend url", key: "FRONTEND_URL", value: "scores.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestRequireServerSecrets(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireServerSecrets())

	cfg.JwtSecret = "short"
	assert.Error(t, cfg.RequireServerSecrets())

	cfg.JwtSecret = "a-long-enough-signing-secret"
	assert.NoError(t, cfg.RequireServerSecrets())
}
