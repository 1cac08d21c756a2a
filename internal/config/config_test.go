package config_test

import (
	"testing"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "pulseboard", cfg.AppName)
	assert.Equal(t, config.SQLiteDatabase, cfg.DatabaseType)
	assert.Equal(t, "*", cfg.CORSOrigins())
	assert.Equal(t, 5*time.Second, cfg.IngestTimeout())
	assert.Equal(t, 30*time.Second, cfg.SummaryTimeout())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Contains(t, cfg.DatabaseName, "pulseboard-")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PULSEBOARD_ENV", config.Test)
	t.Setenv("PULSEBOARD_ALLOWED_ORIGINS", " https://a.example , https://b.example,")
	t.Setenv("PULSEBOARD_INGEST_TIMEOUT_SECONDS", "2")
	t.Setenv("PULSEBOARD_TIMEZONE", "Europe/Madrid")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsTest())
	assert.Equal(t, "https://a.example,https://b.example", cfg.CORSOrigins())
	assert.Equal(t, 2*time.Second, cfg.IngestTimeout())
	assert.Equal(t, "Europe/Madrid", cfg.Location().String())
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 1, cfg.GetMaxOpenConns())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown environment", map[string]string{"PULSEBOARD_ENV": "staging"}},
		{"unknown database", map[string]string{"PULSEBOARD_DB_TYPE": "mysql"}},
		{"postgres without dsn", map[string]string{"PULSEBOARD_DB_TYPE": "postgres"}},
		{"bad timezone", map[string]string{"PULSEBOARD_TIMEZONE": "Mars/Olympus"}},
		{"zero ingest timeout", map[string]string{"PULSEBOARD_INGEST_TIMEOUT_SECONDS": "0"}},
		{"default private key in production", map[string]string{"PULSEBOARD_ENV": "production"}},
		{"public url without scheme", map[string]string{"PULSEBOARD_PUBLIC_URL": "stats.example.com"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadPublicURL(t *testing.T) {
	t.Setenv("PULSEBOARD_PUBLIC_URL", "https://stats.example.com/")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://stats.example.com", cfg.PublicURL)
}

func TestConfigImplementsCartridgeInterfaces(t *testing.T) {
	t.Setenv("PULSEBOARD_LOGS_DIR", "/var/log/pulseboard")

	cfg, err := config.Load()
	require.NoError(t, err)

	var logCfg cartridge.LogConfigProvider = cfg
	assert.Equal(t, "debug", logCfg.GetLogLevel())
	assert.Equal(t, "/var/log/pulseboard", logCfg.GetLogDirectory())
	assert.Equal(t, 20, logCfg.GetLogMaxSizeMB())

	var appCfg cartridge.Config = cfg
	assert.Equal(t, "3000", appCfg.GetPort())
	assert.Equal(t, cfg.GetDatabasePath(), cfg.DatabaseDSN())
}
