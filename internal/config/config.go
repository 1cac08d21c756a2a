// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase   = "sqlite"
	PostgresDatabase = "postgres"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	Timezone    string   `mapstructure:"timezone"`
	PrivateKey  string   `mapstructure:"privatekey"`
	PublicURL   string   `mapstructure:"publicurl"`

	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabasePath         string `mapstructure:"storagepath"`
	DatabaseName         string `mapstructure:"-"` // Derived from other settings
	PostgresDSN          string `mapstructure:"postgresdsn"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Collector settings
	AllowedOrigins       string `mapstructure:"allowedorigins"`
	IngestTimeoutSeconds int    `mapstructure:"ingesttimeoutseconds"`
	RateLimitPerMinute   int    `mapstructure:"ratelimitperminute"`
	QRCatalogPath        string `mapstructure:"qrcatalogpath"`

	// Summary (language model) settings
	OpenAIAPIKey          string `mapstructure:"openaiapikey"`
	OpenAIModel           string `mapstructure:"openaimodel"`
	OpenAIBaseURL         string `mapstructure:"openaibaseurl"`
	SummaryTimeoutSeconds int    `mapstructure:"summarytimeoutseconds"`
}

const defaultPrivateKey = "88888888888888888888888888888888"

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the process-wide configuration, loading it on first use.
func GetConfig() *Config {
	once.Do(func() {
		loaded, err := Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	})
	return cfg
}

// Load builds a fresh configuration from defaults and the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("appname", "pulseboard")
	v.SetDefault("appport", "3000")
	v.SetDefault("environment", Development)
	v.SetDefault("loglevel", string(LogLevelDebug))
	v.SetDefault("timezone", "UTC")
	v.SetDefault("privatekey", defaultPrivateKey)
	v.SetDefault("publicurl", "")
	v.SetDefault("publicdir", "public")
	v.SetDefault("publicassetsurlprefix", "/assets")
	v.SetDefault("logsdir", "")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)
	v.SetDefault("dbtype", SQLiteDatabase)
	v.SetDefault("storagepath", "storage")
	v.SetDefault("postgresdsn", "")
	v.SetDefault("dbmaxopenconns", 0)
	v.SetDefault("dbmaxidleconns", 0)
	v.SetDefault("allowedorigins", "*")
	v.SetDefault("ingesttimeoutseconds", 5)
	v.SetDefault("ratelimitperminute", 0)
	v.SetDefault("qrcatalogpath", "")
	v.SetDefault("openaiapikey", "")
	v.SetDefault("openaimodel", "gpt-4o-mini")
	v.SetDefault("openaibaseurl", "https://api.openai.com/v1")
	v.SetDefault("summarytimeoutseconds", 30)

	v.BindEnv("appname", "PULSEBOARD_APP_NAME")
	v.BindEnv("appport", "PULSEBOARD_APP_PORT")
	v.BindEnv("environment", "PULSEBOARD_ENV")
	v.BindEnv("loglevel", "PULSEBOARD_LOG_LEVEL")
	v.BindEnv("timezone", "PULSEBOARD_TIMEZONE")
	v.BindEnv("privatekey", "PULSEBOARD_PRIVATE_KEY")
	v.BindEnv("publicurl", "PULSEBOARD_PUBLIC_URL")
	v.BindEnv("publicdir", "PULSEBOARD_PUBLIC_DIR")
	v.BindEnv("publicassetsurlprefix", "PULSEBOARD_PUBLIC_ASSETS_URL_PREFIX")
	v.BindEnv("logsdir", "PULSEBOARD_LOGS_DIR")
	v.BindEnv("logsmaxsizeinmb", "PULSEBOARD_LOGS_MAX_SIZE_IN_MB")
	v.BindEnv("logsmaxbackups", "PULSEBOARD_LOGS_MAX_BACKUPS")
	v.BindEnv("logsmaxageindays", "PULSEBOARD_LOGS_MAX_AGE_IN_DAYS")
	v.BindEnv("dbtype", "PULSEBOARD_DB_TYPE")
	v.BindEnv("storagepath", "PULSEBOARD_STORAGE_PATH")
	v.BindEnv("postgresdsn", "PULSEBOARD_POSTGRES_DSN", "DATABASE_URL")
	v.BindEnv("dbmaxopenconns", "PULSEBOARD_DB_MAX_OPEN_CONNS")
	v.BindEnv("dbmaxidleconns", "PULSEBOARD_DB_MAX_IDLE_CONNS")
	v.BindEnv("allowedorigins", "PULSEBOARD_ALLOWED_ORIGINS")
	v.BindEnv("ingesttimeoutseconds", "PULSEBOARD_INGEST_TIMEOUT_SECONDS")
	v.BindEnv("ratelimitperminute", "PULSEBOARD_RATE_LIMIT_PER_MINUTE")
	v.BindEnv("qrcatalogpath", "PULSEBOARD_QR_CATALOG_PATH")
	v.BindEnv("openaiapikey", "OPENAI_API_KEY")
	v.BindEnv("openaimodel", "PULSEBOARD_OPENAI_MODEL")
	v.BindEnv("openaibaseurl", "PULSEBOARD_OPENAI_BASE_URL")
	v.BindEnv("summarytimeoutseconds", "PULSEBOARD_SUMMARY_TIMEOUT_SECONDS")

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	c.DatabaseName = c.GetDatabasePath()
	return c, nil
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase:   true,
		PostgresDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}
	if c.DatabaseType == PostgresDatabase && c.PostgresDSN == "" {
		return fmt.Errorf("postgres database requires a DSN")
	}

	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if c.IsProduction() && c.PrivateKey == defaultPrivateKey {
		return fmt.Errorf("PULSEBOARD_PRIVATE_KEY must be changed in production")
	}

	if c.PublicURL != "" {
		u, err := url.Parse(c.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid public url %q", c.PublicURL)
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if c.IngestTimeoutSeconds <= 0 {
		return fmt.Errorf("ingest timeout must be positive")
	}
	if c.SummaryTimeoutSeconds <= 0 {
		return fmt.Errorf("summary timeout must be positive")
	}

	return nil
}

// GetDatabasePath returns the SQLite file path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the SQLite path (implements cartridge.FactoryConfig interface).
// The Postgres event store is opened separately from PostgresDSN.
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Location returns the dashboard timezone. Validated on load, so the UTC
// fallback only applies to hand-built configs.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CORSOrigins returns the comma separated origin list in the form fiber expects.
func (c *Config) CORSOrigins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return "*"
	}
	return strings.Join(cleaned, ",")
}

// IngestTimeout bounds a single collector write.
func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.IngestTimeoutSeconds) * time.Second
}

// SummaryTimeout bounds a single language model call.
func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.SummaryTimeoutSeconds) * time.Second
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1
// - Development/Production: 10 (allows concurrent reads for the overview)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
