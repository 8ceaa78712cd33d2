package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned when ingestion is requested without an API key.
var ErrMissingAPIKey = errors.New("config: API_KEY is not set")

const (
	keyAPIKey              = "API_KEY"
	keyAPIBaseURL          = "NBA_API_BASE_URL"
	keyAPIHost             = "NBA_API_HOST"
	keyAPITimeout          = "NBA_API_TIMEOUT"
	keyRateLimitWait       = "NBA_API_RATE_LIMIT_WAIT"
	keyMaxRateLimitRetries = "NBA_API_MAX_RATE_LIMIT_RETRIES"
	keyDBName              = "DB_NAME"
	keyDataDir             = "DATA_DIR"
	keyDatabaseDSN         = "DATABASE_DSN"
	keyRedisURL            = "REDIS_URL"
	keyCacheTTL            = "CACHE_TTL"
	keyQueriesFile         = "QUERIES_FILE"
	keyPreviewRows         = "PREVIEW_ROWS"
	keyLogLevel            = "LOG_LEVEL"
	keyLogFormat           = "LOG_FORMAT"

	DefaultAPIBaseURL    = "https://v2.nba.api-sports.io"
	DefaultAPIHost       = "v2.nba.api-sports.io"
	DefaultAPITimeout    = 90 * time.Second
	DefaultRateLimitWait = 60 * time.Second
	DefaultDBName        = "nba"
	DefaultDataDir       = "data"
	DefaultCacheTTL      = 24 * time.Hour
	DefaultQueriesFile   = "queries.sql"
	DefaultPreviewRows   = 100
)

// Config holds runtime configuration for a run.
type Config struct {
	API         APIConfig
	Store       StoreConfig
	Cache       CacheConfig
	QueriesFile string
	PreviewRows int
	LogLevel    string
	LogFormat   string
}

// APIConfig controls how the api-sports client reaches the upstream API.
type APIConfig struct {
	BaseURL             string
	Host                string
	Key                 string
	Timeout             time.Duration
	RateLimitWait       time.Duration
	MaxRateLimitRetries int // 0 retries forever
}

// StoreConfig selects the table store backend.
type StoreConfig struct {
	Name    string
	DataDir string
	DSN     string // postgres:// DSN; empty selects the local DuckDB file
}

// CacheConfig enables the Redis response cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Values already present in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		API: APIConfig{
			BaseURL:             strings.TrimRight(v.GetString(keyAPIBaseURL), "/"),
			Host:                v.GetString(keyAPIHost),
			Key:                 strings.TrimSpace(v.GetString(keyAPIKey)),
			Timeout:             positiveDuration(v, keyAPITimeout, DefaultAPITimeout),
			RateLimitWait:       positiveDuration(v, keyRateLimitWait, DefaultRateLimitWait),
			MaxRateLimitRetries: nonNegativeInt(v, keyMaxRateLimitRetries, 0),
		},
		Store: StoreConfig{
			Name:    v.GetString(keyDBName),
			DataDir: v.GetString(keyDataDir),
			DSN:     v.GetString(keyDatabaseDSN),
		},
		Cache: CacheConfig{
			RedisURL: v.GetString(keyRedisURL),
			TTL:      positiveDuration(v, keyCacheTTL, DefaultCacheTTL),
		},
		QueriesFile: v.GetString(keyQueriesFile),
		PreviewRows: nonNegativeInt(v, keyPreviewRows, DefaultPreviewRows),
		LogLevel:    v.GetString(keyLogLevel),
		LogFormat:   v.GetString(keyLogFormat),
	}
	return cfg, nil
}

// Validate checks settings required for the requested mode.
func (c *Config) Validate(requireAPIKey bool) error {
	if requireAPIKey && c.API.Key == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyAPIKey, "")
	v.SetDefault(keyAPIBaseURL, DefaultAPIBaseURL)
	v.SetDefault(keyAPIHost, DefaultAPIHost)
	v.SetDefault(keyAPITimeout, DefaultAPITimeout.String())
	v.SetDefault(keyRateLimitWait, DefaultRateLimitWait.String())
	v.SetDefault(keyMaxRateLimitRetries, 0)
	v.SetDefault(keyDBName, DefaultDBName)
	v.SetDefault(keyDataDir, DefaultDataDir)
	v.SetDefault(keyDatabaseDSN, "")
	v.SetDefault(keyRedisURL, "")
	v.SetDefault(keyCacheTTL, DefaultCacheTTL.String())
	v.SetDefault(keyQueriesFile, DefaultQueriesFile)
	v.SetDefault(keyPreviewRows, DefaultPreviewRows)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
}

func positiveDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func nonNegativeInt(v *viper.Viper, key string, fallback int) int {
	n := v.GetInt(key)
	if n < 0 {
		return fallback
	}
	return n
}
