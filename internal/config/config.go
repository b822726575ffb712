package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Draft store backends.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port                    string        `mapstructure:"PORT"`
	Env                     string        `mapstructure:"ENV"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	MongoURI                string        `mapstructure:"MONGO_URI"`
	MongoDatabase           string        `mapstructure:"MONGO_DATABASE"`
	RedisURL                string        `mapstructure:"REDIS_URL"`
	DraftBackend            string        `mapstructure:"DRAFT_BACKEND"`
	SQLitePath              string        `mapstructure:"SQLITE_PATH"`
	DraftDebounce           time.Duration `mapstructure:"DRAFT_DEBOUNCE"`
	DraftTTL                time.Duration `mapstructure:"DRAFT_TTL"`
	DraftSchemaVersion      int           `mapstructure:"DRAFT_SCHEMA_VERSION"`
	SessionCacheSize        int           `mapstructure:"SESSION_CACHE_SIZE"`
	JWTSecret               string        `mapstructure:"JWT_SECRET"`
	StaffUsername           string        `mapstructure:"STAFF_USERNAME"`
	StaffPassword           string        `mapstructure:"STAFF_PASSWORD"`
	CORSOrigins             []string      `mapstructure:"CORS_ORIGINS"`
	BreakerFailureThreshold uint32        `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerOpenTimeout      time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"MONGO_URI", "MONGO_DATABASE", "REDIS_URL",
	"DRAFT_BACKEND", "SQLITE_PATH", "DRAFT_DEBOUNCE", "DRAFT_TTL", "DRAFT_SCHEMA_VERSION",
	"SESSION_CACHE_SIZE",
	"JWT_SECRET", "STAFF_USERNAME", "STAFF_PASSWORD",
	"CORS_ORIGINS",
	"BREAKER_FAILURE_THRESHOLD", "BREAKER_OPEN_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "socialrisk")
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("DRAFT_BACKEND", BackendRedis)
	v.SetDefault("SQLITE_PATH", "data/drafts.db")
	v.SetDefault("DRAFT_DEBOUNCE", "300ms")
	v.SetDefault("DRAFT_TTL", "72h")
	v.SetDefault("DRAFT_SCHEMA_VERSION", 1)
	v.SetDefault("SESSION_CACHE_SIZE", 1024)
	v.SetDefault("STAFF_USERNAME", "admin")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	v.SetDefault("BREAKER_OPEN_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// JWT_SECRET and STAFF_PASSWORD must be set.
func (c *Config) Validate() error {
	switch c.DraftBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when DRAFT_BACKEND is %q", BackendRedis)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DRAFT_BACKEND is %q", BackendSQLite)
		}
	default:
		return fmt.Errorf("DRAFT_BACKEND must be %q or %q, got %q", BackendRedis, BackendSQLite, c.DraftBackend)
	}

	if c.DraftSchemaVersion < 1 {
		return fmt.Errorf("DRAFT_SCHEMA_VERSION must be positive, got %d", c.DraftSchemaVersion)
	}
	if c.DraftDebounce < 0 {
		return fmt.Errorf("DRAFT_DEBOUNCE must not be negative")
	}
	if c.SessionCacheSize <= 0 {
		return fmt.Errorf("SESSION_CACHE_SIZE must be positive, got %d", c.SessionCacheSize)
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		if c.StaffPassword == "" {
			return fmt.Errorf("STAFF_PASSWORD is required outside development")
		}
	}
	return nil
}
