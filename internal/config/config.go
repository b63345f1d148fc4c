// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session store drivers.
const (
	StoreDriverMemory = "memory"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
)

// CredentialSet is one OAuth client the app may use for the password grant.
// A set without a secret is a public (native) client.
type CredentialSet struct {
	Name         string
	ClientID     string
	ClientSecret string
}

// Config holds all configuration for the client core and the development stack.
type Config struct {
	AppEnv    string `mapstructure:"APP_ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Application backend
	APIURL      string        `mapstructure:"API_URL"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	// Identity provider
	IDPBaseURL             string `mapstructure:"IDP_BASE_URL"`
	IDPAudience            string `mapstructure:"IDP_AUDIENCE"`
	IDPConnection          string `mapstructure:"IDP_CONNECTION"`
	IDPNativeClientID      string `mapstructure:"IDP_NATIVE_CLIENT_ID"`
	IDPBackendClientID     string `mapstructure:"IDP_BACKEND_CLIENT_ID"`
	IDPBackendClientSecret string `mapstructure:"IDP_BACKEND_CLIENT_SECRET"`

	// Session storage
	SessionStoreDriver string `mapstructure:"SESSION_STORE_DRIVER"`
	SessionDBPath      string `mapstructure:"SESSION_DB_PATH"`
	SessionKeyPrefix   string `mapstructure:"SESSION_KEY_PREFIX"`
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`

	// Cron Jobs
	RevalidateSchedule string `mapstructure:"REVALIDATE_SCHEDULE"`

	// Development stack server
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Development stack database
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBPath            string        `mapstructure:"DB_PATH"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	// Development identity provider
	DevJWTSecret           string        `mapstructure:"DEV_JWT_SECRET"`
	DevTokenTTL            time.Duration `mapstructure:"DEV_TOKEN_TTL_MINUTES"`
	DevNativePasswordGrant bool          `mapstructure:"DEV_NATIVE_PASSWORD_GRANT"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("API_URL", "http://localhost:8080")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 15)

	v.SetDefault("IDP_BASE_URL", "http://localhost:8080")
	v.SetDefault("IDP_AUDIENCE", "https://cafe-api")
	v.SetDefault("IDP_CONNECTION", "Username-Password-Authentication")
	v.SetDefault("IDP_NATIVE_CLIENT_ID", "native-app")
	v.SetDefault("IDP_BACKEND_CLIENT_ID", "backend-app")
	v.SetDefault("IDP_BACKEND_CLIENT_SECRET", "dev-backend-secret")

	v.SetDefault("SESSION_STORE_DRIVER", StoreDriverSQLite)
	v.SetDefault("SESSION_DB_PATH", "cafe_session.db")
	v.SetDefault("SESSION_KEY_PREFIX", "cafe:")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("REVALIDATE_SCHEDULE", "@every 15m")

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "devstack.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "cafe_devstack")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("DEV_JWT_SECRET", "devstack-secret-change-me")
	v.SetDefault("DEV_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("DEV_NATIVE_PASSWORD_GRANT", false)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.HTTPTimeout = time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.DevTokenTTL = time.Duration(v.GetInt("DEV_TOKEN_TTL_MINUTES")) * time.Minute

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.IDPBaseURL = strings.TrimRight(cfg.IDPBaseURL, "/")
	cfg.SessionStoreDriver = strings.ToLower(strings.TrimSpace(cfg.SessionStoreDriver))
	return &cfg, nil
}

// Validate checks the settings the client core cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("API_URL is not set")
	}
	if strings.TrimSpace(c.IDPBaseURL) == "" {
		return fmt.Errorf("IDP_BASE_URL is not set")
	}
	if len(c.CredentialSets()) == 0 {
		return fmt.Errorf("no identity provider client configured: set IDP_NATIVE_CLIENT_ID or IDP_BACKEND_CLIENT_ID")
	}
	switch c.SessionStoreDriver {
	case StoreDriverMemory, StoreDriverSQLite, StoreDriverRedis:
	default:
		return fmt.Errorf("unsupported SESSION_STORE_DRIVER %q", c.SessionStoreDriver)
	}
	return nil
}

// CredentialSets returns the configured clients in the order token exchange tries them:
// the native client first, then the backend client with its secret.
func (c *Config) CredentialSets() []CredentialSet {
	var sets []CredentialSet
	if id := strings.TrimSpace(c.IDPNativeClientID); id != "" {
		sets = append(sets, CredentialSet{Name: "native", ClientID: id})
	}
	if id := strings.TrimSpace(c.IDPBackendClientID); id != "" {
		sets = append(sets, CredentialSet{Name: "backend", ClientID: id, ClientSecret: c.IDPBackendClientSecret})
	}
	return sets
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
