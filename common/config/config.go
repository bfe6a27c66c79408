// Package config provides configuration loading for quoteline services.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the marketdata service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Users    UsersConfig    `mapstructure:"users"`
	Market   MarketConfig   `mapstructure:"market"`
	Provider ProviderConfig `mapstructure:"provider"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// AuthConfig holds token signing and login protection settings.
type AuthConfig struct {
	JWTSecret         string          `mapstructure:"jwt_secret"`
	AccessTokenTTL    time.Duration   `mapstructure:"access_token_ttl"`
	Issuer            string          `mapstructure:"issuer"`
	AuditSecret       string          `mapstructure:"audit_secret"`
	RevocationEnabled bool            `mapstructure:"revocation_enabled"`
	LoginRateLimit    RateLimitConfig `mapstructure:"login_rate_limit"`
}

// RateLimitConfig configures the sliding-window login limiter.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// UsersConfig selects the identity store.
// Type is "json" (default), "memory" or "postgres".
type UsersConfig struct {
	Type     string `mapstructure:"type"`
	DataDir  string `mapstructure:"data_dir"`
	FileName string `mapstructure:"file_name"`
}

// RecordsPath is the location of the JSON identity document.
func (u UsersConfig) RecordsPath() string {
	return filepath.Join(u.DataDir, u.FileName)
}

// MarketConfig holds the query defaults applied to absent parameters.
// Values are raw parameter strings and resolve through the same tables as
// client input.
type MarketConfig struct {
	Defaults MarketDefaults `mapstructure:"defaults"`
}

type MarketDefaults struct {
	Timeframe string `mapstructure:"timeframe"`
	DateFrom  string `mapstructure:"date_from"`
	DateTo    string `mapstructure:"date_to"`
	Flags     string `mapstructure:"flags"`
	StartPos  int    `mapstructure:"start_pos"`
	Count     int    `mapstructure:"count"`
}

// ProviderConfig selects the market-data provider.
// Type is "bridge" (terminal gateway over HTTP) or "memory".
type ProviderConfig struct {
	Type    string        `mapstructure:"type"`
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres       PostgresConfig `mapstructure:"postgres"`
	MigrationsPath string         `mapstructure:"migrations_path"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString renders the pgx connection URL.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from configPath, or when empty from
// $QUOTELINE_CONFIG_DIR/config.yaml (default /etc/quoteline). A .env file in
// the working directory is loaded into the environment first. Environment
// variables override file values: QUOTELINE_ + upper-cased key with "." as
// "_", plus the legacy MD_SERVER_KEY and MD_DATA_PATH names.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configDir := os.Getenv("QUOTELINE_CONFIG_DIR")
		if configDir == "" {
			configDir = "/etc/quoteline"
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUOTELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("auth.jwt_secret", "QUOTELINE_AUTH_JWT_SECRET", "MD_SERVER_KEY")
	_ = v.BindEnv("users.data_dir", "QUOTELINE_USERS_DATA_DIR", "MD_DATA_PATH")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required (set QUOTELINE_AUTH_JWT_SECRET or MD_SERVER_KEY)")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be positive, got %s", c.Auth.AccessTokenTTL)
	}
	if c.Auth.LoginRateLimit.Enabled {
		if !c.Redis.Enabled {
			return errors.New("auth.login_rate_limit requires redis.enabled")
		}
		if c.Auth.LoginRateLimit.Requests <= 0 || c.Auth.LoginRateLimit.Window <= 0 {
			return errors.New("auth.login_rate_limit needs positive requests and window")
		}
	}
	if c.Auth.RevocationEnabled && !c.Redis.Enabled {
		return errors.New("auth.revocation_enabled requires redis.enabled")
	}

	switch c.Users.Type {
	case "json", "memory", "postgres":
	default:
		return fmt.Errorf("users.type must be json, memory or postgres, got %q", c.Users.Type)
	}

	switch c.Provider.Type {
	case "memory":
	case "bridge":
		if c.Provider.URL == "" {
			return errors.New("provider.url is required for the bridge provider")
		}
	default:
		return fmt.Errorf("provider.type must be bridge or memory, got %q", c.Provider.Type)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.issuer", "quoteline-marketdata")
	v.SetDefault("auth.audit_secret", "change-this-in-production")
	v.SetDefault("auth.revocation_enabled", false)
	v.SetDefault("auth.login_rate_limit.enabled", false)
	v.SetDefault("auth.login_rate_limit.requests", 10)
	v.SetDefault("auth.login_rate_limit.window", "1m")

	v.SetDefault("users.type", "json")
	v.SetDefault("users.data_dir", ".")
	v.SetDefault("users.file_name", "records.json")

	v.SetDefault("market.defaults.timeframe", "D1")
	v.SetDefault("market.defaults.date_from", "TRAILING_12M")
	v.SetDefault("market.defaults.date_to", "TODAY")
	v.SetDefault("market.defaults.flags", "ALL")
	v.SetDefault("market.defaults.start_pos", 0)
	v.SetDefault("market.defaults.count", 1000)

	v.SetDefault("provider.type", "bridge")
	v.SetDefault("provider.url", "http://localhost:8228")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.retries", 2)

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "quoteline")
	v.SetDefault("database.postgres.user", "quoteline")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.migrations_path", "file://migrations")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
