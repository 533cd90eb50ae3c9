// Package config loads application configuration from the environment,
// optionally seeded from a .env file and overridden by a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	Queue   QueueConfig   `yaml:"queue"`
	Payment PaymentConfig `yaml:"payment"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the remote API client.
type APIConfig struct {
	BaseURL        string        `env:"APPCORE_API_BASE_URL,default=https://api.cartaomais.com.br" yaml:"base_url"`
	Timeout        time.Duration `env:"APPCORE_API_TIMEOUT,default=30s" yaml:"timeout"`
	RequestsPerSec float64       `env:"APPCORE_API_RPS,default=10" yaml:"requests_per_sec"`
	Burst          int           `env:"APPCORE_API_BURST,default=5" yaml:"burst"`
}

// StorageConfig selects and configures the persistent key-value backend.
type StorageConfig struct {
	// Backend is one of memory, file, redis, postgres.
	Backend       string `env:"APPCORE_STORAGE_BACKEND,default=file" yaml:"backend"`
	Dir           string `env:"APPCORE_STORAGE_DIR,default=.appcore" yaml:"dir"`
	KeyPrefix     string `env:"APPCORE_STORAGE_PREFIX,default=appcore" yaml:"key_prefix"`
	RedisAddr     string `env:"APPCORE_REDIS_ADDR,default=localhost:6379" yaml:"redis_addr"`
	RedisPassword string `env:"APPCORE_REDIS_PASSWORD,default=" yaml:"redis_password"`
	RedisDB       int    `env:"APPCORE_REDIS_DB,default=0" yaml:"redis_db"`
	PostgresDSN   string `env:"APPCORE_POSTGRES_DSN,default=" yaml:"postgres_dsn"`
}

// SessionConfig configures the session refresher.
type SessionConfig struct {
	RefreshInterval time.Duration `env:"APPCORE_SESSION_REFRESH_INTERVAL,default=10s" yaml:"refresh_interval"`
	// ExpiryAware schedules refreshes from the token's JWT exp claim
	// instead of the fixed interval when the claim is present.
	ExpiryAware bool `env:"APPCORE_SESSION_EXPIRY_AWARE,default=false" yaml:"expiry_aware"`
}

// QueueConfig configures the telemedicine queue watcher.
type QueueConfig struct {
	PollInterval time.Duration `env:"APPCORE_QUEUE_POLL_INTERVAL,default=10s" yaml:"poll_interval"`
	Specialty    string        `env:"APPCORE_QUEUE_SPECIALTY,default=CLINICO_GERAL" yaml:"specialty"`
}

// PaymentConfig configures payment-status polling.
type PaymentConfig struct {
	PollInterval time.Duration `env:"APPCORE_PAYMENT_POLL_INTERVAL,default=10s" yaml:"poll_interval"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `env:"APPCORE_LOG_LEVEL,default=info" yaml:"level"`
	Format string `env:"APPCORE_LOG_FORMAT,default=text" yaml:"format"`
}

// Load reads a .env file when present, then decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithOverride loads from the environment and then applies a YAML
// override file on top when the path exists.
func LoadWithOverride(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config override: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config override: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory", "file", "redis", "postgres":
	default:
		return fmt.Errorf("storage backend %q is not one of memory, file, redis, postgres", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage backend postgres requires APPCORE_POSTGRES_DSN")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.Session.RefreshInterval <= 0 {
		return fmt.Errorf("session refresh interval must be positive")
	}
	return nil
}
