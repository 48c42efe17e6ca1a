// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type CheckoutConfig struct {
	Provider    string `yaml:"provider"` // paylink | noop
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	CallbackURL string `yaml:"callback_url"`
	Sandbox     bool   `yaml:"sandbox"`
}

type AutomationConfig struct {
	SweepInterval        time.Duration `yaml:"sweep_interval"`
	BatchSize            int           `yaml:"batch_size"`
	Workers              int           `yaml:"workers"`
	DefaultIntervalHours int           `yaml:"default_interval_hours"`
	Executor             string        `yaml:"executor"` // noop (external executors call back over HTTP)
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
	CookieDomain string        `yaml:"cookie_domain"`
	DashboardKey string        `yaml:"dashboard_key"` // shared secret exchanged for a session
}

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Automation AutomationConfig `yaml:"automation"`
	Auth       AuthConfig       `yaml:"auth"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Automation.SweepInterval <= 0 {
		cfg.Automation.SweepInterval = time.Minute
	}
	if cfg.Automation.BatchSize <= 0 {
		cfg.Automation.BatchSize = 100
	}
	if cfg.Automation.Workers <= 0 {
		cfg.Automation.Workers = 8
	}
	if cfg.Automation.DefaultIntervalHours <= 0 {
		cfg.Automation.DefaultIntervalHours = 4
	}
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = 30 * time.Minute
	}
	if cfg.Checkout.Provider == "" {
		cfg.Checkout.Provider = "noop"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Checkout.Provider == "paylink" && cfg.Checkout.APIKey == "" {
		return nil, errors.New("checkout.api_key is required for the paylink provider")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
