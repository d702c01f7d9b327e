// Package config loads server configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Chain     ChainConfig     `yaml:"chain"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"TIPSERVER_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"TIPSERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"TIPSERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"TIPSERVER_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig selects the persistence backend. An empty DSN keeps
// everything in memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"TIPSERVER_DATABASE_DSN"`
}

// RedisConfig enables event publication when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"TIPSERVER_REDIS_ADDR"`
	Password string `yaml:"password" env:"TIPSERVER_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"TIPSERVER_REDIS_DB"`
	Channel  string `yaml:"channel" env:"TIPSERVER_REDIS_CHANNEL"`
}

// ChainConfig points at the transfer service RPC endpoint.
type ChainConfig struct {
	RPCURL    string        `yaml:"rpc_url" env:"TIPSERVER_CHAIN_RPC_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TIPSERVER_CHAIN_TIMEOUT"`
	Custodial string        `yaml:"custodial" env:"TIPSERVER_CHAIN_CUSTODIAL"`
}

// AuthConfig carries the proof signing secret.
type AuthConfig struct {
	Secret string `yaml:"secret" env:"TIPSERVER_AUTH_SECRET"`
}

// LoggingConfig mirrors pkg/logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"TIPSERVER_LOG_LEVEL"`
	Format string `yaml:"format" env:"TIPSERVER_LOG_FORMAT"`
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" env:"TIPSERVER_RATE_LIMIT_ENABLED"`
	RequestsPerSecond int  `yaml:"requests_per_second" env:"TIPSERVER_RATE_LIMIT_RPS"`
	Burst             int  `yaml:"burst" env:"TIPSERVER_RATE_LIMIT_BURST"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Chain: ChainConfig{
			Timeout:   30 * time.Second,
			Custodial: "custodial",
		},
		Redis: RedisConfig{
			Channel: "tip_layer.events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// named by TIPSERVER_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("TIPSERVER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.Chain.Custodial == "" {
		return fmt.Errorf("chain.custodial is required")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	return nil
}
