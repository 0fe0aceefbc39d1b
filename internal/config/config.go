// Package config loads server settings from flags and environment variables.
// A non-empty environment variable overrides the matching flag.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Addr          string        `env:"ADDR"`
	DBPath        string        `env:"DB_PATH"`
	StoreBackend  string        `env:"STORE_BACKEND"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL"`
	MirrorTimeout time.Duration `env:"MIRROR_TIMEOUT"`
	LogLevel      string        `env:"LOG_LEVEL"`
	LogFormat     string        `env:"LOG_FORMAT"`
}

// Load reads the process flags and environment.
func Load() (*Config, error) {
	return LoadFrom(os.Args[1:], env.ToMap(os.Environ()))
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadFrom builds a Config from explicit arguments and environment.
func LoadFrom(args []string, environ map[string]string) (*Config, error) {
	var flagsConfig, envConfig Config

	if err := env.ParseWithOptions(&envConfig, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	fs := flag.NewFlagSet("splitplus", flag.ContinueOnError)
	registerFlags(fs, &flagsConfig)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func registerFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Addr, "a", ":8080", "Listen address in format host:port")
	fs.StringVar(&c.DBPath, "d", "./data/splitplus.db", "SQLite database path")
	fs.StringVar(&c.StoreBackend, "store", BackendSQLite, "Record store backend: sqlite or memory")
	fs.StringVar(&c.JWTSecret, "jwt-secret", "", "Secret used to sign session tokens")
	fs.DurationVar(&c.TokenTTL, "token-ttl", 24*time.Hour, "Session token lifetime")
	fs.DurationVar(&c.MirrorTimeout, "mirror-timeout", 10*time.Second, "Timeout for a single sheet mirror call")
	fs.StringVar(&c.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", "text", "Log format: text or json")
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		Addr:          defaultIfBlank(envConfig.Addr, flagsConfig.Addr),
		DBPath:        defaultIfBlank(envConfig.DBPath, flagsConfig.DBPath),
		StoreBackend:  defaultIfBlank(envConfig.StoreBackend, flagsConfig.StoreBackend),
		JWTSecret:     defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret),
		TokenTTL:      defaultIfZero(envConfig.TokenTTL, flagsConfig.TokenTTL),
		MirrorTimeout: defaultIfZero(envConfig.MirrorTimeout, flagsConfig.MirrorTimeout),
		LogLevel:      defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel),
		LogFormat:     defaultIfBlank(envConfig.LogFormat, flagsConfig.LogFormat),
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT secret is not set")
	}
	switch c.StoreBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			return errors.New("database path is not set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.MirrorTimeout <= 0 {
		return errors.New("mirror timeout must be positive")
	}
	return nil
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func defaultIfZero(value, defaultValue time.Duration) time.Duration {
	if value == 0 {
		return defaultValue
	}
	return value
}
