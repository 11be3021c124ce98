// Package config loads the service configuration from the environment.
//
// Variables are read with the ISSUES_ prefix. The first underscore after the
// prefix separates the section from the key, so ISSUES_SERVER_PORT maps to
// server.port and ISSUES_DATABASE_MONGO_URI maps to database.mongo_uri.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ISSUES_"

// Storage backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Env      string         `koanf:"env" validate:"required"`
	Server   ServerConfig   `koanf:"server" validate:"required"`
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Log      LogConfig      `koanf:"log" validate:"required"`
}

// ServerConfig holds HTTP server settings. Timeouts are in seconds.
type ServerConfig struct {
	Port            string `koanf:"port" validate:"required"`
	ReadTimeout     int    `koanf:"read_timeout" validate:"min=1"`
	WriteTimeout    int    `koanf:"write_timeout" validate:"min=1"`
	IdleTimeout     int    `koanf:"idle_timeout" validate:"min=1"`
	ShutdownTimeout int    `koanf:"shutdown_timeout" validate:"min=1"`
}

type DatabaseConfig struct {
	Backend        string `koanf:"backend" validate:"required,oneof=mongo postgres memory"`
	MongoURI       string `koanf:"mongo_uri" validate:"required_if=Backend mongo"`
	MongoDatabase  string `koanf:"mongo_database" validate:"required_if=Backend mongo"`
	PostgresURL    string `koanf:"postgres_url" validate:"required_if=Backend postgres"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
	ConnectTimeout int    `koanf:"connect_timeout" validate:"min=1"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"required,oneof=console json"`
}

var defaults = map[string]any{
	"env":                      "development",
	"server.port":              "8080",
	"server.read_timeout":      10,
	"server.write_timeout":     10,
	"server.idle_timeout":      60,
	"server.shutdown_timeout":  15,
	"database.backend":         BackendMongo,
	"database.mongo_uri":       "mongodb://localhost:27017",
	"database.mongo_database":  "issuetracker",
	"database.auto_migrate":    true,
	"database.connect_timeout": 10,
	"log.level":                "info",
	"log.format":               "console",
}

// Load reads .env (if any) and the process environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// envKey turns ISSUES_DATABASE_MONGO_URI into database.mongo_uri.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

func (d DatabaseConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(d.ConnectTimeout) * time.Second
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (s ServerConfig) ReadTimeoutDuration() time.Duration     { return seconds(s.ReadTimeout) }
func (s ServerConfig) WriteTimeoutDuration() time.Duration    { return seconds(s.WriteTimeout) }
func (s ServerConfig) IdleTimeoutDuration() time.Duration     { return seconds(s.IdleTimeout) }
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration { return seconds(s.ShutdownTimeout) }
