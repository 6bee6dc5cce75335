// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// ErrMissingMongoURI is returned when no document store connection string is configured.
var ErrMissingMongoURI = errors.New("MONGO_URI is required")

const defaultDatabase = "blog"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	MongoURI            string        `mapstructure:"MONGO_URI"`
	MongoDB             string        `mapstructure:"MONGO_DB"`
	MongoConnectTimeout time.Duration `mapstructure:"MONGO_CONNECT_TIMEOUT"`
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"APP_ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	AllowedOrigins      string        `mapstructure:"ALLOWED_ORIGINS"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	CreateRateLimit     int           `mapstructure:"CREATE_RATE_LIMIT"`
	GlobalRateLimit     int           `mapstructure:"GLOBAL_RATE_LIMIT"`
	TracingEnabled      bool          `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string        `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio  float64       `mapstructure:"TRACING_SAMPLE_RATIO"`
}

var defaults = map[string]any{
	"MONGO_URI":             "",
	"MONGO_DB":              "",
	"MONGO_CONNECT_TIMEOUT": "10s",
	"PORT":                  "5000",
	"APP_ENV":               "development",
	"LOG_LEVEL":             "info",
	"ALLOWED_ORIGINS":       "*",
	"REDIS_URL":             "",
	"CREATE_RATE_LIMIT":     10,
	"GLOBAL_RATE_LIMIT":     300,
	"TRACING_ENABLED":       false,
	"TRACING_EXPORTER":      "stdout",
	"OTLP_ENDPOINT":         "localhost:4318",
	"TRACING_SAMPLE_RATIO":  1.0,
}

// LoadConfig loads configuration from .env, an optional config.yml and the environment.
// Environment variables win over the file, the file wins over defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env")
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.MongoURI = strings.TrimSpace(c.MongoURI)
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
	if c.MongoDB == "" {
		c.MongoDB = DatabaseFromURI(c.MongoURI)
	}
}

// Validate ensures that required configuration values are present.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return ErrMissingMongoURI
	}
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.MongoConnectTimeout <= 0 {
		return errors.New("MONGO_CONNECT_TIMEOUT must be positive")
	}
	if c.CreateRateLimit < 0 || c.GlobalRateLimit < 0 {
		return errors.New("rate limits must not be negative")
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	if c.IsProduction() && c.AllowedOrigins == "*" {
		slog.Warn("ALLOWED_ORIGINS is set to '*' in production")
	}

	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// DatabaseFromURI returns the database named in a Mongo connection string,
// or the default database when the URI names none or cannot be parsed.
func DatabaseFromURI(uri string) string {
	if uri == "" {
		return defaultDatabase
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}
