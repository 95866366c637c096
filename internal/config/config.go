// Package config loads syllabus settings from an optional YAML file and
// SYLLABUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/syllabus/dynamo"
	"github.com/jacentio/syllabus/store"
)

// Config holds all application configuration.
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development staging production"`

	// AWS configuration
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	Profile  string `yaml:"profile"`

	// Store configuration
	TablePrefix    string `yaml:"tablePrefix"`
	FallbackPolicy string `yaml:"fallbackPolicy" validate:"omitempty,oneof=never missing-credentials any-transport-error"`
	DisableScan    bool   `yaml:"disableScan"`
	PageSize       int    `yaml:"pageSize" validate:"gte=0,lte=1000"`
	MaxPageSize    int    `yaml:"maxPageSize" validate:"gte=0,lte=1000"`

	// Offline skips the live store and serves the fallback dataset only.
	Offline bool `yaml:"offline"`

	// SchemaFile replaces the built-in entity descriptors.
	SchemaFile string `yaml:"schemaFile"`

	// SeedFile replaces the built-in fallback dataset.
	SeedFile string `yaml:"seedFile"`

	// Logging
	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	// Metrics
	MetricsNamespace string `yaml:"metricsNamespace" validate:"required"`
}

var validate = validator.New()

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Environment:      "development",
		PageSize:         50,
		MaxPageSize:      500,
		LogLevel:         "info",
		MetricsNamespace: "syllabus",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if path is not empty), then environment variables, and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("SYLLABUS_ENVIRONMENT", c.Environment)
	c.Region = getEnv("SYLLABUS_REGION", getEnv("AWS_REGION", c.Region))
	c.Endpoint = getEnv("SYLLABUS_DYNAMODB_ENDPOINT", c.Endpoint)
	c.Profile = getEnv("SYLLABUS_PROFILE", getEnv("AWS_PROFILE", c.Profile))
	c.TablePrefix = getEnv("SYLLABUS_TABLE_PREFIX", c.TablePrefix)
	c.FallbackPolicy = getEnv("SYLLABUS_FALLBACK_POLICY", c.FallbackPolicy)
	c.DisableScan = getEnvBool("SYLLABUS_DISABLE_SCAN", c.DisableScan)
	c.PageSize = getEnvInt("SYLLABUS_PAGE_SIZE", c.PageSize)
	c.MaxPageSize = getEnvInt("SYLLABUS_MAX_PAGE_SIZE", c.MaxPageSize)
	c.Offline = getEnvBool("SYLLABUS_OFFLINE", c.Offline)
	c.SchemaFile = getEnv("SYLLABUS_SCHEMA_FILE", c.SchemaFile)
	c.SeedFile = getEnv("SYLLABUS_SEED_FILE", c.SeedFile)
	c.LogLevel = getEnv("SYLLABUS_LOG_LEVEL", c.LogLevel)
	c.MetricsNamespace = getEnv("SYLLABUS_METRICS_NAMESPACE", c.MetricsNamespace)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.MaxPageSize > 0 && c.PageSize > c.MaxPageSize {
		return fmt.Errorf("invalid config: pageSize %d exceeds maxPageSize %d", c.PageSize, c.MaxPageSize)
	}
	return nil
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// StoreConfig returns the store settings.
func (c *Config) StoreConfig() (store.Config, error) {
	policy, err := store.ParseFallbackPolicy(c.FallbackPolicy)
	if err != nil {
		return store.Config{}, err
	}
	sc := store.DefaultConfig()
	sc.TablePrefix = c.TablePrefix
	sc.FallbackPolicy = policy
	sc.DisableScan = c.DisableScan
	if c.PageSize > 0 {
		sc.DefaultPageSize = int32(c.PageSize)
	}
	if c.MaxPageSize > 0 {
		sc.MaxPageSize = int32(c.MaxPageSize)
	}
	return sc, nil
}

// ClientOptions returns the DynamoDB client settings.
func (c *Config) ClientOptions() dynamo.ClientOptions {
	return dynamo.ClientOptions{
		Region:   c.Region,
		Endpoint: c.Endpoint,
		Profile:  c.Profile,
	}
}

// NewLogger builds a production logger in production and a development
// logger everywhere else, at the given level.
func NewLogger(level, environment string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zc zap.Config
	if environment == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
