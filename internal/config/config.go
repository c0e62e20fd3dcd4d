// Package config provides configuration management for the civicd server and
// the civic CLI. It supports loading configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultListenAddr    = ":8080"
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = 1 * time.Second
	DefaultMinInterval   = 2 * time.Second
	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisChannel  = "civicai:issues"
	DefaultPresignExpiry = 15 * time.Minute
	DefaultConfigDir     = ".civicai"
	DefaultConfigFile    = "config.yaml"
)

// DatabaseConfig holds PostgreSQL connection settings for the issue store.
type DatabaseConfig struct {
	// Host is the database server hostname.
	Host string `yaml:"host,omitempty"`

	// Port is the database server port (default: 5432).
	Port int `yaml:"port,omitempty"`

	// Database is the database name.
	Database string `yaml:"database,omitempty"`

	// User is the database username.
	User string `yaml:"user,omitempty"`

	// Password is the database password. Prefer CIVIC_DB_PASSWORD over
	// storing it in the config file.
	Password string `yaml:"password,omitempty"`

	// SSLMode is the SSL connection mode (disable, require, verify-ca,
	// verify-full).
	SSLMode string `yaml:"sslmode,omitempty"`
}

// ConnectionString returns the PostgreSQL connection string for the issue
// store. Returns empty string if the database is not configured.
func (c *DatabaseConfig) ConnectionString() string {
	if !c.IsConfigured() {
		return ""
	}

	port := c.Port
	if port == 0 {
		port = 5432
	}

	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "require"
	}

	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s",
		c.Host, port, c.Database, c.User, sslmode)
	if c.Password != "" {
		connStr += fmt.Sprintf(" password=%s", c.Password)
	}
	return connStr
}

// IsConfigured returns true if the database has the required fields set.
func (c *DatabaseConfig) IsConfigured() bool {
	return c != nil && c.Host != "" && c.Database != "" && c.User != ""
}

// RedisConfig holds Redis settings for the realtime issue feed.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr,omitempty"`

	// Password is the Redis password, if any.
	Password string `yaml:"password,omitempty"`

	// Channel is the pub/sub channel issue events are published on.
	Channel string `yaml:"channel,omitempty"`
}

// S3Config holds object storage settings for issue photos.
type S3Config struct {
	// Bucket is the S3 bucket photos are stored in. Empty disables photo
	// storage.
	Bucket string `yaml:"bucket,omitempty"`

	// Region is the AWS region of the bucket.
	Region string `yaml:"region,omitempty"`

	// PresignExpiry is how long presigned photo URLs stay valid.
	PresignExpiry time.Duration `yaml:"-"`
}

// GeminiConfig holds classification client settings.
type GeminiConfig struct {
	// Model is the Gemini model name used for classification.
	Model string `yaml:"model,omitempty"`

	// MaxAttempts bounds the retry loop per classification call.
	MaxAttempts int `yaml:"max_attempts,omitempty"`

	// BaseDelay is the first retry backoff delay.
	BaseDelay time.Duration `yaml:"-"`

	// MinInterval is the process-wide spacing between model calls.
	MinInterval time.Duration `yaml:"-"`
}

// Config holds the full civicd/civic configuration.
type Config struct {
	// ListenAddr is the address the HTTP server binds to (host:port).
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	Database DatabaseConfig `yaml:"database,omitempty"`
	Redis    RedisConfig    `yaml:"redis,omitempty"`
	S3       S3Config       `yaml:"s3,omitempty"`
	Gemini   GeminiConfig   `yaml:"gemini,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		ListenAddr: DefaultListenAddr,
		Redis: RedisConfig{
			Addr:    DefaultRedisAddr,
			Channel: DefaultRedisChannel,
		},
		S3: S3Config{
			PresignExpiry: DefaultPresignExpiry,
		},
		Gemini: GeminiConfig{
			Model:       DefaultGeminiModel,
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
			MinInterval: DefaultMinInterval,
		},
	}
}

// Dir returns the configuration directory path.
// Uses $CIVIC_CONFIG_DIR if set, otherwise ~/.civicai
func Dir() (string, error) {
	if dir := os.Getenv("CIVIC_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// Path returns the full path to the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load loads the configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
//  1. Default values
//  2. Config file (~/.civicai/config.yaml or $CIVIC_CONFIG_DIR/config.yaml)
//  3. Environment variables (CIVIC_LISTEN_ADDR, CIVIC_DB_*, CIVIC_REDIS_*,
//     CIVIC_S3_*, CIVIC_GEMINI_MODEL, ...)
func Load() (*Config, error) {
	cfg := Default()

	configPath, err := Path()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadFromFile loads configuration from a YAML file. Durations are written
// as strings in the file and parsed here.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	type geminiFile struct {
		Model       string `yaml:"model"`
		MaxAttempts int    `yaml:"max_attempts"`
		BaseDelay   string `yaml:"base_delay"`
		MinInterval string `yaml:"min_interval"`
	}
	type s3File struct {
		Bucket        string `yaml:"bucket"`
		Region        string `yaml:"region"`
		PresignExpiry string `yaml:"presign_expiry"`
	}
	type configFile struct {
		ListenAddr string         `yaml:"listen_addr"`
		Debug      bool           `yaml:"debug"`
		Database   DatabaseConfig `yaml:"database"`
		Redis      RedisConfig    `yaml:"redis"`
		S3         s3File         `yaml:"s3"`
		Gemini     geminiFile     `yaml:"gemini"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.ListenAddr != "" {
		cfg.ListenAddr = fileCfg.ListenAddr
	}
	if fileCfg.Debug {
		cfg.Debug = true
	}
	if fileCfg.Database.Host != "" {
		cfg.Database = fileCfg.Database
	}
	if fileCfg.Redis.Addr != "" {
		cfg.Redis.Addr = fileCfg.Redis.Addr
	}
	if fileCfg.Redis.Password != "" {
		cfg.Redis.Password = fileCfg.Redis.Password
	}
	if fileCfg.Redis.Channel != "" {
		cfg.Redis.Channel = fileCfg.Redis.Channel
	}
	if fileCfg.S3.Bucket != "" {
		cfg.S3.Bucket = fileCfg.S3.Bucket
	}
	if fileCfg.S3.Region != "" {
		cfg.S3.Region = fileCfg.S3.Region
	}
	if fileCfg.S3.PresignExpiry != "" {
		d, err := time.ParseDuration(fileCfg.S3.PresignExpiry)
		if err != nil {
			return fmt.Errorf("invalid s3.presign_expiry: %w", err)
		}
		cfg.S3.PresignExpiry = d
	}
	if fileCfg.Gemini.Model != "" {
		cfg.Gemini.Model = fileCfg.Gemini.Model
	}
	if fileCfg.Gemini.MaxAttempts > 0 {
		cfg.Gemini.MaxAttempts = fileCfg.Gemini.MaxAttempts
	}
	if fileCfg.Gemini.BaseDelay != "" {
		d, err := time.ParseDuration(fileCfg.Gemini.BaseDelay)
		if err != nil {
			return fmt.Errorf("invalid gemini.base_delay: %w", err)
		}
		cfg.Gemini.BaseDelay = d
	}
	if fileCfg.Gemini.MinInterval != "" {
		d, err := time.ParseDuration(fileCfg.Gemini.MinInterval)
		if err != nil {
			return fmt.Errorf("invalid gemini.min_interval: %w", err)
		}
		cfg.Gemini.MinInterval = d
	}

	return nil
}

// loadFromEnv overlays configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("CIVIC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CIVIC_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	if v := os.Getenv("CIVIC_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("CIVIC_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = p
		}
	}
	if v := os.Getenv("CIVIC_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("CIVIC_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("CIVIC_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("CIVIC_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	if v := os.Getenv("CIVIC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CIVIC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CIVIC_REDIS_CHANNEL"); v != "" {
		cfg.Redis.Channel = v
	}

	if v := os.Getenv("CIVIC_S3_BUCKET"); v != "" {
		cfg.S3.Bucket = v
	}
	if v := os.Getenv("CIVIC_S3_REGION"); v != "" {
		cfg.S3.Region = v
	}

	if v := os.Getenv("CIVIC_GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("CIVIC_GEMINI_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Gemini.MaxAttempts = n
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.Gemini.MaxAttempts <= 0 {
		return fmt.Errorf("gemini.max_attempts must be positive, got %d", c.Gemini.MaxAttempts)
	}
	if c.Gemini.BaseDelay < 0 {
		return fmt.Errorf("gemini.base_delay must not be negative")
	}
	if c.Gemini.MinInterval < 0 {
		return fmt.Errorf("gemini.min_interval must not be negative")
	}
	return nil
}
