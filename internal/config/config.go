package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no explicit path is given. A missing file is not an error.
const DefaultConfigPath = "config.yaml"

// Config holds the application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database" envPrefix:"SLIDES_DB_"`
	Log        LogConfig        `yaml:"log" envPrefix:"SLIDES_LOG_"`
	Lock       LockConfig       `yaml:"lock" envPrefix:"SLIDES_LOCK_"`
	Notify     NotifyConfig     `yaml:"notify" envPrefix:"SLIDES_NOTIFY_"`
	Migrations MigrationsConfig `yaml:"migrations" envPrefix:"SLIDES_MIGRATIONS_"`
}

// DatabaseConfig points at the single database the application and migrations share.
type DatabaseConfig struct {
	Type            string        `yaml:"type" env:"TYPE"` // sqlite, postgresql, mysql
	DSN             string        `yaml:"dsn" env:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	// SlowThreshold is the duration above which the ORM logs a query as slow.
	SlowThreshold time.Duration `yaml:"slow_threshold" env:"SLOW_THRESHOLD"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // text, json
}

// LockConfig configures the cross-process migration lock.
type LockConfig struct {
	Backend     string        `yaml:"backend" env:"BACKEND"` // none, etcd
	Endpoints   []string      `yaml:"endpoints" env:"ENDPOINTS" envSeparator:","`
	Username    string        `yaml:"username" env:"USERNAME"`
	Password    string        `yaml:"password" env:"PASSWORD"`
	Prefix      string        `yaml:"prefix" env:"PREFIX"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	TTL         time.Duration `yaml:"ttl" env:"TTL"`
}

// NotifyConfig configures where migration results are published.
type NotifyConfig struct {
	Type         string   `yaml:"type" env:"TYPE"` // none, kafka, pulsar
	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"KAFKA_TOPIC"`
	PulsarURL    string   `yaml:"pulsar_url" env:"PULSAR_URL"`
	PulsarTopic  string   `yaml:"pulsar_topic" env:"PULSAR_TOPIC"`
}

// MigrationsConfig controls where migrations come from and whether runs are recorded.
type MigrationsConfig struct {
	// Dir holds extra {backend}/{connection}/{version}_{name}.up.sql scripts loaded at runtime.
	Dir     string `yaml:"dir" env:"DIR"`
	History bool   `yaml:"history" env:"HISTORY"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:            "sqlite",
			DSN:             "./data/ai_slides.db",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
			SlowThreshold:   200 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Lock: LockConfig{
			Backend:     "none",
			Endpoints:   []string{"localhost:2379"},
			Prefix:      "/ai-slides/migrations",
			DialTimeout: 5 * time.Second,
			TTL:         30 * time.Second,
		},
		Notify: NotifyConfig{
			Type:         "none",
			KafkaBrokers: []string{"localhost:9092"},
			KafkaTopic:   "ai-slides-migrations",
			PulsarURL:    "pulsar://localhost:6650",
			PulsarTopic:  "ai-slides-migrations",
		},
		Migrations: MigrationsConfig{
			History: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an optional .env file
// and SLIDES_* environment variables, in that order of increasing priority.
//
// An empty path falls back to SLIDES_CONFIG and then DefaultConfigPath; only an explicitly
// requested file has to exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = getEnvOrDefault("SLIDES_CONFIG", "")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigPath
	}

	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	c.Database.Type = NormalizeDatabaseType(c.Database.Type)
	switch c.Database.Type {
	case "sqlite", "postgresql", "mysql":
	default:
		return fmt.Errorf("unsupported database type: %s (supported: sqlite, postgresql, mysql)", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	switch strings.ToLower(c.Lock.Backend) {
	case "", "none":
	case "etcd":
		if len(c.Lock.Endpoints) == 0 {
			return fmt.Errorf("etcd lock requires at least one endpoint")
		}
	default:
		return fmt.Errorf("unsupported lock backend: %s (supported: none, etcd)", c.Lock.Backend)
	}

	switch strings.ToLower(c.Notify.Type) {
	case "", "none", "kafka", "pulsar":
	default:
		return fmt.Errorf("unsupported notify type: %s (supported: none, kafka, pulsar)", c.Notify.Type)
	}
	return nil
}

// NormalizeDatabaseType folds driver aliases onto the canonical names.
func NormalizeDatabaseType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "postgres", "postgresql", "pg":
		return "postgresql"
	case "mysql", "mariadb":
		return "mysql"
	default:
		return strings.ToLower(strings.TrimSpace(t))
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
