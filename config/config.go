// Package config loads client settings from .env, an optional YAML file and
// LIBRARY_* environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	App     AppConfig     `yaml:"app"`
	Session SessionConfig `yaml:"session"`
}

type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type AppConfig struct {
	Environment string `yaml:"env"` // development, production
	LogLevel    string `yaml:"log_level"`
}

type SessionConfig struct {
	Backend       string        `yaml:"backend"` // sqlite, redis, memory
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
	// Key, when set, encrypts stored values.
	Key string `yaml:"key"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:     "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		App: AppConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		Session: SessionConfig{
			Backend:   BackendSQLite,
			Path:      filepath.Join(homeDir(), ".library", "session.db"),
			RedisAddr: "localhost:6379",
			RedisTTL:  24 * time.Hour,
		},
	}
}

// Load reads configuration. path names a YAML file; when empty,
// LIBRARY_CONFIG and then $HOME/.library/config.yaml are tried, and a
// missing default file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("LIBRARY_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = filepath.Join(homeDir(), ".library", "config.yaml")
	}

	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.API.URL = getEnv("LIBRARY_API_URL", c.API.URL)
	c.API.Timeout = getEnvDuration("LIBRARY_TIMEOUT", c.API.Timeout)
	c.App.Environment = getEnv("LIBRARY_ENV", c.App.Environment)
	c.App.LogLevel = getEnv("LIBRARY_LOG_LEVEL", c.App.LogLevel)
	c.Session.Backend = getEnv("LIBRARY_SESSION_BACKEND", c.Session.Backend)
	c.Session.Path = getEnv("LIBRARY_SESSION_PATH", c.Session.Path)
	c.Session.RedisAddr = getEnv("LIBRARY_REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = getEnv("LIBRARY_REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.RedisDB = getEnvInt("LIBRARY_REDIS_DB", c.Session.RedisDB)
	c.Session.Key = getEnv("LIBRARY_SESSION_KEY", c.Session.Key)
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return errors.New("api url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.API.Timeout)
	}
	switch c.Session.Backend {
	case BackendSQLite:
		if c.Session.Path == "" {
			return errors.New("session path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("redis address is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	return nil
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
