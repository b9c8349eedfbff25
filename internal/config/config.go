// Package config loads server settings from an optional yaml file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		GinMode      string   `yaml:"gin_mode"`
		MaxBodyBytes int64    `yaml:"max_body_bytes"`
		CORSOrigins  []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		Enabled  bool   `yaml:"enabled"`
		URL      string `yaml:"url"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Chat struct {
		SessionTTL time.Duration `yaml:"session_ttl"`
		MaxHistory int           `yaml:"max_history"`
	} `yaml:"chat"`

	Gemini struct {
		APIKey     string        `yaml:"api_key"`
		Model      string        `yaml:"model"`
		BaseURL    string        `yaml:"base_url"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries uint64        `yaml:"max_retries"`
	} `yaml:"gemini"`

	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.GinMode = "release"
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	cfg.Database.MaxConns = 10
	cfg.Redis.Address = "localhost:6379"
	cfg.Chat.SessionTTL = 24 * time.Hour
	cfg.Chat.MaxHistory = 50
	cfg.Gemini.Model = "gemini-2.0-flash"
	cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	cfg.Gemini.Timeout = 30 * time.Second
	cfg.Gemini.MaxRetries = 2
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	return cfg
}

// Load reads path (when it exists) over the defaults and then applies
// environment overrides. An empty path falls back to CONFIG_FILE, then
// config.yaml.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = getEnv("CONFIG_FILE", "config.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.GinMode, "GIN_MODE")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	setString(&c.Database.URL, "DATABASE_URL")
	setBool(&c.Database.Enabled, "ENABLE_DB")

	setString(&c.Redis.Address, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setBool(&c.Redis.Enabled, "ENABLE_REDIS")

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Gemini.BaseURL, "GEMINI_BASE_URL")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Log.Output, "LOG_OUTPUT")
	setString(&c.Log.FilePath, "LOG_FILE")

	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		c.Server.MaxBodyBytes = n
	}
	if v := os.Getenv("CHAT_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHAT_SESSION_TTL: %w", err)
		}
		c.Chat.SessionTTL = d
	}
	if v := os.Getenv("CHAT_MAX_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHAT_MAX_HISTORY: %w", err)
		}
		c.Chat.MaxHistory = n
	}
	return nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("REDIS_ADDR is required when ENABLE_REDIS=true")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body size must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Chat.MaxHistory <= 0 {
		return fmt.Errorf("chat max history must be positive, got %d", c.Chat.MaxHistory)
	}
	if c.Chat.SessionTTL <= 0 {
		return fmt.Errorf("chat session ttl must be positive, got %s", c.Chat.SessionTTL)
	}
	return nil
}

// LLMEnabled reports whether chat replies go to Gemini first.
func (c *Config) LLMEnabled() bool {
	return c.Gemini.APIKey != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
