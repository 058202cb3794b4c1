// Package config holds the boot configuration (yaml file plus environment
// overrides) and the runtime settings map kept in the KV store.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// VenueConfig declares one venue to instantiate at boot.
type VenueConfig struct {
	ID       string `yaml:"id"`
	Exchange string `yaml:"exchange"`
	Kind     string `yaml:"kind"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Chain    string `yaml:"chain,omitempty"`
	Enabled  bool   `yaml:"enabled"`
}

// Config is the process boot configuration. Runtime tuning lives in the KV
// settings map, not here.
type Config struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	HTTP struct {
		ListenAddr     string        `yaml:"listen_addr"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxRetries     int           `yaml:"max_retries"`
		MaxConcurrency int           `yaml:"max_concurrency"`
		// InsecureHosts may skip TLS verification; venues with broken
		// CRL endpoints only.
		InsecureHosts []string `yaml:"insecure_hosts"`
	} `yaml:"http"`

	Venues []VenueConfig `yaml:"venues"`

	LogLevel string `yaml:"log_level"`
}

// Load reads the yaml file at path (optional) and applies environment
// overrides. A missing bot token is fatal for commands that dispatch alerts;
// that check happens at command start, not here.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxConcurrency <= 0 {
		cfg.HTTP.MaxConcurrency = 8
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{
		RedisAddr: "localhost:6379",
		LogLevel:  "info",
	}
	cfg.HTTP.ListenAddr = ":8087"
	cfg.HTTP.RequestTimeout = 10 * time.Second
	cfg.HTTP.MaxRetries = 2
	cfg.HTTP.MaxConcurrency = 8
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HTTP_LISTEN_ADDR"); v != "" {
		cfg.HTTP.ListenAddr = v
	}
}
