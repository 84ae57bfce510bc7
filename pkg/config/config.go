package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	envDatabasePath     = "RFKEEPER_DB_PATH"
	envBaseURL          = "RFKEEPER_RF_BASE_URL"
)

const (
	defaultBaseURL        = "https://app.redforester.com"
	defaultRequestTimeout = 30
	defaultDatabasePath   = "rfkeeper.db"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	RedForester RedForesterConfig `json:"redforester"`
	Database    DatabaseConfig    `json:"database"`
	Logging     LoggingConfig     `json:"logging,omitempty"`
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token string `json:"token"`
}

// RedForesterConfig configures the remote node-graph API client.
type RedForesterConfig struct {
	BaseURL               string `json:"base_url"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// DatabaseConfig configures the SQLite session store.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment
// overrides and defaults.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return nil, fmt.Errorf("telegram.token is required (set it in config or %s)", envTelegramBotToken)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Telegram.Token = token
	}
	if path := strings.TrimSpace(os.Getenv(envDatabasePath)); path != "" {
		cfg.Database.Path = path
	}
	if baseURL := strings.TrimSpace(os.Getenv(envBaseURL)); baseURL != "" {
		cfg.RedForester.BaseURL = baseURL
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RedForester.BaseURL) == "" {
		cfg.RedForester.BaseURL = defaultBaseURL
	}
	if cfg.RedForester.RequestTimeoutSeconds <= 0 {
		cfg.RedForester.RequestTimeoutSeconds = defaultRequestTimeout
	}
	if strings.TrimSpace(cfg.Database.Path) == "" {
		cfg.Database.Path = defaultDatabasePath
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is RFKEEPER_CONFIG first, then cwd-local fallback paths. A
// missing file is not an error: the whole config can come from env vars.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("RFKEEPER_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("RFKEEPER_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
