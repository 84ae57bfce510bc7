package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	  "telegram": {"token": "123:abc"},
	  "redforester": {"base_url": "https://rf.example.com", "request_timeout_seconds": 5},
	  "database": {"path": "/tmp/keeper.db"},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("RFKEEPER_CONFIG", path)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("RFKEEPER_DB_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("telegram.token = %q, want %q", cfg.Telegram.Token, "123:abc")
	}
	if cfg.RedForester.BaseURL != "https://rf.example.com" {
		t.Fatalf("redforester.base_url = %q, want %q", cfg.RedForester.BaseURL, "https://rf.example.com")
	}
	if cfg.RedForester.RequestTimeoutSeconds != 5 {
		t.Fatalf("redforester.request_timeout_seconds = %d, want 5", cfg.RedForester.RequestTimeoutSeconds)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	t.Setenv("RFKEEPER_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestLoadConfigEnvOnly(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("RFKEEPER_CONFIG", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "999:env")
	t.Setenv("RFKEEPER_DB_PATH", filepath.Join(dir, "keeper.db"))

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Telegram.Token != "999:env" {
		t.Fatalf("telegram.token = %q, want %q", cfg.Telegram.Token, "999:env")
	}
	if cfg.RedForester.BaseURL != defaultBaseURL {
		t.Fatalf("redforester.base_url = %q, want default %q", cfg.RedForester.BaseURL, defaultBaseURL)
	}
	if cfg.Database.Path != filepath.Join(dir, "keeper.db") {
		t.Fatalf("database.path = %q", cfg.Database.Path)
	}
}

func TestLoadConfigMissingToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RFKEEPER_CONFIG", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing telegram token")
	}
}
