package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mira.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "gemini:\n  api_key: test-key\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Gemini.APIKey != "test-key" {
		t.Errorf("api_key = %q, want %q", cfg.Gemini.APIKey, "test-key")
	}
	if cfg.Gemini.Model != "gemini-1.5-pro-latest" {
		t.Errorf("default model = %q, want gemini-1.5-pro-latest", cfg.Gemini.Model)
	}
	if cfg.Webhook.Username != "Mira" {
		t.Errorf("default webhook username = %q, want Mira", cfg.Webhook.Username)
	}
	if cfg.Rooms["bedroom"] != 210 {
		t.Errorf("default bedroom zone = %d, want 210", cfg.Rooms["bedroom"])
	}
	if cfg.Session.Backend != "file" {
		t.Errorf("default session backend = %q, want file", cfg.Session.Backend)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("MIRA_TEST_KEY", "from-env")
	path := writeConfig(t, "gemini:\n  api_key: ${MIRA_TEST_KEY}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gemini.APIKey != "from-env" {
		t.Errorf("api_key = %q, want env-expanded value", cfg.Gemini.APIKey)
	}
}

func TestLoadOverridesRooms(t *testing.T) {
	path := writeConfig(t, `
gemini:
  api_key: k
rooms:
  office: 240
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Rooms["office"] != 240 {
		t.Errorf("office zone = %d, want 240", cfg.Rooms["office"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "gemini: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("FindConfig() should fail for a missing explicit path")
	}
}

func TestFindConfigExplicit(t *testing.T) {
	path := writeConfig(t, "gemini:\n  api_key: k\n")
	found, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig() error: %v", err)
	}
	if found != path {
		t.Errorf("FindConfig() = %q, want %q", found, path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with key", func(c *Config) { c.Gemini.APIKey = "k" }, false},
		{"missing api key", func(c *Config) {}, true},
		{"bad backend", func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Session.Backend = "dynamo"
		}, true},
		{"redis without addr", func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Session.Backend = "redis"
		}, true},
		{"redis with addr", func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Session.Backend = "redis"
			c.Redis.Addr = "localhost:6379"
		}, false},
		{"negative history limit", func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Session.HistoryLimit = -1
		}, true},
		{"empty rooms", func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Rooms = nil
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"  debug  ", slog.LevelDebug, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
