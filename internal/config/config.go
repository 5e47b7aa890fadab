// Package config handles Mira configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./mira.yaml, ~/.config/mira/mira.yaml, /etc/mira/mira.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"mira.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mira", "mira.yaml"))
	}

	paths = append(paths, "/etc/mira/mira.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Mira configuration.
type Config struct {
	Gemini   GeminiConfig   `yaml:"gemini"`
	Weather  WeatherConfig  `yaml:"weather"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
	Speech   SpeechConfig   `yaml:"speech"`
	Camera   CameraConfig   `yaml:"camera"`
	Timers   TimersConfig   `yaml:"timers"`
	Rooms    map[string]int `yaml:"rooms"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
}

// GeminiConfig defines the generative-language backend settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	// Model is the generateContent model name (default: gemini-1.5-pro-latest).
	Model string `yaml:"model"`
	// CaptionModel is used for webcam image captioning
	// (default: gemini-1.5-flash).
	CaptionModel string `yaml:"caption_model"`
	BaseURL      string `yaml:"base_url"`
	// SystemPromptFile points at a text file with the assistant persona
	// and the structured-reply schema instructions.
	SystemPromptFile string `yaml:"system_prompt_file"`
}

// WeatherConfig defines the OpenWeatherMap lookup settings.
type WeatherConfig struct {
	APIKey      string `yaml:"api_key"`
	City        string `yaml:"city"`
	CountryCode string `yaml:"country_code"`
}

// WebhookConfig defines the outbound notification target.
type WebhookConfig struct {
	URL string `yaml:"url"`
	// Username is the display name attached to delivered messages
	// (default: "Mira").
	Username string `yaml:"username"`
}

// MQTTConfig defines the device-control broker connection.
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // e.g. mqtt://broker.local:1883
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
	// CommandTopic receives zone commands (default: mira/lights/set).
	CommandTopic string `yaml:"command_topic"`
}

// Enabled reports whether a broker is configured at all. Device toggles
// are logged but not delivered when MQTT is disabled.
func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// SessionConfig defines conversation session settings.
type SessionConfig struct {
	// Key pins the session to a fixed identifier. Empty means a fresh
	// key is derived from the session start time.
	Key string `yaml:"key"`
	// Backend selects the history store: "file" (default) or "redis".
	Backend string `yaml:"backend"`
	// HistoryLimit caps the number of retained turns. Zero keeps the
	// full history.
	HistoryLimit int `yaml:"history_limit"`
}

// RedisConfig defines the optional redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SpeechConfig defines speech input/output settings.
type SpeechConfig struct {
	// Language for synthesized speech (default: "en").
	Language string `yaml:"language"`
	// PlayerCmd is the external program used to render speech, invoked
	// with the text appended as its final argument (e.g. "espeak").
	// Empty means spoken output goes to the console only.
	PlayerCmd string `yaml:"player_cmd"`
}

// CameraConfig defines the webcam situational-context provider.
type CameraConfig struct {
	Enabled bool `yaml:"enabled"`
	// SnapshotCmd captures one frame, invoked with the destination
	// image path appended as its final argument (e.g. "fswebcam -r 1280x720").
	SnapshotCmd string `yaml:"snapshot_cmd"`
}

// TimersConfig defines timer-expiry behavior.
type TimersConfig struct {
	// Announcement is spoken when a timer fires (default: "Time's up!").
	Announcement string `yaml:"announcement"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so secrets can live outside the file.
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with all defaults applied. Rooms
// carry the stock zone mapping; everything else that matters (the
// Gemini API key) must come from the config file.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model:        "gemini-1.5-pro-latest",
			CaptionModel: "gemini-1.5-flash",
		},
		Webhook: WebhookConfig{Username: "Mira"},
		MQTT:    MQTTConfig{CommandTopic: "mira/lights/set"},
		Session: SessionConfig{Backend: "file"},
		Speech:  SpeechConfig{Language: "en"},
		Timers:  TimersConfig{Announcement: "Time's up!"},
		Rooms: map[string]int{
			"bedroom":    210,
			"livingroom": 220,
			"kitchen":    230,
		},
		DataDir: ".",
	}
}

// Validate checks that the configuration can support a turn cycle at
// all. Anything it rejects is a startup-fatal condition; per-turn
// collaborator failures are handled at runtime instead.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required")
	}
	switch c.Session.Backend {
	case "", "file", "redis":
	default:
		return fmt.Errorf("session.backend %q is not supported (valid: file, redis)", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when session.backend is redis")
	}
	if c.Session.HistoryLimit < 0 {
		return fmt.Errorf("session.history_limit must be >= 0")
	}
	if len(c.Rooms) == 0 {
		return fmt.Errorf("rooms mapping must not be empty")
	}
	return nil
}
