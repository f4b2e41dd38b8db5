// Package config loads cropwatch settings from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cropwatch/internal/decision"
)

// TelegramTokenEnv overrides telegram.token from the file.
const TelegramTokenEnv = "CROPWATCH_TELEGRAM_TOKEN"

const maxFileSize = 1 * 1024 * 1024

// Config is the root configuration. Fields omitted from the file keep
// the values from Default.
type Config struct {
	Model    ModelConfig         `json:"model"`
	Camera   CameraConfig        `json:"camera"`
	Loop     LoopConfig          `json:"loop"`
	Rules    decision.RuleConfig `json:"rules"`
	Serial   SerialConfig        `json:"serial"`
	Telegram TelegramConfig      `json:"telegram"`
	API      APIConfig           `json:"api"`
}

// ModelConfig locates the classifier and its class names.
type ModelConfig struct {
	Path    string   `json:"path"`
	Labels  []string `json:"labels,omitempty"` // overrides the sidecar when set
	DataDir string   `json:"data_dir"`         // label fallback: class subdirectories
}

// CameraConfig selects the frame source. ReplayDir, when set, replays
// still images instead of opening Device.
type CameraConfig struct {
	Device    string `json:"device"`
	ReplayDir string `json:"replay_dir,omitempty"`
}

// LoopConfig controls the capture cycle.
type LoopConfig struct {
	Delay        string  `json:"delay"` // duration string like "10s"
	FieldAreaSqm float64 `json:"field_area_sqm"`
}

// SerialConfig enables the serial report sink when Port is set.
type SerialConfig struct {
	Port     string `json:"port,omitempty"`
	BaudRate int    `json:"baud_rate"`
}

// TelegramConfig enables chat alerts when both Token and ChatID are set.
type TelegramConfig struct {
	Token          string `json:"token,omitempty"`
	ChatID         int64  `json:"chat_id,omitempty"`
	ActionableOnly bool   `json:"actionable_only"`
}

// APIConfig enables the status API when Listen is set.
type APIConfig struct {
	Listen string `json:"listen,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Path:    "models/best_wheat_model_balanced.onnx",
			DataDir: "data/wheat_split/train",
		},
		Camera: CameraConfig{Device: "0"},
		Loop: LoopConfig{
			Delay:        "10s",
			FieldAreaSqm: decision.DefaultFieldAreaSqm,
		},
		Rules:    decision.DefaultRuleConfig(),
		Serial:   SerialConfig{BaudRate: 9600},
		Telegram: TelegramConfig{ActionableOnly: true},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cropwatch", "config.json"), nil
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// Resolve loads the file at path when one is given, otherwise the per-user
// file if it exists, otherwise the defaults.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	def, err := DefaultPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	return LoadOptional(def)
}

// Save writes cfg as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv copies secrets from the environment.
func (c *Config) ApplyEnv() {
	if tok := os.Getenv(TelegramTokenEnv); tok != "" {
		c.Telegram.Token = tok
	}
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path must be set")
	}
	if c.Camera.Device == "" && c.Camera.ReplayDir == "" {
		return fmt.Errorf("camera.device or camera.replay_dir must be set")
	}
	d, err := time.ParseDuration(c.Loop.Delay)
	if err != nil {
		return fmt.Errorf("invalid loop.delay '%s': %w", c.Loop.Delay, err)
	}
	if d < 0 {
		return fmt.Errorf("loop.delay must be non-negative, got %s", d)
	}
	if !(c.Loop.FieldAreaSqm > 0) {
		return fmt.Errorf("loop.field_area_sqm must be positive, got %v", c.Loop.FieldAreaSqm)
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if c.Serial.Port != "" && c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	return nil
}

// Delay returns the parsed loop delay, falling back to 10s.
func (c *Config) Delay() time.Duration {
	d, err := time.ParseDuration(c.Loop.Delay)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// TelegramEnabled reports whether chat alerts are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != 0
}
