package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropwatch/internal/decision"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.Delay())
	assert.Equal(t, decision.DefaultFieldAreaSqm, cfg.Loop.FieldAreaSqm)
	assert.Equal(t, "0", cfg.Camera.Device)
	if diff := cmp.Diff(decision.DefaultRuleConfig(), cfg.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	t.Setenv(TelegramTokenEnv, "")
	path := writeConfig(t, `{
  "loop": {"delay": "3s"},
  "rules": {"min_confidence": 0.6},
  "serial": {"port": "/dev/ttyUSB0"}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Delay())
	assert.Equal(t, decision.DefaultFieldAreaSqm, cfg.Loop.FieldAreaSqm)
	assert.InDelta(t, 0.6, cfg.Rules.MinConfidence, 1e-12)
	assert.InDelta(t, 400, cfg.Rules.BaseMlPer1000Sqm, 1e-12)
	assert.Equal(t, []string{"Aphid", "Mite", "Stem fly"}, cfg.Rules.PestClasses)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, "models/best_wheat_model_balanced.onnx", cfg.Model.Path)
}

func TestLoadEnvToken(t *testing.T) {
	t.Setenv(TelegramTokenEnv, "secret")
	cfg, err := Load(writeConfig(t, `{"telegram": {"chat_id": 12345}}`))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Telegram.Token)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"loop": `},
		{"bad delay", `{"loop": {"delay": "soon"}}`},
		{"negative delay", `{"loop": {"delay": "-1s"}}`},
		{"zero area", `{"loop": {"field_area_sqm": 0}}`},
		{"bad threshold", `{"rules": {"min_confidence": 2}}`},
		{"no model", `{"model": {"path": ""}}`},
		{"no camera", `{"camera": {"device": ""}}`},
		{"bad baud", `{"serial": {"port": "/dev/ttyS0", "baud_rate": 0}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorContains(t, err, ".json")
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Default().Model, cfg.Model)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(TelegramTokenEnv, "")
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Camera.ReplayDir = "/srv/field-images"
	cfg.API.Listen = ":8080"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("cropwatch", "config.json"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}

func TestResolveUsesUserConfig(t *testing.T) {
	t.Setenv(TelegramTokenEnv, "")
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, cfg.Rules.MinConfidence, 1e-12)

	path, err := DefaultPath()
	require.NoError(t, err)
	custom := Default()
	custom.Rules.MinConfidence = 0.5
	custom.Rules.PestMultiplier = 3
	require.NoError(t, custom.Save(path))

	cfg, err = Resolve("")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cfg.Rules.MinConfidence, 1e-12)
	assert.InDelta(t, 3.0, cfg.Rules.PestMultiplier, 1e-12)

	explicit := writeConfig(t, `{"rules": {"min_confidence": 0.9}}`)
	cfg, err = Resolve(explicit)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, cfg.Rules.MinConfidence, 1e-12)
}
