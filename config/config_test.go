package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 1.0, cfg.PlaybackSpeed)
	assert.False(t, cfg.EndlessTraffic)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	content := "log_level: debug\nplayback_speed: 2.5\nendless_traffic: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.InDelta(t, 2.5, cfg.PlaybackSpeed, 1e-9)
	assert.True(t, cfg.EndlessTraffic)
	assert.Equal(t, ":9090", cfg.MetricsAddr, "unset fields keep the default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
