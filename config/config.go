// Package config loads operational (non-determinism-affecting) engine
// tunables from a YAML file, grounded on niceyeti-tabular's scoped-viper
// FromYaml pattern: one viper.Viper instance per file, not the package
// singleton, so multiple scenarios can be loaded in one process.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// EngineConfig holds operational knobs. Anything that would affect
// mid-run determinism (RNG seed, traffic-spec path, tick dt) is read once at
// setup and is deliberately absent here; only values safe to hot-reload
// live in this struct.
type EngineConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	ServerAddr     string `mapstructure:"server_addr"`
	EndlessTraffic bool   `mapstructure:"endless_traffic"`
	PlaybackSpeed  float64 `mapstructure:"playback_speed"`
}

// DefaultEngineConfig gives every field a sane standalone value so a host
// can run without a config file.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LogLevel:      "info",
		MetricsAddr:   ":9090",
		ServerAddr:    ":8080",
		PlaybackSpeed: 1.0,
	}
}

// Load reads and unmarshals a YAML config file at path.
func Load(path string) (*EngineConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	cfg := DefaultEngineConfig()
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
