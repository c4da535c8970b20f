// Package config loads the settings that have no reason to be CLI flags:
// the node-data root directory, the L2 depth, an ingest timeout, and the
// metrics listen address. Loaded from an optional YAML file with HLBOOK_* env
// var overrides, following the viper pattern in
// 0xtitan6-polymarket-mm/internal/config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the file/env-sourced settings overlay. CLI flags (address,
// port, include-spot-unsafe, websocket-compression-level) are parsed
// separately in cmd/orderbook-server, per spec §6.
type Config struct {
	DataRoot      string        `mapstructure:"data_root"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	L2Depth       int           `mapstructure:"l2_depth"`
	IngestTimeout time.Duration `mapstructure:"ingest_timeout"`
}

// Defaults returns the configuration used when no file is supplied.
func Defaults() Config {
	return Config{
		DataRoot:      ".",
		MetricsAddr:   ":9090",
		L2Depth:       20,
		IngestTimeout: 30 * time.Second,
	}
}

// Load reads path (if non-empty) as a YAML config file overlaid on
// Defaults, with HLBOOK_* environment variables taking precedence over
// both.
func Load(path string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("HLBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("data_root", cfg.DataRoot)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("l2_depth", cfg.L2Depth)
	v.SetDefault("ingest_timeout", cfg.IngestTimeout)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("config: data_root is required")
	}
	if c.L2Depth < 0 {
		return fmt.Errorf("config: l2_depth must be >= 0")
	}
	return nil
}
