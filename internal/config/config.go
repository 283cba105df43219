// Package config loads the server configuration from a YAML file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/paylens/paylens/internal/model"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Scan    ScanConfig    `mapstructure:"scan"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type ScanConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	GlobalTimeout   time.Duration `mapstructure:"global_timeout"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	UserAgent       string        `mapstructure:"user_agent"`
	RegistryURL     string        `mapstructure:"registry_url"`
}

// Load reads the YAML file at configPath. An empty path skips the file
// and returns defaults only.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config failed: %w", err)
		}
	}

	if cfg.App.Name == "" {
		cfg.App.Name = "paylens"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "paylens.db"
	}

	return cfg, nil
}

// ScanConfig merges the file's scan section over the production defaults.
func (c *Config) ScanConfig() model.ScanConfig {
	return model.ScanConfig{
		RequestTimeout:  c.Scan.RequestTimeout,
		ProbeTimeout:    c.Scan.ProbeTimeout,
		GlobalTimeout:   c.Scan.GlobalTimeout,
		FreshnessWindow: c.Scan.FreshnessWindow,
		UserAgent:       c.Scan.UserAgent,
		RegistryURL:     c.Scan.RegistryURL,
	}.Merge(model.DefaultScanConfig())
}
