/*
Package config
File: config.go
Description:
    Server configuration, loaded from a YAML file on top of defaults.
    Economy numbers live in the catalog, not here.
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr   string        `yaml:"listen_addr"`   // HTTP + websocket address
	DatabasePath string        `yaml:"database_path"` // SQLite file holding player progress
	CatalogPath  string        `yaml:"catalog_path"`  // Optional catalog file; empty uses the embedded catalog
	CurrencyName string        `yaml:"currency_name"` // Display name of the currency
	TickInterval time.Duration `yaml:"tick_interval"` // Passive income settlement interval

	// Click throttling per server. Generous enough for a human, not for a script.
	ClickRatePerSecond float64 `yaml:"click_rate_per_second"`
	ClickBurst         int     `yaml:"click_burst"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

func Default() Config {
	return Config{
		ListenAddr:         ":8081",
		DatabasePath:       "diggis.db",
		CurrencyName:       "Diggis",
		TickInterval:       time.Second,
		ClickRatePerSecond: 20,
		ClickBurst:         40,
		LogLevel:           "info",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is empty"))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.ClickRatePerSecond <= 0 || c.ClickBurst <= 0 {
		errs = append(errs, errors.New("click_rate_per_second and click_burst must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
