// Package config defines all configuration for the matching engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// GUNGNIR_* environment variable overrides; every key has a default so
// the engine runs with no file at all.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Fees    FeesConfig    `mapstructure:"fees"`
	Book    BookConfig    `mapstructure:"book"`
	Trades  TradesConfig  `mapstructure:"trades"`
	Stop    StopConfig    `mapstructure:"stop"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// FeesConfig sets the maker/taker fee rates applied per trade as a
// fraction of the notional.
type FeesConfig struct {
	MakerRate float64 `mapstructure:"maker_rate"`
	TakerRate float64 `mapstructure:"taker_rate"`
}

// BookConfig tunes the per-symbol order books.
//
//   - PricePrecision: decimal places prices are canonicalised to at the
//     book boundary.
//   - DepthLevels: default number of L2 levels returned per side.
type BookConfig struct {
	PricePrecision int32 `mapstructure:"price_precision"`
	DepthLevels    int   `mapstructure:"depth_levels"`
}

type TradesConfig struct {
	RecentCapacity int    `mapstructure:"recent_capacity"`
	LogPath        string `mapstructure:"log_path"`
}

// StopConfig controls the conditional order watcher cadence.
type StopConfig struct {
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
}

// StoreConfig sets where order book snapshots are persisted (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides. A missing
// file falls back to defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GUNGNIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("fees.maker_rate", 0.0005)
	v.SetDefault("fees.taker_rate", 0.001)
	v.SetDefault("book.price_precision", 2)
	v.SetDefault("book.depth_levels", 10)
	v.SetDefault("trades.recent_capacity", 1000)
	v.SetDefault("trades.log_path", "trades.jsonl")
	v.SetDefault("stop.monitor_interval", 500*time.Millisecond)
	v.SetDefault("store.data_dir", "orderbook_data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Fees.MakerRate < 0 || c.Fees.TakerRate < 0 {
		return fmt.Errorf("fee rates must be >= 0")
	}
	if c.Book.PricePrecision < 0 {
		return fmt.Errorf("book.price_precision must be >= 0")
	}
	if c.Book.DepthLevels <= 0 {
		return fmt.Errorf("book.depth_levels must be > 0")
	}
	if c.Trades.RecentCapacity <= 0 {
		return fmt.Errorf("trades.recent_capacity must be > 0")
	}
	if c.Stop.MonitorInterval <= 0 {
		return fmt.Errorf("stop.monitor_interval must be > 0")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	return nil
}
