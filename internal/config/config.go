// Package config loads JParque's runtime configuration via viper,
// matching the YAML-backed configuration style used across the rest of
// this codebase's ambient stack.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tuannm99/jparque/internal/compress"
	"github.com/tuannm99/jparque/internal/storage"
)

// Config holds the knobs both storage engines read at open time.
type Config struct {
	DataDir          string `mapstructure:"data_dir"`
	PageSize         int    `mapstructure:"page_size"`
	PageCacheSize    int    `mapstructure:"page_cache_size"`
	DefaultCodec     string `mapstructure:"default_codec"`
}

// defaults mirrors spec.md's stated reference values (4096-byte pages,
// 1000-entry page cache) so a caller that loads no file still gets a
// working configuration.
func defaults() Config {
	return Config{
		DataDir:       "./data",
		PageSize:      storage.DefaultPageSize,
		PageCacheSize: storage.DefaultPageCacheSize,
		DefaultCodec:  "snappy",
	}
}

// Load reads YAML configuration from path (if it exists) over top of
// defaults. An empty path loads only the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("page_size", cfg.PageSize)
	v.SetDefault("page_cache_size", cfg.PageCacheSize)
	v.SetDefault("default_codec", cfg.DefaultCodec)

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

// CodecTag resolves the configured default codec name to its stable wire
// tag, defaulting to Snappy for an unrecognized value.
func (c Config) CodecTag() uint32 {
	switch c.DefaultCodec {
	case "uncompressed":
		return compress.Uncompressed
	case "gzip":
		return compress.Gzip
	case "zstd":
		return compress.Zstd
	default:
		return compress.Snappy
	}
}
