package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/dir01/gridquery"
)

// Config holds the CLI configuration.
type Config struct {
	Log       LogConfig    `mapstructure:"log"`
	CacheSize int          `mapstructure:"cache_size"`
	Schema    SchemaConfig `mapstructure:"schema"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`  // DEBUG, INFO, WARN, ERROR
	Format    string `mapstructure:"format"` // json, text
	AddSource bool   `mapstructure:"add_source"`
}

// SchemaConfig describes the records the CLI filters.
type SchemaConfig struct {
	Name   string               `mapstructure:"name"`
	Fields []gridquery.FieldDef `mapstructure:"fields"`
}

// loadConfig reads the config file at path, or gridquery.yaml from the working directory
// when path is empty, and applies GRIDQUERY_ environment overrides (GRIDQUERY_LOG_LEVEL=DEBUG).
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("cache_size", gridquery.DefaultCacheSize)
	v.SetDefault("schema.name", "record")

	v.SetEnvPrefix("GRIDQUERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gridquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		// The config file is optional unless it was asked for explicitly.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// newLogger builds the process logger. Output goes to w so that stdout stays free for results.
func newLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(cfg.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
