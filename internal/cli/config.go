package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PARAMX_DB.
const EnvPrefix = "PARAMX"

// Config holds settings read from the config file and environment.
// Command-line flags take precedence over both.
type Config struct {
	// DB is the default run log database for apply, history and replay.
	DB string `mapstructure:"db"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`
}

// LoadConfig reads path (if non-empty) and PARAMX_* environment variables.
// The file format follows the extension (yaml, json, toml).
func LoadConfig(path string) (Config, error) {
	vp := viper.New()

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	vp.SetDefault("db", "")
	vp.SetDefault("log_level", "info")

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vp.AutomaticEnv()

	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// parseLogLevel accepts the names slog understands (debug, info, warn,
// error), case-insensitively.
func parseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", name)
	}
	return level, nil
}

// newLogger builds the text logger used for diagnostics. Verbose forces
// debug level.
func newLogger(w io.Writer, cfg Config, verbose bool) (*slog.Logger, error) {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
