package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DB)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paramx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: ./runs.db\nlog_level: debug\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./runs.db", cfg.DB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paramx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: ./runs.db\n"), 0644))
	t.Setenv("PARAMX_DB", "/tmp/env.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.DB)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_VerboseForcesDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := newLogger(buf, Config{LogLevel: "error"}, true)
	require.NoError(t, err)

	logger.Debug("field processed")
	assert.Contains(t, buf.String(), "field processed")
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := newLogger(buf, Config{LogLevel: "warn"}, false)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestRootOptions_Database(t *testing.T) {
	opts := &RootOptions{Config: Config{DB: "config.db"}}
	assert.Equal(t, "flag.db", opts.database("flag.db"))
	assert.Equal(t, "config.db", opts.database(""))
}
