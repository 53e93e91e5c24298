package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configCmd(t *testing.T, config string) *cobra.Command {
	t.Helper()
	dir := t.TempDir()
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "uniprep.yaml"), []byte(config), 0o600))
	}
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cmd := &cobra.Command{Use: "test"}
	addLogFlags(cmd.Flags())
	return cmd
}

func TestLoadConfigLogsThroughConfiguredLogger(t *testing.T) {
	cmd := configCmd(t, "log-format: json\nlog-level: info\n")
	var buf bytes.Buffer
	v, level := loadConfig(cmd, &buf)

	assert.Equal(t, "json", v.GetString("log-format"))
	assert.Equal(t, slog.LevelInfo, level.Level())
	var line struct {
		Msg  string `json:"msg"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0], &line))
	assert.Equal(t, "loaded config file", line.Msg)
	assert.Equal(t, "uniprep.yaml", filepath.Base(line.Path))
}

func TestLoadConfigHonorsConfiguredLevel(t *testing.T) {
	cmd := configCmd(t, "log-format: json\nlog-level: warn\n")
	var buf bytes.Buffer
	_, level := loadConfig(cmd, &buf)

	assert.Equal(t, slog.LevelWarn, level.Level())
	assert.Empty(t, buf.String())
}

func TestLoadConfigWarnsOnBadFile(t *testing.T) {
	cmd := configCmd(t, "log-format: [unclosed\n")
	require.NoError(t, cmd.Flags().Set("log-format", "json"))
	var buf bytes.Buffer
	loadConfig(cmd, &buf)

	var line struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "WARN", line.Level)
	assert.Equal(t, "error reading config file", line.Msg)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cmd := configCmd(t, "")
	require.NoError(t, cmd.Flags().Set("log-format", "json"))
	var buf bytes.Buffer
	v, _ := loadConfig(cmd, &buf)

	assert.Empty(t, v.ConfigFileUsed())
	assert.Empty(t, buf.String())
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"15m", 15 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := parseTTL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := parseTTL("xd")
	assert.Error(t, err)
}
