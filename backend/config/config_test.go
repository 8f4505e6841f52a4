package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, &Config{
		APIListenAddr: ":8080",
		WSListenAddr:  ":8888",
		LogLevel:      "debug",
		InboxSize:     1024,
		OutboxSize:    256,
	}, cfg)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := Load([]string{"-a", ":9090", "--ws-listen-addr=:9999", "-l", "info", "--outbox-size", "16"})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.APIListenAddr)
	assert.Equal(t, ":9999", cfg.WSListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 16, cfg.OutboxSize)
	assert.Equal(t, 1024, cfg.InboxSize)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("WATCHPARTY_WS_LISTEN_ADDR", ":7000")
	t.Setenv("WATCHPARTY_INBOX_SIZE", "8")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.WSListenAddr)
	assert.Equal(t, 8, cfg.InboxSize)

	cfg, err = Load([]string{"-w", ":7001"})
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.WSListenAddr, "flags take precedence over env")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchparty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_listen_addr: \":8181\"\nlog_level: warn\noutbox_size: 32\n"), 0o600))
	t.Setenv("WATCHPARTY_OUTBOX_SIZE", "64")

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.APIListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 64, cfg.OutboxSize, "env takes precedence over file")
	assert.Equal(t, ":8888", cfg.WSListenAddr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		invalid bool
	}{
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "missing file", args: []string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}},
		{name: "zero inbox", args: []string{"--inbox-size", "0"}, invalid: true},
		{name: "negative outbox", args: []string{"--outbox-size", "-1"}, invalid: true},
		{name: "bad level", args: []string{"-l", "loud"}, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.args)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidConfig))
		})
	}
}
