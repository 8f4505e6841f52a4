package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "WATCHPARTY"

var (
	ErrInvalidConfig = errors.New("invalid config")
)

type Config struct {
	APIListenAddr string `mapstructure:"api_listen_addr"`
	WSListenAddr  string `mapstructure:"ws_listen_addr"`
	LogLevel      string `mapstructure:"log_level"`
	InboxSize     int    `mapstructure:"inbox_size"`
	OutboxSize    int    `mapstructure:"outbox_size"`
}

// Load resolves configuration from command line args, WATCHPARTY_* env vars
// and an optional config file, in that order of precedence.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)
	fs.StringP("api-listen-addr", "a", ":8080", "api listen address")
	fs.StringP("ws-listen-addr", "w", ":8888", "websocket listen address")
	fs.StringP("log-level", "l", "debug", "log level")
	fs.Int("inbox-size", 1024, "hub inbound event queue size")
	fs.Int("outbox-size", 256, "per-connection outbound queue size")
	configFile := fs.StringP("config", "c", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse command line arguments: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"api_listen_addr": "api-listen-addr",
		"ws_listen_addr":  "ws-listen-addr",
		"log_level":       "log-level",
		"inbox_size":      "inbox-size",
		"outbox_size":     "outbox-size",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.InboxSize <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("inbox_size must be positive, got %d", cfg.InboxSize))
	}
	if cfg.OutboxSize <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("outbox_size must be positive, got %d", cfg.OutboxSize))
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}
