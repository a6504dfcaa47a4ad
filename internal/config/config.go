// Package config loads the service configuration from a YAML file with
// environment variable overrides, so container deployments can run
// without a config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvLocal = "local"
	EnvProd  = "prod"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "24h" or "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Schedule configures the optional in-process rotation loop. Zero
// intervals disable a pass; deployments driven by an external cron hit
// the HTTP trigger endpoints instead.
type Schedule struct {
	RotateEvery Duration `yaml:"rotate_every"`
	InformEvery Duration `yaml:"inform_every"`
}

// Telegram holds the bot credentials.
type Telegram struct {
	Token string `yaml:"token"`
}

// Config is the full service configuration.
type Config struct {
	Env         string   `yaml:"env"`
	ListenAddr  string   `yaml:"listen_addr"`
	DatabaseURL string   `yaml:"database_url"`
	Telegram    Telegram `yaml:"telegram"`
	Schedule    Schedule `yaml:"schedule"`
}

// Load reads the config file at path (optional, "" skips it) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Env:        EnvLocal,
		ListenAddr: ":8080",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required")
	}
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	return cfg, nil
}

// MustLoad is Load for main; the config file path comes from
// CONFIG_PATH when set.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}
	return cfg
}
