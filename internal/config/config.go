package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/graphql"
)

// EnvPrefix prefixes every environment variable read by Load. A double
// underscore nests: GQLSESSION_OPERATIONS__LOGIN sets operations.login.
const EnvPrefix = "GQLSESSION_"

const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

type Config struct {
	Endpoint       string        `koanf:"endpoint"`
	Transport      string        `koanf:"transport"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	UserAgent      string        `koanf:"user_agent"`
	DataDir        string        `koanf:"data_dir"`
	DBPath         string        `koanf:"db_path"`
	LogPath        string        `koanf:"log_path"`
	LogLevel       string        `koanf:"log_level"`
	MetricsAddr    string        `koanf:"metrics_addr"`

	// Background refresh in the TUI. A zero interval disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	RefreshMargin   time.Duration `koanf:"refresh_margin"`

	Operations graphql.Operations `koanf:"operations"`
}

func Default() Config {
	dataDir := filepath.Join(userConfigDir(), "sessionctl")
	return Config{
		Endpoint:       "http://localhost:4000/graphql",
		Transport:      TransportHTTP,
		RequestTimeout: 10 * time.Second,
		UserAgent:      "sessionctl/1.0",
		DataDir:        dataDir,
		DBPath:         filepath.Join(dataDir, "session.db"),
		LogPath:        filepath.Join(dataDir, "debug.log"),
		LogLevel:       "info",

		RefreshInterval: 30 * time.Second,
		RefreshMargin:   time.Minute,
	}
}

// DefaultPath is where Load looks when no config file is given.
func DefaultPath() string {
	return filepath.Join(userConfigDir(), "sessionctl", "config.yaml")
}

// Load layers, lowest first: defaults, the YAML file at path (skipped when
// missing), a .env file in the working directory, GQLSESSION_* variables.
// When data_dir is overridden the derived paths follow it unless they are
// set too.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("stat config file %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	transform := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if k.Exists("data_dir") {
		if !k.Exists("db_path") {
			cfg.DBPath = filepath.Join(cfg.DataDir, "session.db")
		}
		if !k.Exists("log_path") {
			cfg.LogPath = filepath.Join(cfg.DataDir, "debug.log")
		}
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	switch c.Transport {
	case TransportHTTP, TransportWS:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportHTTP, TransportWS)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.RefreshInterval < 0 || c.RefreshMargin < 0 {
		return errors.New("refresh_interval and refresh_margin must not be negative")
	}
	return nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
