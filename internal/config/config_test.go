package config

import (
	"go/format"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, TransportHTTP, cfg.Transport)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, filepath.Join(cfg.DataDir, "session.db"), cfg.DBPath)
	require.Equal(t, filepath.Join(cfg.DataDir, "debug.log"), cfg.LogPath)
	require.Equal(t, 30*time.Second, cfg.RefreshInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
endpoint: https://api.example.com/graphql
transport: ws
request_timeout: 3s
data_dir: /tmp/sessionctl-test
operations:
  refresh_token: "mutation Renew { renew { user { id email createdAt } accessToken } }"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/graphql", cfg.Endpoint)
	require.Equal(t, TransportWS, cfg.Transport)
	require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	require.Equal(t, "/tmp/sessionctl-test/session.db", cfg.DBPath)
	require.Equal(t, "/tmp/sessionctl-test/debug.log", cfg.LogPath)
	require.Contains(t, cfg.Operations.RefreshToken, "mutation Renew")
	require.Empty(t, cfg.Operations.Login)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "endpoint: https://file.example.com/graphql\nlog_level: warn\n")
	t.Setenv("GQLSESSION_ENDPOINT", "https://env.example.com/graphql")
	t.Setenv("GQLSESSION_REQUEST_TIMEOUT", "250ms")
	t.Setenv("GQLSESSION_OPERATIONS__LOGOUT", "mutation SignOut { signOut }")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com/graphql", cfg.Endpoint)
	require.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	require.Equal(t, "mutation SignOut { signOut }", cfg.Operations.Logout)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "endpoint: [unterminated\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "load config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty endpoint", func(c *Config) { c.Endpoint = " " }, "endpoint is required"},
		{"bad transport", func(c *Config) { c.Transport = "grpc" }, `unknown transport "grpc"`},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "must not be negative"},
		{"negative margin", func(c *Config) { c.RefreshMargin = -time.Second }, "refresh_margin must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestSourceIsFormatted(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		src, err := os.ReadFile(name)
		require.NoError(t, err)
		formatted, err := format.Source(src)
		require.NoError(t, err)
		require.Equal(t, string(formatted), string(src), "%s is not gofmt-clean", name)
	}
}
