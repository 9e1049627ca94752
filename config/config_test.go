package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yapyap/go-auth/config"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func TestLoadDefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("YAPYAP_AUTH__SIGNING_KEY", testSigningKey)

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, testSigningKey, cfg.GetSigningKey())
	assert.Equal(t, 30*time.Minute, cfg.GetPendingTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.GetSessionTTL())
	assert.Equal(t, "jwt", cfg.GetCookieName())
	assert.Equal(t, 10, cfg.GetPasswordHashCost())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/api/auth", cfg.Server.BasePath)
	assert.True(t, cfg.GetCookieSecure())
}

func TestLoadMissingSigningKey(t *testing.T) {
	_, err := config.Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SigningKey")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.yaml")
	yaml := `
auth:
  signing_key: ` + testSigningKey + `
  client_base_url: https://chat.yapyap.app
  pending_token_ttl: 15m
server:
  addr: ":7000"
database:
  driver: postgres
  dsn: postgres://yapyap@localhost/yapyap
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("YAPYAP_SERVER__ADDR", ":8000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server.addr", ":5001", "listen address")
	flags.Bool("debug", false, "debug")
	require.NoError(t, flags.Parse([]string{"--server.addr=:9000"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.yapyap.app", cfg.GetClientBaseURL())
	assert.Equal(t, 15*time.Minute, cfg.GetPendingTokenTTL())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":9000", cfg.Server.Addr, "explicit flags win over env and file")
	assert.False(t, cfg.GetDebug(), "unset flags keep lower layers")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("YAPYAP_AUTH__SIGNING_KEY", testSigningKey)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestValidateRequiresSMTPHost(t *testing.T) {
	t.Setenv("YAPYAP_AUTH__SIGNING_KEY", testSigningKey)
	t.Setenv("YAPYAP_MAIL__DRIVER", "smtp")

	_, err := config.Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Host")
}
