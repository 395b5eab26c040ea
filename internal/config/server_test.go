package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer(NewServerViper(), "")
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Addr)
	assert.Equal(t, 3, cfg.RemoteLimit)
	assert.Equal(t, 4, cfg.Capacity())
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, 50.0, cfg.RateLimit)
	assert.Equal(t, int64(100), cfg.RateBurst)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadServerPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(file, []byte("addr: \":5000\"\nremote_limit: 5\nallowed_origins:\n  - https://a.example\n  - https://b.example\n"), 0o600))
	t.Setenv("ROOMCALL_REMOTE_LIMIT", "1")

	v := NewServerViper()
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	require.NoError(t, BindServerFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--addr", ":6000"}))

	cfg, err := LoadServer(v, file)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Addr, "flag wins")
	assert.Equal(t, 1, cfg.RemoteLimit, "env wins over file")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadServerOriginsFromEnv(t *testing.T) {
	t.Setenv("ROOMCALL_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadServer(NewServerViper(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadServerRejectsZeroLimit(t *testing.T) {
	t.Setenv("ROOMCALL_REMOTE_LIMIT", "0")
	_, err := LoadServer(NewServerViper(), "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
