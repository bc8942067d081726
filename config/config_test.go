package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:26657", cfg.Node.RPC)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
http_port: "8080"
database:
  dsn: postgresql://u:p@db:5432/bako
node:
  rpc: http://node0:26657
cache:
  path: /tmp/scan-cache
  ttl: 45s
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgresql://u:p@db:5432/bako", cfg.Database.DSN)
	assert.Equal(t, "http://node0:26657", cfg.Node.RPC)
	assert.Equal(t, "/tmp/scan-cache", cfg.Cache.Path)
	assert.Equal(t, 45*time.Second, cfg.Cache.TTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 0s\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
