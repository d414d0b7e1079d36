package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50052, cfg.GRPC.Port)
	assert.Equal(t, 2*time.Second, cfg.Gate.StoreTimeout)
	assert.Equal(t, uint(5), cfg.Gate.PublishAttempts)
	assert.Equal(t, 10000, cfg.Audit.BufferSize)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.True(t, cfg.Notify.Redis)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9000
gate:
  store_timeout: 750ms
notify:
  webhook_url: http://hooks.local/violations
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("GATE_CB_FAILURES", "9")
	t.Setenv("DB_URL", "postgres://gate@localhost/gate")
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Gate.StoreTimeout)
	assert.Equal(t, uint32(9), cfg.Gate.CBFailures)
	assert.Equal(t, "http://hooks.local/violations", cfg.Notify.WebhookURL)
	assert.Equal(t, "postgres://gate@localhost/gate", cfg.Database.URL)
	assert.Equal(t, []byte("-----BEGIN PUBLIC KEY-----"), cfg.Auth.PublicKey)
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [:"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadKeyResource_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("pem"), 0o600))

	assert.Equal(t, []byte("pem"), loadKeyResource(path, "DIRECTIVE_GATE_TEST_UNSET_KEY"))
	assert.Nil(t, loadKeyResource("", "DIRECTIVE_GATE_TEST_UNSET_KEY"))
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, ":8080", ServerConfig{Port: 8080}.Addr())
	assert.Equal(t, "127.0.0.1:9", ServerConfig{Host: "127.0.0.1", Port: 9}.Addr())
}
