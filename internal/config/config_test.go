package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Server.Metrics)
	assert.Equal(t, "flows", cfg.Flows.Dir)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Store.Redis.TTL)
	assert.Nil(t, cfg.Store.Encryption)
	assert.Equal(t, 30, cfg.Execution.MaxSnapshots)
	assert.True(t, cfg.Execution.RedirectOnPause)
	assert.Equal(t, 30*time.Second, cfg.Execution.LockTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	require.NoError(t, cfg.Validate())
}

func TestParse_Overrides(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	old := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("o", 32)))

	cfg, err := Parse([]byte(`
server:
  addr: 127.0.0.1:9000
  base_path: /app
store:
  type: redis
  redis:
    addr: redis:6379
    db: 2
    ttl: 1h
  encryption:
    key: ` + key + `
    fallback_keys: [` + old + `]
execution:
  redirect_on_pause: false
  max_snapshots: -1
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "/app", cfg.Server.BasePath)
	assert.Equal(t, StoreRedis, cfg.Store.Type)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "webflow:", cfg.Store.Redis.Prefix)
	assert.False(t, cfg.Execution.RedirectOnPause)
	assert.Equal(t, -1, cfg.Execution.MaxSnapshots)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "flows", cfg.Flows.Dir)

	active, fallback, err := cfg.Store.Encryption.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Len(t, fallback, 1)
}

func TestParse_Invalid(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	tests := map[string]struct {
		yaml string
		want string
	}{
		"store type":   {"store: {type: s3}", "Config.Store.Type"},
		"log level":    {"log: {level: loud}", "Config.Log.Level"},
		"log format":   {"log: {format: xml}", "Config.Log.Format"},
		"redis db":     {"store: {redis: {db: 99}}", "Config.Store.Redis.DB"},
		"base path":    {"server: {base_path: app}", "Config.Server.BasePath"},
		"missing key":  {"store: {encryption: {}}", "Config.Store.Encryption.Key"},
		"short key":    {"store: {encryption: {key: " + short + "}}", "32 bytes"},
		"bad yaml":     {"server: [", "failed to parse config"},
		"no flows dir": {"flows: {dir: ''}", "Config.Flows.Dir"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "webflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("flows: {dir: ./defs}\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./defs", cfg.Flows.Dir)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
