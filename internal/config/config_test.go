package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       0,
			IdleTimeout:        120 * time.Second,
			ShutDownTimeout:    5 * time.Second,
			RequestTimeout:     30 * time.Second,
			CORSAllowedOrigins: "*",
		},
		Remote: RemoteConfig{
			Type:    RemoteTypeJSON,
			URL:     "https://example.com/devbytes",
			Timeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Type: StoreTypeBolt,
			Path: "/tmp/devbytes.db",
		},
		Refresh: RefreshConfig{
			Policy:  PolicyJoin,
			Timeout: 30 * time.Second,
		},
		Misc: MiscConfig{
			LogLevel: "info",
			GinMode:  "release",
		},
	}
}

func TestConfig_Validate_Valid(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.validate())
}

func TestConfig_Validate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero port", 0},
		{"negative port", -1},
		{"too high port", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port
			assert.Error(t, cfg.validate())
		})
	}
}

func TestConfig_Validate_InvalidTimeouts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"negative write timeout", func(c *Config) { c.Server.WriteTimeout = -time.Second }},
		{"zero idle timeout", func(c *Config) { c.Server.IdleTimeout = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutDownTimeout = 0 }},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
		{"zero remote timeout", func(c *Config) { c.Remote.Timeout = 0 }},
		{"negative refresh timeout", func(c *Config) { c.Refresh.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestConfig_Validate_Remote(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.Type = "grpc"
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.Remote.URL = "  "
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.Remote.Type = RemoteTypeFeed
	assert.NoError(t, cfg.validate())
}

func TestConfig_Validate_Store(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr bool
	}{
		{"memory without path", StoreConfig{Type: StoreTypeMemory}, false},
		{"bolt without path", StoreConfig{Type: StoreTypeBolt}, true},
		{"json with path", StoreConfig{Type: StoreTypeJSON, Path: "./data/items.json"}, false},
		{"json without path", StoreConfig{Type: StoreTypeJSON}, true},
		{"redis with addr", StoreConfig{Type: StoreTypeRedis, RedisAddr: "localhost:6379"}, false},
		{"redis without addr", StoreConfig{Type: StoreTypeRedis}, true},
		{"unknown", StoreConfig{Type: "sqlite"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Store = tt.store
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Validate_Policy(t *testing.T) {
	for _, policy := range []string{PolicyJoin, PolicyReject} {
		cfg := validConfig()
		cfg.Refresh.Policy = policy
		assert.NoError(t, cfg.validate(), policy)
	}

	cfg := validConfig()
	cfg.Refresh.Policy = "queue"
	assert.Error(t, cfg.validate())
}

func TestConfig_Validate_ReportsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Refresh.Policy = "queue"

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "refresh.policy")
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, RemoteTypeJSON, cfg.Remote.Type)
	assert.Equal(t, StoreTypeBolt, cfg.Store.Type)
	assert.Equal(t, PolicyJoin, cfg.Refresh.Policy)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Timeout)
	assert.True(t, cfg.Refresh.OnStartup)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte(`
server:
  port: 9090
store:
  type: memory
refresh:
  policy: reject
  timeout: 5s
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), yaml, 0644))

	t.Setenv("DEVBYTES_SERVER_PORT", "9191")
	t.Setenv("DEVBYTES_REMOTE_TYPE", "feed")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "env must override file")
	assert.Equal(t, RemoteTypeFeed, cfg.Remote.Type)
	assert.Equal(t, StoreTypeMemory, cfg.Store.Type)
	assert.Equal(t, PolicyReject, cfg.Refresh.Policy)
	assert.Equal(t, 5*time.Second, cfg.Refresh.Timeout)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DEVBYTES_REFRESH_POLICY=reject\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("DEVBYTES_REFRESH_POLICY") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, cfg.Refresh.Policy)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := LoadConfig()
	assert.Error(t, err)
}
