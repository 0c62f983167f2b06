package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is t.Chdir for toolchains older than Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(old)) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Registry.ServiceKey)
	assert.Equal(t, "https://apis.data.go.kr/1613000/BldRgstHubService", cfg.Registry.BaseURL)
	assert.Equal(t, 100, cfg.Registry.PageSize)
	assert.Equal(t, 200, cfg.Registry.MaxPages)
	assert.Equal(t, 15, cfg.Registry.TimeoutSecs)
	assert.InDelta(t, 10.0, cfg.Registry.RateLimit, 0.001)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "minbak_result", cfg.Batch.OutPrefix)
	assert.Equal(t, "minbak.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile("config.yaml", []byte(`
registry:
  service_key: test-key
  page_size: 50
batch:
  concurrency: 8
log:
  level: debug
  format: console
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Registry.ServiceKey)
	assert.Equal(t, 50, cfg.Registry.PageSize)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 200, cfg.Registry.MaxPages)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MINBAK_REGISTRY_SERVICE_KEY", "env-key")
	t.Setenv("MINBAK_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Registry.ServiceKey)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_MalformedFile(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile("config.yaml", []byte("registry: ["), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Registry: RegistryConfig{ServiceKey: "key", PageSize: 100, MaxPages: 200},
		Batch:    BatchConfig{Concurrency: 4},
		Server:   ServerConfig{Port: 8080},
	}
}

func TestValidate(t *testing.T) {
	for _, mode := range []string{"check", "batch", "serve"} {
		assert.NoError(t, validConfig().Validate(mode), mode)

		cfg := validConfig()
		cfg.Registry.ServiceKey = ""
		err := cfg.Validate(mode)
		require.Error(t, err, mode)
		assert.Contains(t, err.Error(), "service_key")
	}

	cfg := validConfig()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate("serve"))
	assert.NoError(t, cfg.Validate("check"), "port only matters when serving")

	cfg = validConfig()
	cfg.Batch.Concurrency = 33
	assert.Error(t, cfg.Validate("batch"))

	cfg = validConfig()
	cfg.Registry.PageSize = 0
	assert.Error(t, cfg.Validate("check"))

	assert.Error(t, validConfig().Validate("export"))
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "shouty"}))
}
