package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DATABASE_URL", "ORM_CONFIG_PATH", "ORM_DEFAULT_CONNECTION", "ORM_LOGGING", "ORM_AUDIT",
		"ORM_LOG_LEVEL", "ORM_LOG_FORMAT", "ORM_PROFILER_STORE", "ORM_PROFILER_REDIS_URL",
		"ORM_GENERATOR_BINARY", "ORM_CACHE_DIR",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORM_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Datasources)
	assert.Equal(t, "memory", cfg.ProfilerStore)
	assert.Equal(t, "default", cfg.Source("log_level"))
	assert.ErrorIs(t, cfg.Validate(), ErrNoDatasources)

	_, err = cfg.Default()
	assert.ErrorIs(t, err, ErrNoDatasources)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, `
datasources:
  - name: main
    adapter: postgres
    dsn: postgres://app@localhost/app
    replicas: [postgres://app@replica/app]
  - name: legacy
    adapter: mysql
    dsn: app:secret@tcp(localhost:3306)/app
logging: true
audit: true
log_format: console
`)
	t.Setenv("ORM_CONFIG_PATH", dir)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.ConfigFilePath())
	assert.Equal(t, "main", cfg.DefaultConnection)
	assert.True(t, cfg.Logging)
	assert.True(t, cfg.Audit)
	assert.Equal(t, "file", cfg.Source("audit"))
	assert.Equal(t, "file", cfg.Source("datasources"))
	assert.Equal(t, "file", cfg.Source("log_format"))
	assert.Equal(t, "default", cfg.Source("default_connection"))

	legacy, ok := cfg.Datasource("legacy")
	require.True(t, ok)
	assert.Equal(t, "mysql", legacy.Adapter)

	primary, err := cfg.Default()
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres://app@replica/app"}, primary.Replicas)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, `
datasources:
  - name: main
    adapter: postgres
    dsn: postgres://app@localhost/app
profiler_store: memory
`)
	t.Setenv("ORM_CONFIG_PATH", dir)
	t.Setenv("DATABASE_URL", "mysql://root@db/app")
	t.Setenv("ORM_PROFILER_STORE", "redis")
	t.Setenv("ORM_PROFILER_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ORM_LOGGING", "1")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Datasources, 1)
	assert.Equal(t, "mysql", cfg.Datasources[0].Adapter)
	assert.Equal(t, "mysql://root@db/app", cfg.Datasources[0].DSN)
	assert.Equal(t, "environment", cfg.Source("datasources"))
	assert.Equal(t, "redis", cfg.ProfilerStore)
	assert.True(t, cfg.Logging)
	assert.True(t, cfg.ProfilerEnabled())
}

func TestDatabaseURLCreatesDefaultConnection(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORM_CONFIG_PATH", t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://app@localhost/app")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	ds, err := cfg.Default()
	require.NoError(t, err)
	assert.Equal(t, DefaultConnectionName, ds.Name)
	assert.Equal(t, "postgres", ds.Adapter)
}

func TestInvalidFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORM_CONFIG_PATH", writeConfig(t, "datasources: [\n"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Datasources:       []Datasource{{Name: "main", Adapter: "sqlite", DSN: ":memory:"}},
			DefaultConnection: "main",
			ProfilerStore:     "none",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown adapter", func(c *Config) { c.Datasources[0].Adapter = "oracle" }, "invalid adapter"},
		{"duplicate", func(c *Config) { c.Datasources = append(c.Datasources, c.Datasources[0]) }, "duplicate datasource"},
		{"missing default", func(c *Config) { c.DefaultConnection = "other" }, "is not configured"},
		{"unknown store", func(c *Config) { c.ProfilerStore = "disk" }, "invalid profiler_store"},
		{"redis without url", func(c *Config) { c.ProfilerStore = "redis" }, "profiler_redis_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdapterFromURL(t *testing.T) {
	tests := map[string]string{
		"postgres://app@localhost/app": "postgres",
		"postgresql://localhost/app":   "postgres",
		"mysql://root@db/app":          "mysql",
		"file:test.db?cache=shared":    "sqlite",
		"/var/lib/app.db":              "sqlite",
		":memory:":                     "sqlite",
		"sqlite://app":                 "sqlite",
	}
	for dsn, want := range tests {
		assert.Equal(t, want, AdapterFromURL(dsn), dsn)
	}
}

func TestFormat(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORM_CONFIG_PATH", t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://app@localhost/app")

	cfg, err := Load()
	require.NoError(t, err)

	text := cfg.FormatText()
	assert.True(t, strings.HasPrefix(text, "Config file: "))
	assert.Contains(t, text, "default(postgres)")
	assert.Contains(t, text, "(not set)")

	out, err := cfg.FormatJSON()
	require.NoError(t, err)
	var decoded struct {
		ConfigFile string      `json:"config_file"`
		Attributes []Attribute `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, cfg.ConfigFilePath(), decoded.ConfigFile)
	assert.Len(t, decoded.Attributes, len(attributeNames()))
}
