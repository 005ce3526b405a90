package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wastelog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnv("", noEnv)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "wastelog.db", cfg.Store.Path)
	assert.Equal(t, 44, cfg.Store.MaxKeyBytes)
	assert.Equal(t, 1024, cfg.Store.MaxValueBytes)
	assert.Equal(t, 0, cfg.Store.MaxEntries)
	assert.Equal(t, "waste-entries", cfg.Events.KafkaTopic)
	assert.Empty(t, cfg.Events.KafkaBrokers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "local", cfg.Identity.Default)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: pebble
  path: /var/lib/wastelog
  max_entries: 500
log:
  level: debug
  format: json
`)

	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "pebble", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/wastelog", cfg.Store.Path)
	assert.Equal(t, 500, cfg.Store.MaxEntries)
	assert.Equal(t, 1024, cfg.Store.MaxValueBytes, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := LoadWithEnv(writeConfig(t, ""), noEnv)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `
store:
  max_entires: 5
`)
	_, err := LoadWithEnv(path, noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: memory\n")

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"WASTELOG_HTTP_ADDR":           "127.0.0.1:9090",
		"WASTELOG_STORE_BACKEND":       "sqlite",
		"WASTELOG_STORE_PATH":          "/tmp/w.db",
		"WASTELOG_STORE_MAX_ENTRIES":   "10",
		"WASTELOG_KAFKA_BROKERS":       "k1:9092, k2:9092,",
		"WASTELOG_IDENTITY":            "ops",
		"WASTELOG_JWT_SECRET":          "0123456789abcdef0123456789abcdef",
		"WASTELOG_STORE_MAX_KEY_BYTES": "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/w.db", cfg.Store.Path)
	assert.Equal(t, 10, cfg.Store.MaxEntries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "ops", cfg.Identity.Default)
	assert.Equal(t, 44, cfg.Store.MaxKeyBytes, "empty env values are ignored")
}

func TestLoad_BadEnvNumber(t *testing.T) {
	_, err := LoadWithEnv("", envMap(map[string]string{"WASTELOG_STORE_MAX_ENTRIES": "lots"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WASTELOG_STORE_MAX_ENTRIES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"short jwt secret", func(c *Config) { c.HTTP.JWTSecret = "short" }},
		{"bad addr", func(c *Config) { c.HTTP.Addr = "localhost" }},
		{"negative max entries", func(c *Config) { c.Store.MaxEntries = -1 }},
		{"zero value limit", func(c *Config) { c.Store.MaxValueBytes = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"empty identity", func(c *Config) { c.Identity.Default = "" }},
		{"empty topic", func(c *Config) { c.Events.KafkaTopic = "" }},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }},
		{"pebble without path", func(c *Config) { c.Store.Backend = "pebble"; c.Store.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_AcceptsVariants(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "memory"
	cfg.Store.Path = ""
	cfg.HTTP.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Events.KafkaBrokers = nil
	require.NoError(t, cfg.Validate())

	cfg.Store.Backend = "postgres"
	cfg.Store.DSN = "host=localhost user=postgres dbname=wastelog sslmode=disable"
	require.NoError(t, cfg.Validate())
}
