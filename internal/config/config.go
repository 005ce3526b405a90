// Package config loads wastelog configuration.
//
// Resolution order: built-in defaults, then the optional YAML file, then
// WASTELOG_* environment variables. The result is checked against an
// embedded CUE schema before use.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// Config is the complete wastelog configuration.
type Config struct {
	HTTP     HTTP     `yaml:"http" json:"http"`
	Store    Store    `yaml:"store" json:"store"`
	Events   Events   `yaml:"events" json:"events"`
	Log      Log      `yaml:"log" json:"log"`
	Identity Identity `yaml:"identity" json:"identity"`
}

// HTTP configures the HTTP API.
type HTTP struct {
	Addr string `yaml:"addr" json:"addr"`

	// JWTSecret enables bearer-token auth when non-empty (min 32 characters).
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

// Store selects and tunes the entry store backend.
type Store struct {
	Backend string `yaml:"backend" json:"backend"` // memory | sqlite | pebble | postgres
	Path    string `yaml:"path" json:"path"`       // sqlite file or pebble directory
	DSN     string `yaml:"dsn" json:"dsn"`         // postgres connection string

	MaxEntries    int `yaml:"max_entries" json:"max_entries"` // 0 = unlimited
	MaxKeyBytes   int `yaml:"max_key_bytes" json:"max_key_bytes"`
	MaxValueBytes int `yaml:"max_value_bytes" json:"max_value_bytes"`
}

// Events configures the change-event stream. No brokers disables it.
type Events struct {
	KafkaBrokers []string `yaml:"kafka_brokers" json:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic" json:"kafka_topic"`
}

// Log configures the root slog logger.
type Log struct {
	Level  string `yaml:"level" json:"level"`   // debug | info | warn | error
	Format string `yaml:"format" json:"format"` // text | json
}

// Identity configures the caller identity used when a request carries none.
type Identity struct {
	Default string `yaml:"default" json:"default"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTP{Addr: ":8080"},
		Store: Store{
			Backend:       "sqlite",
			Path:          "wastelog.db",
			MaxKeyBytes:   44,
			MaxValueBytes: 1024,
		},
		Events:   Events{KafkaBrokers: []string{}, KafkaTopic: "waste-entries"},
		Log:      Log{Level: "info", Format: "text"},
		Identity: Identity{Default: "local"},
	}
}

// Load resolves configuration from path (optional) and the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML overlays data onto cfg. Unknown keys are rejected so typos
// ("max_entires") fail instead of being silently ignored.
func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("WASTELOG_HTTP_ADDR", &cfg.HTTP.Addr)
	str("WASTELOG_JWT_SECRET", &cfg.HTTP.JWTSecret)
	str("WASTELOG_STORE_BACKEND", &cfg.Store.Backend)
	str("WASTELOG_STORE_PATH", &cfg.Store.Path)
	str("WASTELOG_STORE_DSN", &cfg.Store.DSN)
	str("WASTELOG_KAFKA_TOPIC", &cfg.Events.KafkaTopic)
	str("WASTELOG_LOG_LEVEL", &cfg.Log.Level)
	str("WASTELOG_LOG_FORMAT", &cfg.Log.Format)
	str("WASTELOG_IDENTITY", &cfg.Identity.Default)

	if err := num("WASTELOG_STORE_MAX_ENTRIES", &cfg.Store.MaxEntries); err != nil {
		return err
	}
	if err := num("WASTELOG_STORE_MAX_KEY_BYTES", &cfg.Store.MaxKeyBytes); err != nil {
		return err
	}
	if err := num("WASTELOG_STORE_MAX_VALUE_BYTES", &cfg.Store.MaxValueBytes); err != nil {
		return err
	}

	if v, ok := lookup("WASTELOG_KAFKA_BROKERS"); ok && v != "" {
		brokers := make([]string, 0)
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Events.KafkaBrokers = brokers
	}
	return nil
}

// Validate checks cfg against the embedded CUE schema and the cross-field
// rules the schema does not express.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	val := ctx.Encode(c)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Store.Backend {
	case "sqlite", "pebble":
		if c.Store.Path == "" {
			return fmt.Errorf("invalid config: store.path is required for backend %q", c.Store.Backend)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("invalid config: store.dsn is required for backend %q", c.Store.Backend)
		}
	}
	return nil
}
