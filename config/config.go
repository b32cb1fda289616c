// Package config loads the client's configuration from layered sources:
// compiled-in defaults, an optional YAML file, environment variables,
// and an explicit in-memory override map, in increasing precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix, mirroring
// the server/endpoint/cluster key space one-to-one (REDIS_SERVER,
// REDIS_CLUSTER_ENABLED, ...).
const DefaultEnvPrefix = "REDIS_"

// DefaultVersion is the command surface advertised absent an explicit
// version override: the newest surface this client knows about, rather
// than any one numbered release.
const DefaultVersion = "latest"

// SlotRange is one entry of an initial slot table supplied via
// cluster.clusters.
type SlotRange struct {
	Start    int    `koanf:"start"`
	End      int    `koanf:"end"`
	Endpoint string `koanf:"endpoint"`
}

// ClusterConfig is the cluster.* key space.
type ClusterConfig struct {
	Enabled     bool        `koanf:"enabled"`
	Clusters    []SlotRange `koanf:"clusters"`
	InitOnStart bool        `koanf:"init_on_start"`
	InitOnError bool        `koanf:"init_on_error"`
}

// Config is the merged view of the client's connection,
// auth, and cluster-routing settings.
type Config struct {
	Server   string        `koanf:"server"`
	Timeout  int           `koanf:"timeout"` // seconds
	Database int           `koanf:"database"`
	Password string        `koanf:"password"`
	Cluster  ClusterConfig `koanf:"cluster"`
	Version  string        `koanf:"version"`
}

// Default returns the compiled-in defaults used absent any file, env,
// or override layer.
func Default() *Config {
	return &Config{
		Server:  "127.0.0.1:6379",
		Timeout: 1,
		Version: DefaultVersion,
	}
}

// Loader layers configuration sources on top of a target Config, highest
// precedence last: file, then environment, then an explicit override map.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets a YAML file to load before environment variables.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// NewLoader returns a Loader with DefaultEnvPrefix and no configured file.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs the file and environment layers (in that order) and
// unmarshals the result onto target, which the caller should have
// already populated with Default(). Fields absent from every loaded
// source keep target's existing value.
func (l *Loader) Load(target *Config) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("config: load file: %w", err)
		}
	}
	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("config: load env: %w", err)
	}
	return l.Unmarshal(target)
}

// LoadFile loads configuration from a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	return l.k.Load(file.Provider(path), yaml.Parser())
}

// envOverrides names the env var suffixes (after the prefix is trimmed)
// whose leaf key itself contains an underscore. A blanket "_" -> "."
// transform would otherwise split a multi-word leaf like init_on_start
// into extra path segments that never unmarshal back onto the matching
// koanf tag.
var envOverrides = map[string]string{
	"CLUSTER_INIT_ON_START": "cluster.init_on_start",
	"CLUSTER_INIT_ON_ERROR": "cluster.init_on_error",
}

// LoadEnv loads configuration from REDIS_-prefixed environment variables,
// e.g. REDIS_CLUSTER_ENABLED=true -> cluster.enabled.
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		suffix := strings.TrimPrefix(s, l.envPrefix)
		if path, ok := envOverrides[suffix]; ok {
			return path
		}
		return strings.ReplaceAll(strings.ToLower(suffix), "_", ".")
	}
	return l.k.Load(env.Provider(l.envPrefix, ".", transform), nil)
}

// LoadMap applies an explicit in-memory override, the highest-precedence
// source: a caller-supplied mapping, e.g. values sourced from a secrets
// manager or flag parser.
func (l *Loader) LoadMap(data map[string]any) error {
	return l.k.Load(confmap.Provider(data, "."), nil)
}

// Unmarshal writes every key this Loader has accumulated onto target.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Load is the one-shot convenience form: defaults, then an optional file,
// then environment variables, then an explicit override map, in that
// order of increasing precedence.
func Load(overrides map[string]any, opts ...Option) (*Config, error) {
	cfg := Default()
	l := NewLoader(opts...)
	if err := func() error {
		if l.filePath != "" {
			if err := l.LoadFile(l.filePath); err != nil {
				return fmt.Errorf("config: load file: %w", err)
			}
		}
		if err := l.LoadEnv(); err != nil {
			return fmt.Errorf("config: load env: %w", err)
		}
		if len(overrides) > 0 {
			if err := l.LoadMap(overrides); err != nil {
				return fmt.Errorf("config: load overrides: %w", err)
			}
		}
		return l.Unmarshal(cfg)
	}(); err != nil {
		return nil, err
	}
	return cfg, nil
}
