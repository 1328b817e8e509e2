package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is prepended to environment variable names, e.g.
// APPEAL_SERVER_PORT overrides server.port.
const envPrefix = "APPEAL"

// operationalKeys lists the config keys that may be overridden from the
// environment.  Viper's AutomaticEnv only resolves keys it has already seen,
// so each key is bound explicitly.  The thresholds table is file-only: it is
// a versioned statistical artifact, not an operational knob.
var operationalKeys = []string{
	"server.port",
	"server.mode",
	"server.read_timeout",
	"server.write_timeout",
	"server.max_body_size",
	"server.shutdown_timeout",
	"engine.max_comparables",
	"engine.max_distance_miles",
	"engine.recent_sale_window_months",
	"engine.min_dollar_floor",
	"engine.assessment_ratio",
	"cache.default_ttl",
	"cache.max_entries",
	"cache.cleanup_interval",
	"cache.key_prefix",
	"worker.concurrency",
	"worker.queue_depth",
	"metrics.enabled",
	"metrics.namespace",
	"metrics.subsystem",
	"log.level",
	"log.format",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range operationalKeys {
		// BindEnv with a single argument derives the variable name from
		// the prefix and replacer; the error path only triggers on an
		// empty key, which the list above never contains.
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads configuration from the YAML file at path, applies environment
// overrides and defaults, validates, and returns the result.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a configuration from environment variables and defaults
// alone, for deployments that ship no config file.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch reloads the file at configPath whenever it changes and hands each
// successfully validated result to onChange.  Reloads that fail to parse or
// validate are dropped, keeping the last good configuration in effect.
func Watch(configPath string, onChange func(*Config)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: watch %s: %w", configPath, err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load for program start-up paths where a bad configuration
// should stop the process.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
