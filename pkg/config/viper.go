package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/worldstate/pkg/dotdir"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WORLDSTATE"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the WORLDSTATE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (WORLDSTATE_API_LISTEN, WORLDSTATE_STORAGE_DRIVER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: WORLDSTATE_API_LISTEN, WORLDSTATE_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materialises a Config from v, so callers work with typed fields
// after layering is resolved.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Settings: SettingsConfig{
			ModuleKey:  v.GetString("settings.module_key"),
			DebounceMs: v.GetUint("settings.debounce_ms"),
		},
		Interceptor: InterceptorConfig{
			TimeoutMs: v.GetUint("interceptor.timeout_ms"),
		},
		Lorebook: LorebookConfig{
			Dir: v.GetString("lorebook.dir"),
		},
		Connections: ConnectionsConfig{
			Path: v.GetString("connections.path"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  brokers(v),
			Topic:    v.GetString("events.topic"),
		},
	}

	applyDefaults(cfg)
	return cfg
}

// brokers accepts a TOML array or a comma-separated env value.
func brokers(v *viper.Viper) []string {
	var out []string
	for _, b := range v.GetStringSlice("events.brokers") {
		out = append(out, SplitList(b)...)
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Settings store
	v.SetDefault("settings.module_key", d.Settings.ModuleKey)
	v.SetDefault("settings.debounce_ms", d.Settings.DebounceMs)

	// Interceptor
	v.SetDefault("interceptor.timeout_ms", d.Interceptor.TimeoutMs)

	// Collaborators
	v.SetDefault("lorebook.dir", d.Lorebook.Dir)
	v.SetDefault("connections.path", d.Connections.Path)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
