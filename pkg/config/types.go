package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent worldstate configuration stored as
// config.toml in the .worldstate/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Settings    SettingsConfig    `toml:"settings"`
	Interceptor InterceptorConfig `toml:"interceptor"`
	Lorebook    LorebookConfig    `toml:"lorebook"`
	Connections ConnectionsConfig `toml:"connections"`
	API         APIConfig         `toml:"api"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig selects where the extension settings record is persisted.
type StorageConfig struct {
	// Driver is one of "file", "sqlite", "postgres" or "memory".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// SettingsConfig holds settings store options.
type SettingsConfig struct {
	ModuleKey  string `toml:"module_key,omitempty"`
	DebounceMs uint   `toml:"debounce_ms,omitempty"`
}

// InterceptorConfig holds generation hook options.
type InterceptorConfig struct {
	TimeoutMs uint `toml:"timeout_ms,omitempty"`
}

// LorebookConfig points at the lorebook directory. Empty means
// <dotdir>/lorebooks.
type LorebookConfig struct {
	Dir string `toml:"dir,omitempty"`
}

// ConnectionsConfig points at the connection profile catalog. Empty means
// <dotdir>/connections.toml.
type ConnectionsConfig struct {
	Path string `toml:"path,omitempty"`
}

// APIConfig holds HTTP bridge settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig selects where settings and interceptor events are published.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func oneOf(key string, allowed ...string) func(v string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("invalid value for %s: %q (valid: %s)", key, v, strings.Join(allowed, ", "))
	}
}

var (
	validStorageDriver  = oneOf("storage.driver", StorageFile, StorageSQLite, StoragePostgres, StorageMemory)
	validEventsProvider = oneOf("events.provider", EventsNop, EventsKafka)
)

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			if err := validStorageDriver(v); err != nil {
				return err
			}
			c.Storage.Driver = v
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"settings.module_key": {
		get: func(c *Config) string { return c.Settings.ModuleKey },
		set: func(c *Config, v string) error {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("settings.module_key cannot be empty")
			}
			c.Settings.ModuleKey = v
			return nil
		},
	},
	"settings.debounce_ms":   uintKey("settings.debounce_ms", func(c *Config) *uint { return &c.Settings.DebounceMs }),
	"interceptor.timeout_ms": uintKey("interceptor.timeout_ms", func(c *Config) *uint { return &c.Interceptor.TimeoutMs }),
	"lorebook.dir": {
		get: func(c *Config) string { return c.Lorebook.Dir },
		set: func(c *Config, v string) error { c.Lorebook.Dir = v; return nil },
	},
	"connections.path": {
		get: func(c *Config) string { return c.Connections.Path },
		set: func(c *Config, v string) error { c.Connections.Path = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error {
			if err := validEventsProvider(v); err != nil {
				return err
			}
			c.Events.Provider = v
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error { c.Events.Brokers = SplitList(v); return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
