package config

// Storage drivers.
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Event providers.
const (
	EventsNop   = "nop"
	EventsKafka = "kafka"
)

const (
	defaultStorageDriver = StorageFile
	defaultModuleKey     = "world_state"
	defaultDebounceMs    = 1000
	defaultTimeoutMs     = 2000
	defaultAPIListen     = ":8765"
	defaultEventsProv    = EventsNop
	defaultEventsTopic   = "worldstate.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Settings: SettingsConfig{
			ModuleKey:  defaultModuleKey,
			DebounceMs: defaultDebounceMs,
		},
		Interceptor: InterceptorConfig{
			TimeoutMs: defaultTimeoutMs,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProv,
			Topic:    defaultEventsTopic,
		},
	}
}
