package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSettingsPersisted is emitted after a settings record is written.
	EventTypeSettingsPersisted = "worldstate.settings.persisted"

	// EventTypeInterception is emitted after every interceptor invocation.
	EventTypeInterception = "worldstate.interceptor.invoked"
)

// EventSource identifies which installation emitted the event.
type EventSource struct {
	ModuleKey string `json:"module_key"`
	Instance  string `json:"instance,omitempty"`
}

// SettingsPersistedEvent is a transport-neutral payload for a settings write.
type SettingsPersistedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Source        EventSource    `json:"source"`
	Settings      map[string]any `json:"settings"`
}

// NewSettingsPersistedEvent stamps a settings event with an ID and time.
func NewSettingsPersistedEvent(source EventSource, settings map[string]any) *SettingsPersistedEvent {
	return &SettingsPersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSettingsPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Settings:      settings,
	}
}

// InterceptionEvent records what the interceptor decided for one generation.
type InterceptionEvent struct {
	SchemaVersion  int         `json:"schema_version"`
	EventType      string      `json:"event_type"`
	EventID        string      `json:"event_id"`
	EmittedAt      time.Time   `json:"emitted_at"`
	Source         EventSource `json:"source"`
	Hook           string      `json:"hook"`
	GenerationKind string      `json:"generation_kind"`
	UserInitiated  bool        `json:"user_initiated"`
	Outcome        string      `json:"outcome"`
	Reason         string      `json:"reason,omitempty"`
	Error          string      `json:"error,omitempty"`
	DurationMs     int64       `json:"duration_ms"`
	InjectedChars  int         `json:"injected_chars,omitempty"`
}

// NewInterceptionEvent stamps an interception event with an ID and time.
func NewInterceptionEvent(source EventSource) *InterceptionEvent {
	return &InterceptionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeInterception,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
	}
}
