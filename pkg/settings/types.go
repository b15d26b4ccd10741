package settings

// InjectionType selects where generated text is placed in the prompt.
type InjectionType string

const (
	// InjectionDepth inserts the text Depth messages from the end of the chat.
	InjectionDepth InjectionType = "depth"

	// InjectionBefore inserts the text ahead of every chat message.
	InjectionBefore InjectionType = "before"

	// InjectionAfter appends the text after the last chat message.
	InjectionAfter InjectionType = "after"
)

// Role is the speaker label given to injected text.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// InjectionStrategy describes where, at what depth, and under which role
// generated text is inserted into a prompt.
type InjectionStrategy struct {
	Type  InjectionType `json:"type" toml:"type"`
	Depth int           `json:"depth" toml:"depth"`
	Role  Role          `json:"role" toml:"role"`
}

// Configuration is the extension's settings record. One record exists per
// installation, stored under the module key.
type Configuration struct {
	Enabled                    bool              `json:"enabled"`
	SelectedLorebook           string            `json:"selectedLorebook"`
	SelectedCharacterListEntry string            `json:"selectedCharacterListEntry"`
	ConnectionProfile          string            `json:"connectionProfile"`
	Preset                     string            `json:"preset"`
	CharacterQuantity          int               `json:"characterQuantity"`
	InjectionStrategy          InjectionStrategy `json:"injectionStrategy"`
	AutoTrigger                bool              `json:"autoTrigger"`
	DebugMode                  bool              `json:"debugMode"`
}

// UsesAmbientPreset reports whether generation should use the host's active
// preset.
func (c Configuration) UsesAmbientPreset() bool {
	return c.Preset == PresetCurrent
}

// UsesAmbientConnection reports whether generation should use the host's
// active connection profile.
func (c Configuration) UsesAmbientConnection() bool {
	return c.ConnectionProfile == ""
}

// Patch is a shallow partial update. Nil fields are left unchanged;
// InjectionStrategy replaces the whole sub-record.
type Patch struct {
	Enabled                    *bool
	SelectedLorebook           *string
	SelectedCharacterListEntry *string
	ConnectionProfile          *string
	Preset                     *string
	CharacterQuantity          *int
	InjectionStrategy          *InjectionStrategy
	AutoTrigger                *bool
	DebugMode                  *bool
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}
