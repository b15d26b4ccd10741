package settings

import "time"

const (
	// DefaultModuleKey is the storage key the settings record lives under.
	DefaultModuleKey = "world_state"

	// PresetCurrent is the preset sentinel meaning "use the host's active preset".
	PresetCurrent = "current"

	// DefaultDebounce is how long the store waits after the last mutation
	// before persisting.
	DefaultDebounce = time.Second

	defaultCharacterQuantity = 20
	defaultInjectionDepth    = 1
	defaultInjectionType     = InjectionDepth
	defaultInjectionRole     = RoleSystem
)

// NewDefaultConfiguration returns the Configuration with every field at its
// default. This is the single source of truth for default values.
func NewDefaultConfiguration() Configuration {
	return Configuration{
		Enabled:                    false,
		SelectedLorebook:           "",
		SelectedCharacterListEntry: "",
		ConnectionProfile:          "",
		Preset:                     PresetCurrent,
		CharacterQuantity:          defaultCharacterQuantity,
		InjectionStrategy:          defaultInjectionStrategy(),
		AutoTrigger:                false,
		DebugMode:                  false,
	}
}

func defaultInjectionStrategy() InjectionStrategy {
	return InjectionStrategy{
		Type:  defaultInjectionType,
		Depth: defaultInjectionDepth,
		Role:  defaultInjectionRole,
	}
}
