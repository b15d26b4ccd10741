package settings

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownKey is returned for a key that is not part of the schema.
var ErrUnknownKey = errors.New("unknown settings key")

// keyInfo maps a settings key to a getter, a coercing setter, and the
// coercion itself.
type keyInfo struct {
	get    func(c *Configuration) any
	set    func(c *Configuration, raw any)
	coerce func(raw any) any
}

func boolKey(field func(c *Configuration) *bool, def bool) keyInfo {
	return keyInfo{
		get:    func(c *Configuration) any { return *field(c) },
		set:    func(c *Configuration, raw any) { *field(c) = coerceBool(raw, def) },
		coerce: func(raw any) any { return coerceBool(raw, def) },
	}
}

func stringKey(field func(c *Configuration) *string, def string) keyInfo {
	return keyInfo{
		get:    func(c *Configuration) any { return *field(c) },
		set:    func(c *Configuration, raw any) { *field(c) = coerceString(raw, def) },
		coerce: func(raw any) any { return coerceString(raw, def) },
	}
}

// keys is the authoritative map of all settings keys. Nested fields use
// dotted notation.
var keys = map[string]keyInfo{
	"enabled": boolKey(func(c *Configuration) *bool { return &c.Enabled }, false),
	"selectedLorebook": stringKey(
		func(c *Configuration) *string { return &c.SelectedLorebook }, ""),
	"selectedCharacterListEntry": stringKey(
		func(c *Configuration) *string { return &c.SelectedCharacterListEntry }, ""),
	"connectionProfile": stringKey(
		func(c *Configuration) *string { return &c.ConnectionProfile }, ""),
	"preset": {
		get:    func(c *Configuration) any { return c.Preset },
		set:    func(c *Configuration, raw any) { c.Preset = CoercePreset(raw) },
		coerce: func(raw any) any { return CoercePreset(raw) },
	},
	"characterQuantity": {
		get:    func(c *Configuration) any { return c.CharacterQuantity },
		set:    func(c *Configuration, raw any) { c.CharacterQuantity = CoerceCharacterQuantity(raw) },
		coerce: func(raw any) any { return CoerceCharacterQuantity(raw) },
	},
	"injectionStrategy": {
		get:    func(c *Configuration) any { return c.InjectionStrategy },
		set:    func(c *Configuration, raw any) { c.InjectionStrategy = CoerceInjectionStrategy(raw) },
		coerce: func(raw any) any { return CoerceInjectionStrategy(raw) },
	},
	"injectionStrategy.type": {
		get:    func(c *Configuration) any { return c.InjectionStrategy.Type },
		set:    func(c *Configuration, raw any) { c.InjectionStrategy.Type = CoerceInjectionType(raw) },
		coerce: func(raw any) any { return CoerceInjectionType(raw) },
	},
	"injectionStrategy.depth": {
		get:    func(c *Configuration) any { return c.InjectionStrategy.Depth },
		set:    func(c *Configuration, raw any) { c.InjectionStrategy.Depth = CoerceInjectionDepth(raw) },
		coerce: func(raw any) any { return CoerceInjectionDepth(raw) },
	},
	"injectionStrategy.role": {
		get:    func(c *Configuration) any { return c.InjectionStrategy.Role },
		set:    func(c *Configuration, raw any) { c.InjectionStrategy.Role = CoerceRole(raw) },
		coerce: func(raw any) any { return CoerceRole(raw) },
	},
	"autoTrigger": boolKey(func(c *Configuration) *bool { return &c.AutoTrigger }, false),
	"debugMode":   boolKey(func(c *Configuration) *bool { return &c.DebugMode }, false),
}

// keyOrder lists keys in schema order. Entries without a dot are the
// top-level record fields.
var keyOrder = []string{
	"enabled",
	"selectedLorebook",
	"selectedCharacterListEntry",
	"connectionProfile",
	"preset",
	"characterQuantity",
	"injectionStrategy",
	"injectionStrategy.type",
	"injectionStrategy.depth",
	"injectionStrategy.role",
	"autoTrigger",
	"debugMode",
}

var topLevelKeys = []string{
	"enabled",
	"selectedLorebook",
	"selectedCharacterListEntry",
	"connectionProfile",
	"preset",
	"characterQuantity",
	"injectionStrategy",
	"autoTrigger",
	"debugMode",
}

var injectionKeys = []string{"type", "depth", "role"}

// Keys returns every settings key in schema order.
func Keys() []string {
	out := make([]string, len(keyOrder))
	copy(out, keyOrder)
	return out
}

// ScalarKeys returns the keys whose values are scalars (everything except
// the injectionStrategy sub-record itself).
func ScalarKeys() []string {
	out := make([]string, 0, len(keyOrder))
	for _, k := range keyOrder {
		if k == "injectionStrategy" {
			continue
		}
		out = append(out, k)
	}
	return out
}

// IsValidKey reports whether key is part of the settings schema.
func IsValidKey(key string) bool {
	_, ok := keys[key]
	return ok
}

// GetValue returns the typed value of key in c.
func GetValue(c Configuration, key string) (any, error) {
	info, ok := keys[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return info.get(&c), nil
}

// FormatValue renders a settings value for display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case InjectionType:
		return string(t)
	case Role:
		return string(t)
	case InjectionStrategy:
		return fmt.Sprintf("type=%s depth=%d role=%s", t.Type, t.Depth, t.Role)
	default:
		return fmt.Sprint(v)
	}
}
