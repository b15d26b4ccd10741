package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/papercomputeco/worldstate/pkg/storage"
)

// ValidateAndCoerce converts a raw value for field into its typed form.
// Values that cannot be parsed resolve to the field's default; the only
// error is an unknown field.
func ValidateAndCoerce(field string, raw any) (any, error) {
	info, ok := keys[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, field)
	}

	return info.coerce(raw), nil
}

// CoerceCharacterQuantity resolves raw to a positive integer, or 20.
func CoerceCharacterQuantity(raw any) int {
	n, ok := toInt(raw)
	if !ok || n < 1 {
		return defaultCharacterQuantity
	}
	return n
}

// CoerceInjectionDepth resolves raw to a non-negative integer, or 1.
func CoerceInjectionDepth(raw any) int {
	n, ok := toInt(raw)
	if !ok || n < 0 {
		return defaultInjectionDepth
	}
	return n
}

// CoerceInjectionType resolves raw to a known injection type, or "depth".
func CoerceInjectionType(raw any) InjectionType {
	s, ok := toString(raw)
	if !ok {
		return defaultInjectionType
	}

	switch t := InjectionType(strings.ToLower(strings.TrimSpace(s))); t {
	case InjectionDepth, InjectionBefore, InjectionAfter:
		return t
	default:
		return defaultInjectionType
	}
}

// CoerceRole resolves raw to a known role, or "system".
func CoerceRole(raw any) Role {
	s, ok := toString(raw)
	if !ok {
		return defaultInjectionRole
	}

	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r
	default:
		return defaultInjectionRole
	}
}

// CoercePreset resolves raw to a preset identifier; blank means "current".
func CoercePreset(raw any) string {
	s, ok := toString(raw)
	if !ok || strings.TrimSpace(s) == "" {
		return PresetCurrent
	}
	return s
}

// CoerceInjectionStrategy resolves a nested record (or an InjectionStrategy)
// field by field. Missing or invalid fields take their defaults.
func CoerceInjectionStrategy(raw any) InjectionStrategy {
	switch v := raw.(type) {
	case InjectionStrategy:
		return InjectionStrategy{
			Type:  CoerceInjectionType(string(v.Type)),
			Depth: CoerceInjectionDepth(v.Depth),
			Role:  CoerceRole(string(v.Role)),
		}
	case *InjectionStrategy:
		if v == nil {
			return defaultInjectionStrategy()
		}
		return CoerceInjectionStrategy(*v)
	}

	m, ok := toMap(raw)
	if !ok {
		return defaultInjectionStrategy()
	}

	s := defaultInjectionStrategy()
	if v, ok := m["type"]; ok {
		s.Type = CoerceInjectionType(v)
	}
	if v, ok := m["depth"]; ok {
		s.Depth = CoerceInjectionDepth(v)
	}
	if v, ok := m["role"]; ok {
		s.Role = CoerceRole(v)
	}
	return s
}

func coerceBool(raw any, def bool) bool {
	if raw == nil {
		return def
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return def
	}
	return b
}

func coerceString(raw any, def string) string {
	s, ok := toString(raw)
	if !ok {
		return def
	}
	return s
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case nil, bool:
		return 0, false
	case string:
		return parseDecimal(v)
	}

	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseDecimal reads form input in base 10 only: leading zeros do not mean
// octal and "0x" is not hex. Fractions truncate like numeric input does.
func parseDecimal(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}

	if n, err := strconv.ParseInt(s, 10, 0); err == nil {
		return int(n), true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func toString(raw any) (string, bool) {
	switch raw.(type) {
	case nil, map[string]any, storage.Record:
		return "", false
	}

	s, err := cast.ToStringE(raw)
	if err != nil {
		return "", false
	}
	return s, true
}

func toMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case storage.Record:
		return v, true
	default:
		m, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, false
		}
		return m, true
	}
}
