package settings

import (
	"slices"

	"github.com/papercomputeco/worldstate/pkg/storage"
)

// Reconcile turns a stored record into a complete Configuration. Keys missing
// from raw take their defaults and are reported in backfilled; keys that are
// present keep their value after coercion. A nil record yields the defaults
// with every key backfilled.
func Reconcile(raw storage.Record) (cfg Configuration, backfilled []string) {
	cfg = NewDefaultConfiguration()

	for _, key := range topLevelKeys {
		v, ok := raw[key]
		if !ok {
			backfilled = append(backfilled, key)
			continue
		}

		if key == "injectionStrategy" {
			if m, isMap := toMap(v); isMap {
				for _, sub := range injectionKeys {
					if _, ok := m[sub]; !ok {
						backfilled = append(backfilled, key+"."+sub)
					}
				}
			}
		}

		keys[key].set(&cfg, v)
	}

	return cfg, backfilled
}

// Extras returns the top-level entries of raw that are not part of the
// schema. They are carried through writes untouched so a record written by a
// newer version loses nothing.
func Extras(raw storage.Record) storage.Record {
	var out storage.Record
	for k, v := range raw {
		if slices.Contains(topLevelKeys, k) {
			continue
		}
		if out == nil {
			out = storage.Record{}
		}
		out[k] = v
	}
	return out
}

// ToRecord renders cfg as a storage record, merged over extras.
func ToRecord(cfg Configuration, extras storage.Record) storage.Record {
	rec := extras.Clone()
	if rec == nil {
		rec = storage.Record{}
	}

	rec["enabled"] = cfg.Enabled
	rec["selectedLorebook"] = cfg.SelectedLorebook
	rec["selectedCharacterListEntry"] = cfg.SelectedCharacterListEntry
	rec["connectionProfile"] = cfg.ConnectionProfile
	rec["preset"] = cfg.Preset
	rec["characterQuantity"] = cfg.CharacterQuantity
	rec["injectionStrategy"] = map[string]any{
		"type":  string(cfg.InjectionStrategy.Type),
		"depth": cfg.InjectionStrategy.Depth,
		"role":  string(cfg.InjectionStrategy.Role),
	}
	rec["autoTrigger"] = cfg.AutoTrigger
	rec["debugMode"] = cfg.DebugMode

	return rec
}
