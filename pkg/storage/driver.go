// Package storage defines the host storage collaborator: an opaque key/record
// store the settings layer reads from and writes to.
package storage

import (
	"context"
	"maps"
	"slices"
)

// Record is the opaque persisted form of a settings record. Values are the
// loosely typed scalars and nested maps that JSON and TOML decoders produce.
type Record map[string]any

// Clone returns a deep copy of r. Nested records are copied, other values are
// shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	out := make(Record, len(r))
	for k, v := range r {
		switch nested := v.(type) {
		case Record:
			out[k] = nested.Clone()
		case map[string]any:
			out[k] = map[string]any(Record(nested).Clone())
		default:
			out[k] = v
		}
	}
	return out
}

// Keys returns the sorted top-level keys of r.
func (r Record) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Driver defines the interface for reading and writing records in a storage
// backend.
type Driver interface {
	// Read returns the record stored under key. If nothing is stored it
	// returns a NotFoundError.
	Read(ctx context.Context, key string) (Record, error)

	// Write stores record under key, replacing any previous record.
	Write(ctx context.Context, key string, record Record) error

	// Close releases any resources held by the driver.
	Close() error
}

// Watcher is implemented by drivers whose records can change outside the
// process. Watch blocks until ctx is done, calling onChange whenever the
// record under key is modified externally.
type Watcher interface {
	Watch(ctx context.Context, key string, onChange func()) error
}
