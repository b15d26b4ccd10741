// Package inmemory provides a map-backed storage driver used for tests and
// for ephemeral runs.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/worldstate/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards records and writes.
	mu sync.RWMutex

	records map[string]storage.Record

	// writes counts successful Write calls per key.
	writes map[string]int
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]storage.Record),
		writes:  make(map[string]int),
	}
}

// Read returns a copy of the record stored under key.
func (d *Driver) Read(_ context.Context, key string) (storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[key]
	if !ok {
		return nil, storage.NotFoundError{Key: key}
	}

	return rec.Clone(), nil
}

// Write stores a copy of record under key.
func (d *Driver) Write(_ context.Context, key string, record storage.Record) error {
	if record == nil {
		return errors.New("cannot store nil record")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[key] = record.Clone()
	d.writes[key]++
	return nil
}

// Seed stores record under key without counting it as a write.
func (d *Driver) Seed(key string, record storage.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[key] = record.Clone()
}

// Writes returns how many times key has been written.
func (d *Driver) Writes(key string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.writes[key]
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
