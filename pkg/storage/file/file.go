// Package file provides a TOML file storage driver. All records live in one
// file, one top-level table per key, so the file stays hand-editable. Edits
// made outside the process are reported through Watch.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/worldstate/pkg/storage"
)

// DefaultFileName is the settings file name inside the dotdir.
const DefaultFileName = "settings.toml"

// Driver implements storage.Driver and storage.Watcher on a TOML file.
type Driver struct {
	path string

	mu sync.Mutex

	// seen holds the last record this driver read or wrote per key, so
	// Watch can tell our own writes from external edits.
	seen map[string]storage.Record
}

// NewDriver returns a driver for the file at path. The parent directory is
// created if needed; the file itself is created on first Write.
func NewDriver(path string) (*Driver, error) {
	if path == "" {
		return nil, errors.New("settings file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}

	return &Driver{
		path: path,
		seen: make(map[string]storage.Record),
	}, nil
}

// Path returns the backing file path.
func (d *Driver) Path() string {
	return d.path
}

// Read returns the table stored under key.
func (d *Driver) Read(_ context.Context, key string) (storage.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.readLocked(key)
	if err != nil {
		return nil, err
	}

	d.seen[key] = rec.Clone()
	return rec, nil
}

// Write replaces the table under key and rewrites the file atomically.
// Tables for other keys are preserved.
func (d *Driver) Write(_ context.Context, key string, record storage.Record) error {
	if record == nil {
		return errors.New("cannot store nil record")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.loadLocked()
	if err != nil {
		return err
	}
	doc[key] = map[string]any(record.Clone())

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}

	// Store what a re-read would produce so Watch compares like with like.
	reread, err := d.readLocked(key)
	if err == nil {
		d.seen[key] = reread
	}

	return nil
}

// Watch blocks until ctx is done and calls onChange when the table under
// key changes on disk without going through this driver.
func (d *Driver) Watch(ctx context.Context, key string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating settings watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic renames replace the file's inode.
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("watching settings dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if d.changedExternally(key) {
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("settings watcher error: %w", err)
		}
	}
}

// Close is a no-op; the file is not held open.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) changedExternally(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.readLocked(key)
	if err != nil {
		if storage.IsNotFound(err) {
			_, had := d.seen[key]
			delete(d.seen, key)
			return had
		}
		// Half-written or malformed file; wait for the next event.
		return false
	}

	if prev, ok := d.seen[key]; ok && reflect.DeepEqual(prev, rec) {
		return false
	}

	d.seen[key] = rec
	return true
}

func (d *Driver) readLocked(key string) (storage.Record, error) {
	doc, err := d.loadLocked()
	if err != nil {
		return nil, err
	}

	raw, ok := doc[key]
	if !ok {
		return nil, storage.NotFoundError{Key: key}
	}

	table, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("settings key %q is not a table", key)
	}

	return storage.Record(table).Clone(), nil
}

func (d *Driver) loadLocked() (map[string]any, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	doc := make(map[string]any)
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing settings TOML: %w", err)
	}

	return doc, nil
}
