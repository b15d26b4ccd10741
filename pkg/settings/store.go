// Package settings owns the extension's Configuration record: defaults,
// additive schema reconciliation, value coercion and debounced persistence.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/worldstate/pkg/eventstream"
	"github.com/papercomputeco/worldstate/pkg/eventstream/nop"
	"github.com/papercomputeco/worldstate/pkg/logger"
	"github.com/papercomputeco/worldstate/pkg/notify"
	"github.com/papercomputeco/worldstate/pkg/storage"
)

// StoreConfig holds the collaborators of a Store.
type StoreConfig struct {
	// Key is the storage key of the record. Defaults to DefaultModuleKey.
	Key string

	// Driver reads and writes the record. Required.
	Driver storage.Driver

	// Scheduler drives the write coalescer. Defaults to RealScheduler.
	Scheduler Scheduler

	// Debounce is the quiet period before a write. Defaults to DefaultDebounce.
	Debounce time.Duration

	Notifier  notify.Notifier
	Publisher eventstream.Publisher
	Logger    *slog.Logger

	// Instance is stamped on published events.
	Instance string
}

// Store is the single owner of the Configuration record. It loads lazily on
// first access, and every mutation schedules a coalesced write. All methods
// are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	key       string
	driver    storage.Driver
	coalescer *Coalescer
	notifier  notify.Notifier
	publisher eventstream.Publisher
	logger    *slog.Logger
	source    eventstream.EventSource

	loaded bool
	cfg    Configuration
	extras storage.Record

	// readFailed is set while storage reads fail; the user is notified once
	// per outage.
	readFailed bool

	// gen counts mutations. Reload drops a record read across a mutation.
	gen uint64

	listeners []func(Configuration)
}

// NewStore builds a Store. The record is not read until the first access.
func NewStore(c StoreConfig) (*Store, error) {
	if c.Driver == nil {
		return nil, errors.New("settings store requires a storage driver")
	}
	if c.Key == "" {
		c.Key = DefaultModuleKey
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop{}
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	s := &Store{
		key:       c.Key,
		driver:    c.Driver,
		notifier:  c.Notifier,
		publisher: c.Publisher,
		logger:    c.Logger.With("component", "settings", "key", c.Key),
		source:    eventstream.EventSource{ModuleKey: c.Key, Instance: c.Instance},
	}
	s.coalescer = NewCoalescer(c.Scheduler, c.Debounce, s.persist, s.writeFailed)

	return s, nil
}

// Key returns the storage key of the record.
func (s *Store) Key() string {
	return s.key
}

// OnChange registers fn to be called with the new Configuration after every
// mutation or reload. fn runs outside the store lock.
func (s *Store) OnChange(fn func(Configuration)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// Get returns a copy of the current Configuration, loading it on first use.
// It never fails: when storage cannot be read the defaults are used and the
// failure is reported through the notifier.
func (s *Store) Get(ctx context.Context) Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.cfg
}

// Set applies a shallow partial update and schedules a write.
func (s *Store) Set(ctx context.Context, p Patch) {
	s.mutate(ctx, func(cfg *Configuration) {
		if p.Enabled != nil {
			cfg.Enabled = *p.Enabled
		}
		if p.SelectedLorebook != nil {
			cfg.SelectedLorebook = *p.SelectedLorebook
		}
		if p.SelectedCharacterListEntry != nil {
			cfg.SelectedCharacterListEntry = *p.SelectedCharacterListEntry
		}
		if p.ConnectionProfile != nil {
			cfg.ConnectionProfile = *p.ConnectionProfile
		}
		if p.Preset != nil {
			cfg.Preset = CoercePreset(*p.Preset)
		}
		if p.CharacterQuantity != nil {
			cfg.CharacterQuantity = CoerceCharacterQuantity(*p.CharacterQuantity)
		}
		if p.InjectionStrategy != nil {
			cfg.InjectionStrategy = CoerceInjectionStrategy(*p.InjectionStrategy)
		}
		if p.AutoTrigger != nil {
			cfg.AutoTrigger = *p.AutoTrigger
		}
		if p.DebugMode != nil {
			cfg.DebugMode = *p.DebugMode
		}
	})
}

// SetValue sets one key, in dotted notation, from a raw value.
func (s *Store) SetValue(ctx context.Context, key string, raw any) error {
	return s.Apply(ctx, map[string]any{key: raw})
}

// Apply sets several keys at once. Every key is checked before anything is
// changed; an unknown key leaves the record untouched. Whole sub-records are
// applied before their dotted fields.
func (s *Store) Apply(ctx context.Context, values map[string]any) error {
	for key := range values {
		if !IsValidKey(key) {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
	}

	ordered := make([]string, 0, len(values))
	for key := range values {
		ordered = append(ordered, key)
	}
	slices.SortFunc(ordered, func(a, b string) int {
		return slices.Index(keyOrder, a) - slices.Index(keyOrder, b)
	})

	s.mutate(ctx, func(cfg *Configuration) {
		for _, key := range ordered {
			keys[key].set(cfg, values[key])
		}
	})
	return nil
}

// Reset restores every field to its default and schedules a write.
func (s *Store) Reset(ctx context.Context) {
	s.mutate(ctx, func(cfg *Configuration) {
		*cfg = NewDefaultConfiguration()
	})
}

// Reload re-reads the record from storage. A local change that has not been
// written yet takes precedence and the reload is skipped.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	if s.coalescer.Pending() {
		s.logger.Debug("skipping reload with unsaved changes")
		return nil
	}

	rec, err := s.driver.Read(ctx, s.key)
	if err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("reloading settings: %w", err)
	}

	cfg, backfilled := Reconcile(rec)
	if len(backfilled) > 0 {
		s.logger.Debug("backfilled settings keys", "keys", backfilled)
	}

	s.mu.Lock()
	if s.gen != gen || s.coalescer.Pending() {
		s.mu.Unlock()
		s.logger.Debug("dropping reload superseded by a local change")
		return nil
	}
	s.cfg = cfg
	s.readFailed = false
	s.extras = Extras(rec)
	s.loaded = true
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.Info("reloaded settings")
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// Flush writes any pending change immediately.
func (s *Store) Flush(ctx context.Context) error {
	return s.coalescer.Flush(ctx)
}

// Pending reports whether a change is waiting to be written.
func (s *Store) Pending() bool {
	return s.coalescer.Pending()
}

// mutate applies fn and schedules a write. While the stored record cannot be
// read the change is kept in memory only, so the stored record is never
// replaced by defaults.
func (s *Store) mutate(ctx context.Context, fn func(cfg *Configuration)) {
	s.mu.Lock()
	loaded := s.ensureLoaded(ctx)
	fn(&s.cfg)
	s.gen++
	cfg := s.cfg
	if loaded {
		s.coalescer.Schedule(ToRecord(cfg, s.extras))
	}
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if !loaded {
		s.logger.Warn("settings change not saved, stored settings could not be read")
		s.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelWarning,
			Title:   "World State",
			Message: "Settings change not saved: stored settings could not be read",
		})
	}

	for _, l := range listeners {
		l(cfg)
	}
}

// ensureLoaded reports whether the stored record has been read. A failed
// read leaves defaults in s.cfg and is retried on the next access. It must be
// called with s.mu held.
func (s *Store) ensureLoaded(ctx context.Context) bool {
	if s.loaded {
		return true
	}

	rec, err := s.driver.Read(ctx, s.key)
	switch {
	case err == nil:
	case storage.IsNotFound(err):
		s.logger.Debug("no stored settings, using defaults")
	default:
		s.logger.Warn("could not read settings, using defaults", "error", err)
		if !s.readFailed {
			s.readFailed = true
			s.cfg = NewDefaultConfiguration()
			s.notifier.Notify(ctx, notify.Notification{
				Level:   notify.LevelWarning,
				Title:   "World State",
				Message: fmt.Sprintf("Could not load settings, defaults are in use: %v", err),
			})
		}
		return false
	}

	cfg, backfilled := Reconcile(rec)
	s.cfg = cfg
	s.extras = Extras(rec)
	s.loaded = true
	s.readFailed = false

	if len(backfilled) > 0 {
		s.logger.Debug("backfilled settings keys", "keys", backfilled)
		s.coalescer.Schedule(ToRecord(cfg, s.extras))
	}
	return true
}

func (s *Store) persist(ctx context.Context, rec storage.Record) error {
	if err := s.driver.Write(ctx, s.key, rec); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	s.logger.Debug("settings saved")

	if err := s.publisher.PublishSettings(ctx, eventstream.NewSettingsPersistedEvent(s.source, rec)); err != nil {
		s.logger.Warn("failed to publish settings event", "error", err)
	}
	return nil
}

func (s *Store) writeFailed(err error) {
	s.logger.Error("failed to save settings", "error", err)
	s.notifier.Notify(context.Background(), notify.Notification{
		Level:   notify.LevelError,
		Title:   "World State",
		Message: fmt.Sprintf("Failed to save settings: %v", err),
	})
}
