// Package extension ties the settings store and the interceptor hook to the
// extension's activation lifecycle. An Extension is the single owner of the
// store; nothing holds settings as process-wide state.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/worldstate/pkg/connection"
	"github.com/papercomputeco/worldstate/pkg/eventstream"
	"github.com/papercomputeco/worldstate/pkg/eventstream/nop"
	"github.com/papercomputeco/worldstate/pkg/interceptor"
	"github.com/papercomputeco/worldstate/pkg/logger"
	"github.com/papercomputeco/worldstate/pkg/lorebook"
	"github.com/papercomputeco/worldstate/pkg/notify"
	"github.com/papercomputeco/worldstate/pkg/settings"
	"github.com/papercomputeco/worldstate/pkg/storage"
	"github.com/papercomputeco/worldstate/pkg/worldstate"
)

// Options configures Activate.
type Options struct {
	// Driver persists the settings record. Required.
	Driver storage.Driver

	// ModuleKey is the record's storage key. Defaults to settings.DefaultModuleKey.
	ModuleKey string

	Debounce  time.Duration
	Scheduler settings.Scheduler

	// HookTimeout bounds one interceptor invocation.
	HookTimeout time.Duration

	Lorebooks   lorebook.Provider
	Connections connection.Provider
	Computer    worldstate.Computer

	Publisher eventstream.Publisher
	Notifier  notify.Notifier

	// Registry receives the hook. A new one is created when nil.
	Registry *interceptor.Registry

	// Logger should be built on Level so the debugMode setting can raise
	// verbosity at runtime.
	Logger *slog.Logger
	Level  *slog.LevelVar

	// BaseLevel is the level used while debugMode is off. Defaults to Info.
	BaseLevel slog.Level

	// Instance is stamped on published events.
	Instance string
}

// Extension is an activated world-state extension.
type Extension struct {
	store       *settings.Store
	gate        *interceptor.Gate
	registry    *interceptor.Registry
	lorebooks   lorebook.Provider
	connections connection.Provider
	notifier    notify.Notifier
	level       *slog.LevelVar
	baseLevel   slog.Level
	logger      *slog.Logger

	stopWatch context.CancelFunc
	watchWG   sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Activate builds the settings store, loads the record, registers the hook
// under interceptor.HookName and, when the driver supports it, starts
// watching for edits made outside the process.
func Activate(ctx context.Context, opts Options) (*Extension, error) {
	if opts.Driver == nil {
		return nil, errors.New("extension requires a storage driver")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Level == nil {
		opts.Level = new(slog.LevelVar)
		opts.Level.Set(opts.BaseLevel)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Publisher == nil {
		opts.Publisher = nop.NewPublisher()
	}
	if opts.Registry == nil {
		opts.Registry = interceptor.NewRegistry()
	}
	if opts.Connections == nil {
		opts.Connections = connection.Static{}
	}
	if opts.ModuleKey == "" {
		opts.ModuleKey = settings.DefaultModuleKey
	}

	store, err := settings.NewStore(settings.StoreConfig{
		Key:       opts.ModuleKey,
		Driver:    opts.Driver,
		Scheduler: opts.Scheduler,
		Debounce:  opts.Debounce,
		Notifier:  opts.Notifier,
		Publisher: opts.Publisher,
		Logger:    opts.Logger,
		Instance:  opts.Instance,
	})
	if err != nil {
		return nil, fmt.Errorf("creating settings store: %w", err)
	}

	gate, err := interceptor.NewGate(interceptor.GateConfig{
		Settings:  store,
		Lorebooks: opts.Lorebooks,
		Computer:  opts.Computer,
		Publisher: opts.Publisher,
		Notifier:  opts.Notifier,
		Logger:    opts.Logger,
		Timeout:   opts.HookTimeout,
		Source:    eventstream.EventSource{ModuleKey: opts.ModuleKey, Instance: opts.Instance},
	})
	if err != nil {
		return nil, fmt.Errorf("creating interceptor: %w", err)
	}

	e := &Extension{
		store:       store,
		gate:        gate,
		registry:    opts.Registry,
		lorebooks:   opts.Lorebooks,
		connections: opts.Connections,
		notifier:    opts.Notifier,
		level:       opts.Level,
		baseLevel:   opts.BaseLevel,
		logger:      opts.Logger.With("component", "extension"),
	}

	store.OnChange(e.applyDebugMode)
	cfg := store.Get(ctx)
	e.applyDebugMode(cfg)

	e.registry.Register(interceptor.HookName, gate)

	if w, ok := opts.Driver.(storage.Watcher); ok {
		e.watch(w, opts.ModuleKey)
	}

	e.logger.Info("world state activated",
		"enabled", cfg.Enabled,
		"auto_trigger", cfg.AutoTrigger,
		"lorebook", cfg.SelectedLorebook,
	)
	return e, nil
}

// Settings returns the settings store.
func (e *Extension) Settings() *settings.Store {
	return e.store
}

// Gate returns the interceptor hook.
func (e *Extension) Gate() *interceptor.Gate {
	return e.gate
}

// Registry returns the hook registry the gate is registered in.
func (e *Extension) Registry() *interceptor.Registry {
	return e.registry
}

// Lorebooks returns the lorebook provider, which may be nil.
func (e *Extension) Lorebooks() lorebook.Provider {
	return e.lorebooks
}

// Connections returns the connection/preset provider.
func (e *Extension) Connections() connection.Provider {
	return e.connections
}

// Level returns the level var driven by the debugMode setting.
func (e *Extension) Level() *slog.LevelVar {
	return e.level
}

// Deactivate unregisters the hook, stops the watcher and writes any pending
// settings change. It is safe to call more than once.
func (e *Extension) Deactivate(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.registry.Unregister(interceptor.HookName)

		if e.stopWatch != nil {
			e.stopWatch()
			e.watchWG.Wait()
		}

		if err := e.store.Flush(ctx); err != nil {
			e.closeErr = fmt.Errorf("flushing settings: %w", err)
		}

		e.logger.Info("world state deactivated")
	})
	return e.closeErr
}

func (e *Extension) applyDebugMode(cfg settings.Configuration) {
	if cfg.DebugMode {
		e.level.Set(slog.LevelDebug)
		return
	}
	e.level.Set(e.baseLevel)
}

func (e *Extension) watch(w storage.Watcher, key string) {
	ctx, cancel := context.WithCancel(context.Background())
	e.stopWatch = cancel

	e.watchWG.Add(1)
	go func() {
		defer e.watchWG.Done()

		err := w.Watch(ctx, key, func() {
			e.logger.Debug("settings changed on disk")
			if err := e.store.Reload(ctx); err != nil {
				e.logger.Warn("could not reload settings", "error", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn("settings watcher stopped", "error", err)
			e.notifier.Notify(ctx, notify.Notification{
				Level:   notify.LevelWarning,
				Title:   "World State",
				Message: fmt.Sprintf("Settings file is no longer watched: %v", err),
			})
		}
	}()
}
