// Package backend resolves the layered service configuration for a command
// and opens the storage driver, event publisher and collaborators it names.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/pkg/config"
	"github.com/papercomputeco/worldstate/pkg/connection"
	"github.com/papercomputeco/worldstate/pkg/dotdir"
	"github.com/papercomputeco/worldstate/pkg/eventstream"
	"github.com/papercomputeco/worldstate/pkg/eventstream/kafka"
	"github.com/papercomputeco/worldstate/pkg/eventstream/nop"
	"github.com/papercomputeco/worldstate/pkg/eventstream/worker"
	"github.com/papercomputeco/worldstate/pkg/lorebook"
	"github.com/papercomputeco/worldstate/pkg/storage"
	"github.com/papercomputeco/worldstate/pkg/storage/file"
	"github.com/papercomputeco/worldstate/pkg/storage/inmemory"
	"github.com/papercomputeco/worldstate/pkg/storage/postgres"
	"github.com/papercomputeco/worldstate/pkg/storage/sqlite"
)

// Resolved is the configuration a command runs with.
type Resolved struct {
	Config *config.Config
	Layout dotdir.Layout
}

// Resolve layers defaults, config.toml, WORLDSTATE_* env and the command's
// registered flags (flagKeys) into a Config. The --config-dir persistent flag
// selects the .worldstate/ directory.
func Resolve(cmd *cobra.Command, flagKeys []string) (*Resolved, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	layout, err := dotdir.NewManager().Init(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v, err := config.InitViper(layout.Root)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	return &Resolved{Config: config.FromViper(v), Layout: layout}, nil
}

// OpenDriver opens the settings storage driver selected by storage.driver.
func OpenDriver(ctx context.Context, r *Resolved, logger *slog.Logger) (storage.Driver, error) {
	cfg := r.Config

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Info("using in-memory settings storage")
		return inmemory.NewDriver(), nil

	case config.StorageSQLite:
		path := cfg.SQLitePath(r.Layout.Root)
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		logger.Info("using SQLite settings storage", "path", path)
		return driver, nil

	case config.StoragePostgres:
		dsn := cfg.Storage.PostgresDSN
		if dsn == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		logger.Info("using PostgreSQL settings storage")
		return driver, nil

	case config.StorageFile, "":
		path := cfg.SettingsPath(r.Layout.Root)
		driver, err := file.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file storer: %w", err)
		}
		logger.Info("using file settings storage", "path", path)
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewPublisher returns the event publisher selected by events.provider. Broker
// publishers are wrapped in a worker pool so publishing never blocks the
// settings write path or the hook.
func NewPublisher(r *Resolved, logger *slog.Logger) (eventstream.Publisher, error) {
	cfg := r.Config

	switch cfg.Events.Provider {
	case config.EventsNop, "":
		return nop.NewPublisher(), nil

	case config.EventsKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		pool, err := worker.NewPool(&worker.Config{Publisher: p, Logger: logger})
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("creating event worker pool: %w", err)
		}
		logger.Info("publishing events to kafka", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
		return pool, nil

	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Events.Provider)
	}
}

// Lorebooks returns the lorebook directory provider.
func Lorebooks(r *Resolved) *lorebook.Dir {
	return lorebook.NewDir(r.Config.LorebookDir(r.Layout.Root))
}

// Connections returns the connection catalog provider.
func Connections(r *Resolved) *connection.File {
	return connection.NewFile(r.Config.ConnectionsPath(r.Layout.Root))
}

// Instance names this process on published events.
func Instance() string {
	host, err := os.Hostname()
	if err != nil {
		return fmt.Sprintf("pid-%d", os.Getpid())
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
