// Package settingscmder provides the settings command for reading and
// changing the extension settings record in the configured storage.
package settingscmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/cmd/worldstate/backend"
	"github.com/papercomputeco/worldstate/pkg/config"
	"github.com/papercomputeco/worldstate/pkg/logger"
	"github.com/papercomputeco/worldstate/pkg/settings"
	"github.com/papercomputeco/worldstate/pkg/storage"
)

const settingsLongDesc string = `Read and change the World State extension settings.

The settings record lives in the storage selected by storage.driver
(file, sqlite, postgres or memory) under settings.module_key. Changes made
here are written immediately and picked up by a running "worldstate serve"
when the file driver is used.

Keys are the record's field names; injection strategy fields use dotted
notation:
  enabled, selectedLorebook, selectedCharacterListEntry,
  connectionProfile, preset, characterQuantity,
  injectionStrategy.type, injectionStrategy.depth, injectionStrategy.role,
  autoTrigger, debugMode

Examples:
  worldstate settings list
  worldstate settings set enabled true
  worldstate settings set injectionStrategy '{type: "after", role: "user"}'
  worldstate settings reset`

const settingsShortDesc string = "Read and change extension settings"

// storageFlags are bound on every settings subcommand.
var storageFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagModuleKey,
}

type storageOpts struct {
	driver     string
	sqlitePath string
	postgres   string
	moduleKey  string
}

func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: settingsShortDesc,
		Long:  settingsLongDesc,
	}

	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}

func addStorageFlags(cmd *cobra.Command, o *storageOpts) {
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &o.driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &o.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &o.postgres)
	config.AddStringFlag(cmd, config.Flags, config.FlagModuleKey, &o.moduleKey)
}

// session is an open settings store and the driver behind it.
type session struct {
	store  *settings.Store
	driver storage.Driver
}

func (s *session) Close(ctx context.Context) error {
	flushErr := s.store.Flush(ctx)
	closeErr := s.driver.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	level := slog.LevelWarn
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	log := logger.New(
		logger.WithLevel(level),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	r, err := backend.Resolve(cmd, storageFlags)
	if err != nil {
		return nil, err
	}

	driver, err := backend.OpenDriver(ctx, r, log)
	if err != nil {
		return nil, err
	}

	store, err := settings.NewStore(settings.StoreConfig{
		Key:      r.Config.Settings.ModuleKey,
		Driver:   driver,
		Debounce: r.Config.Debounce(),
		Logger:   log,
		Instance: backend.Instance(),
	})
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("opening settings: %w", err)
	}

	return &session{store: store, driver: driver}, nil
}
