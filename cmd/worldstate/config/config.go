// Package configcmder provides the config command for managing persistent
// worldstate service configuration stored in the .worldstate/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent worldstate service configuration.

Configuration is stored as config.toml in the .worldstate/ directory and
provides default values for command flags. WORLDSTATE_* environment variables
and CLI flags take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  settings.module_key, settings.debounce_ms,
  interceptor.timeout_ms,
  lorebook.dir, connections.path,
  api.listen,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  worldstate config set <key> <value>    Set a configuration value
  worldstate config get <key>            Get a configuration value
  worldstate config list                 List all configuration values

Examples:
  worldstate config set storage.driver sqlite
  worldstate config set events.brokers kafka-1:9092,kafka-2:9092
  worldstate config get api.listen
  worldstate config list`

const configShortDesc string = "Manage persistent worldstate configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
