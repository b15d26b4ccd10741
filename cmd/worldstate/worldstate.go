// Package worldstatecmder
package worldstatecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/worldstate/cmd/worldstate/config"
	lorebookcmder "github.com/papercomputeco/worldstate/cmd/worldstate/lorebook"
	servecmder "github.com/papercomputeco/worldstate/cmd/worldstate/serve"
	settingscmder "github.com/papercomputeco/worldstate/cmd/worldstate/settings"
	versioncmder "github.com/papercomputeco/worldstate/cmd/version"
)

const worldstateLongDesc string = `World State keeps a chat's cast and scene in the prompt.

It owns the extension settings record and the pre-generation hook that
injects world state into outgoing chats. Hosts talk to it over HTTP or MCP:
  worldstate serve                 Run the HTTP bridge and MCP server
  worldstate settings list         Show the extension settings
  worldstate lorebook list         Show available lorebooks
  worldstate config list           Show the service configuration`

const worldstateShortDesc string = "World State - chat world-state injection"

func NewWorldStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "worldstate",
		Short:         worldstateShortDesc,
		Long:          worldstateLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .worldstate/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(settingscmder.NewSettingsCmd())
	cmd.AddCommand(lorebookcmder.NewLorebookCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
