// Package versioncmder
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/pkg/cliui"
	"github.com/papercomputeco/worldstate/pkg/utils"
)

type VersionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func (c *VersionCommander) run(w io.Writer) error {
	fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render("Version:"), utils.Version)
	fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render("Sha:"), utils.Sha)
	fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render("Built at:"), utils.Buildtime)
	return nil
}
