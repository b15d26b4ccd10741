package settingscmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/pkg/cliui"
)

func newResetCmd() *cobra.Command {
	opts := &storageOpts{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore every setting to its default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReset(cmd, cmd.OutOrStdout())
		},
	}
	addStorageFlags(cmd, opts)

	return cmd
}

func runReset(cmd *cobra.Command, w io.Writer) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	return cliui.Step(w, "Restoring settings to defaults", func() error {
		s.store.Reset(ctx)
		if err := s.Close(ctx); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		return nil
	})
}
