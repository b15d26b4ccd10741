package settingscmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/pkg/cliui"
	"github.com/papercomputeco/worldstate/pkg/settings"
)

func newListCmd() *cobra.Command {
	opts := &storageOpts{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all settings values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, cmd.OutOrStdout())
		},
	}
	addStorageFlags(cmd, opts)

	return cmd
}

func runList(cmd *cobra.Command, w io.Writer) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	fmt.Fprintf(w, "%s %s\n\n", cliui.HeaderStyle.Render("World State settings"), cliui.DimStyle.Render("("+s.store.Key()+")"))

	cfg := s.store.Get(ctx)
	keys := settings.ScalarKeys()

	maxLen := 0
	for _, k := range keys {
		maxLen = max(maxLen, len(k))
	}

	for _, key := range keys {
		v, err := settings.GetValue(cfg, key)
		if err != nil {
			return err
		}

		text := settings.FormatValue(v)
		if text == "" {
			text = "<not set>"
		}
		fmt.Fprintf(w, "%-*s = %s\n", maxLen, key, text)
	}

	return nil
}
