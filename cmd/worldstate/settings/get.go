package settingscmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/pkg/cliui"
	"github.com/papercomputeco/worldstate/pkg/settings"
)

const getLongDesc string = `Get one settings value.

Examples:
  worldstate settings get characterQuantity
  worldstate settings get injectionStrategy.depth`

func newGetCmd() *cobra.Command {
	opts := &storageOpts{}

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a settings value",
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, cmd.OutOrStdout(), args[0])
		},
		ValidArgsFunction: completeKeys,
	}
	addStorageFlags(cmd, opts)

	return cmd
}

func runGet(cmd *cobra.Command, w io.Writer, key string) error {
	if !settings.IsValidKey(key) {
		return fmt.Errorf("unknown settings key: %q\n\nValid keys: %s",
			key, strings.Join(settings.Keys(), ", "))
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	v, err := settings.GetValue(s.store.Get(ctx), key)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(settings.FormatValue(v)))
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return settings.Keys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
