package settingscmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/papercomputeco/worldstate/pkg/cliui"
	"github.com/papercomputeco/worldstate/pkg/settings"
)

const setLongDesc string = `Set one settings value.

Values are coerced the same way the settings panel coerces them: invalid
numbers fall back to their defaults and unknown injection types or roles
fall back to "depth" and "system". A value that parses as JSON5 (an object,
number or boolean) is passed through as that type.

Examples:
  worldstate settings set enabled true
  worldstate settings set selectedLorebook Eldoria
  worldstate settings set injectionStrategy '{type: "depth", depth: 4}'`

func newSetCmd() *cobra.Command {
	opts := &storageOpts{}

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a settings value",
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, cmd.OutOrStdout(), args[0], args[1])
		},
		ValidArgsFunction: completeKeys,
	}
	addStorageFlags(cmd, opts)

	return cmd
}

func runSet(cmd *cobra.Command, w io.Writer, key, value string) error {
	if !settings.IsValidKey(key) {
		return fmt.Errorf("unknown settings key: %q\n\nValid keys: %s",
			key, strings.Join(settings.Keys(), ", "))
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	if err := s.store.SetValue(ctx, key, parseValue(value)); err != nil {
		s.Close(ctx)
		return err
	}
	if err := s.Close(ctx); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	v, _ := settings.GetValue(s.store.Get(ctx), key)
	fmt.Fprintf(w, "  %s Set %s = %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(settings.FormatValue(v)),
	)
	return nil
}

// parseValue decodes objects, numbers and booleans; anything else, including
// bare words, stays a string.
func parseValue(raw string) any {
	var v any
	if err := json5.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
