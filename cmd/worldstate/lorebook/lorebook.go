// Package lorebookcmder provides the lorebook command for browsing the
// knowledge bases the extension reads its character lists from.
package lorebookcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/cmd/worldstate/backend"
	"github.com/papercomputeco/worldstate/pkg/cliui"
	"github.com/papercomputeco/worldstate/pkg/config"
	"github.com/papercomputeco/worldstate/pkg/lorebook"
)

const lorebookLongDesc string = `Browse lorebooks.

Lorebooks are JSON (or JSON5) world-info files in lorebook.dir, by default
the lorebooks/ directory inside .worldstate/. The extension reads the
selected entry of the selected lorebook as its character list.

Examples:
  worldstate lorebook list
  worldstate lorebook show Eldoria
  worldstate lorebook show Eldoria --entry 2 --characters`

const lorebookShortDesc string = "Browse lorebooks"

func NewLorebookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lorebook",
		Short: lorebookShortDesc,
		Long:  lorebookLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

func openProvider(cmd *cobra.Command) (*lorebook.Dir, error) {
	r, err := backend.Resolve(cmd, []string{config.FlagLorebookDir})
	if err != nil {
		return nil, err
	}
	return backend.Lorebooks(r), nil
}

func newListCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available lorebooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := openProvider(cmd)
			if err != nil {
				return err
			}
			return runList(cmd, cmd.OutOrStdout(), books)
		},
	}
	config.AddStringFlag(cmd, config.Flags, config.FlagLorebookDir, &dir)

	return cmd
}

func runList(cmd *cobra.Command, w io.Writer, books *lorebook.Dir) error {
	names, err := books.ListResources(cmd.Context())
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Fprintf(w, "%s\n", cliui.DimStyle.Render("No lorebooks in "+books.Root()))
		return nil
	}

	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return nil
}

type showOpts struct {
	dir        string
	entry      string
	characters bool
	limit      int
}

func newShowCmd() *cobra.Command {
	opts := &showOpts{}

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a lorebook's entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := openProvider(cmd)
			if err != nil {
				return err
			}
			return runShow(cmd, cmd.OutOrStdout(), books, args[0], opts)
		},
	}
	config.AddStringFlag(cmd, config.Flags, config.FlagLorebookDir, &opts.dir)
	cmd.Flags().StringVarP(&opts.entry, "entry", "e", "", "Show only the entry with this ID")
	cmd.Flags().BoolVar(&opts.characters, "characters", false, "Parse the entry as a character list")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum characters to list (0 for all)")

	return cmd
}

func runShow(cmd *cobra.Command, w io.Writer, books *lorebook.Dir, name string, opts *showOpts) error {
	book, err := books.LoadResource(cmd.Context(), name)
	if err != nil {
		return err
	}

	entries := book.SortedEntries()
	if opts.entry != "" {
		e, err := book.Entry(opts.entry)
		if err != nil {
			return err
		}
		entries = []lorebook.Entry{e}
	}

	doc := renderBook(book.Name, entries, opts.characters, opts.limit)
	if cliui.IsTerminal(w) {
		if rendered, err := cliui.RenderMarkdown(doc); err == nil {
			doc = rendered
		}
	}

	fmt.Fprint(w, doc)
	return nil
}

func renderBook(name string, entries []lorebook.Entry, characters bool, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)

	if len(entries) == 0 {
		b.WriteString("_No entries._\n")
		return b.String()
	}

	for _, e := range entries {
		fmt.Fprintf(&b, "## %s (%s)\n\n", e.Label, e.ID)
		if e.Disabled {
			b.WriteString("_disabled_\n\n")
		}

		if characters {
			for _, c := range lorebook.ParseCharacterList(e.Content, limit) {
				fmt.Fprintf(&b, "- %s\n", c)
			}
			b.WriteString("\n")
			continue
		}

		if content := strings.TrimSpace(e.Content); content != "" {
			b.WriteString(content)
			b.WriteString("\n\n")
		}
	}

	return b.String()
}
