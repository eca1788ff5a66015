package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/maruel/natural"
	"github.com/spf13/cobra"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/ident"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
)

const (
	sortSource = "source"
	sortTitle  = "title"
)

// pagesCommand creates the pages command.
func (c *CLI) pagesCommand() *cobra.Command {
	var (
		sortBy  string
		pick    bool
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "pages <parent>",
		Short: "List the child pages of a page",
		Long: `List the child pages of a page. These are the slides 'export' writes.

--sort title orders titles naturally, so "Slide 2" sorts before "Slide 10".
--pick opens an interactive list and prints the id of the chosen page.`,
		Example: `  blockdeck pages https://www.notion.so/Launch-0123456789abcdef0123456789abcdef
  blockdeck render "$(blockdeck pages <parent> --pick)" -o slide.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := ident.Parse(args[0])
			if err != nil {
				return err
			}
			store, err := newCache(noCache)
			if err != nil {
				return err
			}
			defer store.Close()
			client, err := newClient(ctx, store)
			if err != nil {
				return err
			}

			pages, err := client.ChildPages(ctx, id)
			if err != nil {
				return blocks.SourceError(id, err)
			}
			if err := sortPages(pages, sortBy); err != nil {
				return err
			}
			loggerFromContext(ctx).Debug("listed child pages", "parent", id, "count", len(pages))

			switch {
			case pick:
				return pickPage(pages)
			case asJSON:
				return writeJSON(os.Stdout, pages)
			}
			if len(pages) == 0 {
				printWarning("No child pages")
				printDetail("Share the child pages with the integration, or check the parent id")
				return nil
			}
			fmt.Println(pageTable(pages))
			printNewline()
			printNextStep("Export them", fmt.Sprintf("%s export %s", appName, id))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", sortSource, "order: source or title")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a page interactively and print its id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// databasesCommand creates the databases command and its pages subcommand.
func (c *CLI) databasesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "databases",
		Short: "List the databases shared with the integration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient(ctx, nil)
			if err != nil {
				return err
			}
			dbs, err := client.Databases(ctx)
			if err != nil {
				return err
			}
			sort.SliceStable(dbs, func(i, j int) bool {
				return natural.Less(strings.ToLower(dbs[i].Title), strings.ToLower(dbs[j].Title))
			})
			if asJSON {
				return writeJSON(os.Stdout, dbs)
			}
			if len(dbs) == 0 {
				printWarning("No databases shared with the integration")
				return nil
			}
			rows := make([][]string, len(dbs))
			for i, db := range dbs {
				rows[i] = []string{db.Title, db.ID}
			}
			fmt.Println(listTable([]string{"Database", "ID"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.AddCommand(c.databasePagesCommand())

	return cmd
}

func (c *CLI) databasePagesCommand() *cobra.Command {
	var (
		sortBy string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "pages <database>",
		Short: "List the pages of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := ident.Parse(args[0])
			if err != nil {
				return err
			}
			client, err := newClient(ctx, nil)
			if err != nil {
				return err
			}
			pages, err := client.DatabasePages(ctx, id)
			if err != nil {
				return err
			}
			if err := sortPages(pages, sortBy); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, pages)
			}
			fmt.Println(pageTable(pages))
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", sortSource, "order: source or title")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

// sortPages orders pages in place. Source order is kept as returned.
func sortPages(pages []notion.PageRef, by string) error {
	switch by {
	case "", sortSource:
		return nil
	case sortTitle:
		sort.SliceStable(pages, func(i, j int) bool {
			return natural.Less(strings.ToLower(pages[i].Title), strings.ToLower(pages[j].Title))
		})
		return nil
	}
	return errors.ValidateFormat(by, sortSource, sortTitle)
}

func pageTable(pages []notion.PageRef) string {
	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{fmt.Sprintf("%02d", i+1), p.Title, p.ID}
	}
	return listTable([]string{"#", "Page", "ID"}, rows)
}

func listTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == len(headers)-1:
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

func pickPage(pages []notion.PageRef) error {
	if len(pages) == 0 {
		return errors.New(errors.ErrCodeNotFound, "no child pages to pick from")
	}
	final, err := tea.NewProgram(NewPageListModel(pages), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return err
	}
	m, ok := final.(PageListModel)
	if !ok || m.Selected == nil {
		return nil
	}
	fmt.Println(m.Selected.ID)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
