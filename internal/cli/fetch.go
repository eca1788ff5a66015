package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/pipeline"
	"github.com/matzehuels/blockdeck/pkg/render/outline"
)

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		output  string
		refresh bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <page>",
		Short: "Fetch the normalized blocks of a page as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			seq, cached, err := c.fetchBlocks(ctx, args[0], refresh, noCache)
			if err != nil {
				return err
			}

			if output == "" {
				return writeJSON(os.Stdout, seq)
			}
			if err := errors.ValidatePath(output); err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeJSON(f, seq); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSuccess("Fetched blocks")
			printStats(0, blocks.Count(seq), cached)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached blocks")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// outlineCommand creates the outline command.
func (c *CLI) outlineCommand() *cobra.Command {
	var (
		output   string
		detailed bool
		refresh  bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "outline <page>",
		Short: "Draw the block tree of a page with Graphviz",
		Long: `Draw the normalized block tree of a page as a graph. The output format
follows the file extension: .dot, .svg, .png or .pdf. Without -o the DOT
source is printed. PNG and PDF need rsvg-convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := outlineFormat(output)
			if err != nil {
				return err
			}
			seq, _, err := c.fetchBlocks(ctx, args[0], refresh, noCache)
			if err != nil {
				return err
			}

			dot := outline.ToDOT(seq, outline.Options{Detailed: detailed})
			if output == "" {
				fmt.Print(dot)
				return nil
			}
			data, err := renderOutline(ctx, dot, format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Drew outline of %d blocks", blocks.Count(seq))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot, .svg, .png, .pdf)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with ids and payload details")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached blocks")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) fetchBlocks(ctx context.Context, ref string, refresh, noCache bool) ([]blocks.Block, bool, error) {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return nil, false, err
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	seq, cached, err := runner.Blocks(ctx, ref, pipeline.Options{Refresh: refresh})
	if err != nil {
		return nil, false, err
	}
	prog.done(fmt.Sprintf("Loaded %d blocks", blocks.Count(seq)))
	return seq, cached, nil
}

// outlineFormat maps an output path to an outline format. An empty path
// prints DOT.
func outlineFormat(path string) (string, error) {
	if path == "" {
		return "dot", nil
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if err := errors.ValidateFormat(ext, "dot", "svg", "png", "pdf"); err != nil {
		return "", err
	}
	return ext, nil
}

func renderOutline(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case "svg":
		return outline.RenderSVG(ctx, dot)
	case "png":
		return outline.RenderPNG(ctx, dot, 2)
	case "pdf":
		return outline.RenderPDF(ctx, dot)
	}
	return []byte(dot), nil
}
