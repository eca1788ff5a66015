package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/pipeline"
	"github.com/matzehuels/blockdeck/pkg/style"
)

// renderFlags are shared by render and export.
type renderFlags struct {
	stylePath  string
	backend    string
	background string
	quality    int
	refresh    bool
	noCache    bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.stylePath, "style", "", "style file (default ~/.config/blockdeck/style.toml if present)")
	cmd.Flags().StringVar(&f.backend, "backend", pipeline.DefaultBackend, "raster backend: gg or rsvg")
	cmd.Flags().StringVar(&f.background, "bg", "", `background override, "R,G,B" or #RRGGBB`)
	cmd.Flags().IntVar(&f.quality, "quality", export.DefaultQuality, "JPEG quality (1-100)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass cached blocks")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
}

// options builds validated pipeline options for format.
func (f *renderFlags) options(format string) (pipeline.Options, error) {
	cfg, err := loadStyle(f.stylePath)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		Refresh:    f.refresh,
		Style:      cfg,
		Format:     format,
		Backend:    f.backend,
		Quality:    f.quality,
		Background: f.background,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags  renderFlags
		output string
		width  int
	)

	cmd := &cobra.Command{
		Use:   "render <page>",
		Short: "Render one page as a slide",
		Long: `Render the blocks of one page onto the slide canvas. The output format
follows the file extension of -o: .svg, .png, .jpg or .pdf. PDF output
needs --backend rsvg and rsvg-convert in PATH.`,
		Example: `  blockdeck render <page> -o slide.png
  blockdeck render <page> -o slide.svg --style brand.toml
  blockdeck render <page> -o preview.jpg --preview-width 540`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := outputFormat(output)
			if err != nil {
				return err
			}
			opts, err := flags.options(string(format))
			if err != nil {
				return err
			}
			if width > 0 {
				opts.WidthPx, opts.HeightPx = scaledSize(opts.Sheet().Canvas, width)
			}

			runner, err := c.newRunner(ctx, flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinnerWithContext(ctx, "Rendering slide...")
			spinner.Start()
			data, seq, cached, err := renderOne(ctx, runner, args[0], opts)
			if err != nil {
				spinner.StopWithError("Render failed")
				return err
			}
			spinner.Stop()

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Rendered slide")
			printStats(1, blocks.Count(seq), cached)
			printFile(output)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.svg, .png, .jpg, .pdf)")
	cmd.Flags().IntVar(&width, "preview-width", 0, "output width in px, height follows the canvas ratio")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// renderOne renders a single page through the export coordinator, so one
// slide goes through exactly the path every exported slide takes.
func renderOne(ctx context.Context, runner *pipeline.Runner, ref string, opts pipeline.Options) ([]byte, []blocks.Block, bool, error) {
	seq, cached, err := runner.Blocks(ctx, ref, opts)
	if err != nil {
		return nil, nil, false, err
	}
	deck := &pipeline.Deck{Slides: []pipeline.DeckSlide{{Page: notion.PageRef{ID: ref}, Blocks: seq}}}

	var sink export.MemorySink
	res, err := runner.Export(ctx, deck, opts, &sink)
	if err != nil {
		return nil, nil, false, err
	}
	if len(res.Files) == 0 {
		return nil, nil, false, errors.New(errors.ErrCodeExportFailure, "slide was not written")
	}
	data, ok := sink.Get(res.Files[0])
	if !ok {
		return nil, nil, false, errors.New(errors.ErrCodeExportFailure, "slide was not written")
	}
	return data, seq, cached, nil
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		flags  renderFlags
		dir    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export <parent>",
		Short: "Export every child page of a page as slides",
		Long: `Export the child pages of a parent page as numbered slides: 01.jpg,
02.jpg and so on, in the order the pages appear in the parent.

The output directory defaults to a slug of the parent title in the current
directory.`,
		Example: `  blockdeck export https://www.notion.so/Launch-0123456789abcdef0123456789abcdef
  blockdeck export <parent> --format png --bg 255,255,255 -d out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := flags.options(format)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinnerWithContext(ctx, "Fetching pages...")
			spinner.Start()
			deck, err := runner.Deck(ctx, args[0], opts)
			if err != nil {
				spinner.StopWithError("Fetch failed")
				return err
			}

			if dir == "" {
				dir = export.Dir(".", deck.Parent.Title)
			}
			if err := errors.ValidatePath(dir); err != nil {
				spinner.Stop()
				return err
			}
			opts.Progress = func(done, total int) {
				spinner.SetMessage("Exporting slide %d/%d...", done, total)
			}
			spinner.SetMessage("Exporting %d slides...", len(deck.Slides))

			prog := newProgress(loggerFromContext(ctx))
			res, err := runner.Export(ctx, deck, opts, export.DirSink(dir))
			if err != nil {
				spinner.StopWithError("Export failed")
				return err
			}
			spinner.Stop()
			prog.done(fmt.Sprintf("Exported %d slides", res.Exported))

			total := 0
			for _, s := range deck.Slides {
				total += blocks.Count(s.Blocks)
			}
			printSuccess("Exported %s", StyleHighlight.Render(deck.Parent.Title))
			printStats(res.Exported, total, false)
			for _, name := range res.Files {
				printFile(filepath.Join(dir, name))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory (default ./<parent title>)")
	cmd.Flags().StringVar(&format, "format", string(export.FormatJPEG), "output format: "+strings.Join(export.Formats, ", "))

	return cmd
}

// outputFormat picks the export format from a file extension.
func outputFormat(path string) (export.Format, error) {
	if err := errors.ValidatePath(path); err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot tell the format of %q: add an extension such as .png", path)
	}
	return export.ParseFormat(ext)
}

// scaledSize fits width to the canvas aspect ratio.
func scaledSize(canvas style.Canvas, width int) (int, int) {
	if canvas.Width <= 0 {
		canvas = style.DefaultCanvas()
	}
	return width, int(math.Round(float64(width) * canvas.Height / canvas.Width))
}
