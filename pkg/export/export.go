package export

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/observability"
	"github.com/matzehuels/blockdeck/pkg/render/slide"
	"github.com/matzehuels/blockdeck/pkg/style"
)

// Format is an output file format.
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatSVG  Format = "svg"
)

// Formats lists every supported format.
var Formats = []string{string(FormatJPEG), string(FormatPNG), string(FormatPDF), string(FormatSVG)}

// ParseFormat accepts a format name or common alias such as "jpeg".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "pdf":
		return FormatPDF, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", errors.ValidateFormat(s, Formats...)
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string { return string(f) }

// DefaultQuality is the JPEG quality used when none is set.
const DefaultQuality = 92

// RasterOptions tells a rasterizer what to produce.
type RasterOptions struct {
	WidthPx    int
	HeightPx   int
	Scale      float64 // output pixels per layout pixel
	Background string  // #RRGGBB
	Format     Format
	Quality    int
}

// Rasterizer turns a slide tree into encoded image bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, tree *slide.Tree, opts RasterOptions) ([]byte, error)
}

// Options configures an export batch.
type Options struct {
	WidthPx  int
	HeightPx int
	Format   Format
	Quality  int

	// Background overrides the slide background when set.
	Background string
}

// DefaultOptions returns 1080x1350 JPEG output at quality 92.
func DefaultOptions() Options {
	opts := Options{}
	opts.SetDefaults()
	return opts
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.WidthPx <= 0 {
		o.WidthPx = 1080
	}
	if o.HeightPx <= 0 {
		o.HeightPx = 1350
	}
	if o.Format == "" {
		o.Format = FormatJPEG
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
}

// WithBackground parses an "R,G,B" or hex override into the options.
func (o *Options) WithBackground(s string) error {
	if s == "" {
		return nil
	}
	c, ok := style.ParseRGB(s)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "invalid background color %q", s)
	}
	o.Background = c
	return nil
}

// Slide is one slide of a deck.
type Slide struct {
	Title string
	Tree  *slide.Tree
}

// Result summarizes an export batch.
type Result struct {
	Exported int
	Files    []string
	Duration time.Duration
}

// Progress is called after each slide is written.
type Progress func(done, total int)

// Coordinator runs export batches.
type Coordinator struct {
	Rasterizer Rasterizer
	Sink       Sink
	Options    Options
	Progress   Progress
}

// NewCoordinator creates a coordinator with defaults applied to opts.
func NewCoordinator(r Rasterizer, sink Sink, opts Options) *Coordinator {
	opts.SetDefaults()
	return &Coordinator{Rasterizer: r, Sink: sink, Options: opts}
}

// FileName returns the name of slide i (zero-based).
func FileName(i int, f Format) string {
	return fmt.Sprintf("%02d", i+1) + "." + f.Ext()
}

// ExportAll rasterizes and writes slides in order, one at a time. On the
// first failure it returns an EXPORT_FAILURE error naming the slide, with
// Result.Exported counting the slides written before it.
func (c *Coordinator) ExportAll(ctx context.Context, slides []Slide) (Result, error) {
	opts := c.Options
	opts.SetDefaults()
	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, len(slides), string(opts.Format))
	start := time.Now()

	var res Result
	finish := func(err error) (Result, error) {
		res.Duration = time.Since(start)
		hooks.OnExportComplete(ctx, res.Exported, res.Duration, err)
		return res, err
	}

	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if s.Tree == nil {
			return finish(errors.New(errors.ErrCodeExportFailure, "slide %d has no content", i+1))
		}
		tree := Neutralize(s.Tree, opts)
		data, err := c.Rasterizer.Rasterize(ctx, tree, RasterOptions{
			WidthPx:    opts.WidthPx,
			HeightPx:   opts.HeightPx,
			Scale:      float64(opts.WidthPx) / tree.Width,
			Background: tree.Background,
			Format:     opts.Format,
			Quality:    opts.Quality,
		})
		if err != nil {
			return finish(errors.Wrap(errors.ErrCodeExportFailure, err, "rasterize slide %d", i+1))
		}

		name := FileName(i, opts.Format)
		if err := c.Sink.Write(ctx, name, data); err != nil {
			return finish(errors.Wrap(errors.ErrCodeExportFailure, err, "write slide %d", i+1))
		}
		res.Exported++
		res.Files = append(res.Files, name)
		hooks.OnSlideExported(ctx, i, name, len(data))
		if c.Progress != nil {
			c.Progress(i+1, len(slides))
		}
	}
	return finish(nil)
}

// Neutralize returns a copy of tree prepared for full-size output: preview
// overrides are removed and the background is forced to the configured
// one, if any. The tree's own layout size is kept; rasterizers scale it to
// the target pixel size.
func Neutralize(tree *slide.Tree, opts Options) *slide.Tree {
	out := tree.Clone()
	out.Overrides = nil
	if opts.Background != "" {
		out.Background = opts.Background
		if out.Root != nil {
			out.Root.Fill = opts.Background
		}
	}
	return out
}
