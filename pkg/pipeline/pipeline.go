// Package pipeline runs the fetch → render → export pipeline for blockdeck.
//
// The CLI and the HTTP service both drive slides through a [Runner] so that
// caching, image prefetching and backend selection behave the same way at
// every entry point.
//
// # Stages
//
//  1. Blocks: resolve a page reference and fetch its normalized block tree
//  2. Render: resolve the style sheet and lay the blocks out on a slide
//  3. Export: rasterize a deck of slides and hand the files to a sink
//
// # Usage
//
//	runner := pipeline.NewRunner(client, cache, nil, logger)
//	deck, err := runner.Deck(ctx, "https://www.notion.so/Deck-1f2e...", opts)
//	if err != nil {
//	    return err
//	}
//	res, err := runner.Export(ctx, deck, opts, export.DirSink("./deck"))
package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/style"
)

// Backend names a rasterizer implementation.
const (
	// BackendGG draws slides in-process with fogleman/gg.
	BackendGG = "gg"

	// BackendRSVG renders the SVG sink output with rsvg-convert.
	BackendRSVG = "rsvg"
)

// DefaultBackend is used when Options.Backend is empty.
const DefaultBackend = BackendGG

// ValidBackends is the set of supported rasterizer backends.
var ValidBackends = map[string]bool{
	BackendGG:   true,
	BackendRSVG: true,
}

// Options contains all configuration for a pipeline run.
// It supports JSON serialization for API requests.
type Options struct {
	// Blocks options
	Refresh bool `json:"refresh,omitempty"`

	// Render options
	Style        style.Config `json:"style,omitempty"`
	PreviewWidth float64      `json:"preview_width,omitempty"`

	// Export options
	Format     string `json:"format,omitempty"`
	Backend    string `json:"backend,omitempty"`
	WidthPx    int    `json:"width_px,omitempty"`
	HeightPx   int    `json:"height_px,omitempty"`
	Quality    int    `json:"quality,omitempty"`
	Background string `json:"background,omitempty"` // "R,G,B" or #RRGGBB

	// Runtime options (not serialized)
	Logger       *log.Logger         `json:"-"`
	URLTransform func(string) string `json:"-"`
	Progress     export.Progress     `json:"-"`

	background string
	validated  bool
}

// ValidateAndSetDefaults checks the export settings and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Format == "" {
		o.Format = string(export.FormatJPEG)
	}
	f, err := export.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = string(f)

	if o.Backend == "" {
		o.Backend = DefaultBackend
	}
	if !ValidBackends[o.Backend] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid backend %q (must be one of: gg, rsvg)", o.Backend)
	}
	if f == export.FormatPDF && o.Backend != BackendRSVG {
		return errors.New(errors.ErrCodeInvalidFormat, "pdf output requires the rsvg backend")
	}

	if o.Quality < 0 || o.Quality > 100 {
		return errors.New(errors.ErrCodeInvalidInput, "quality %d out of range 1-100", o.Quality)
	}
	if o.PreviewWidth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "preview width must not be negative")
	}
	if o.Background != "" {
		bg, ok := style.ParseRGB(o.Background)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "invalid background color %q", o.Background)
		}
		o.background = bg
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ExportOptions returns the coordinator settings for these options.
// ValidateAndSetDefaults must have succeeded first.
func (o *Options) ExportOptions() export.Options {
	opts := export.Options{
		WidthPx:    o.WidthPx,
		HeightPx:   o.HeightPx,
		Format:     export.Format(o.Format),
		Quality:    o.Quality,
		Background: o.background,
	}
	opts.SetDefaults()
	return opts
}

// Sheet resolves the style configuration for the default canvas.
func (o *Options) Sheet() style.Sheet {
	return style.Resolve(o.Style, style.DefaultCanvas())
}
