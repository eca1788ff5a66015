package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/observability"
	"github.com/matzehuels/blockdeck/pkg/render"
	"github.com/matzehuels/blockdeck/pkg/render/images"
	"github.com/matzehuels/blockdeck/pkg/render/raster"
	"github.com/matzehuels/blockdeck/pkg/render/slide"
)

// Render resolves the style and lays seq out on one slide. Image sizes are
// prefetched one at a time; an image whose size cannot be read stays a
// placeholder.
func (r *Runner) Render(ctx context.Context, seq []blocks.Block, opts Options) (*slide.Tree, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, blocks.Count(seq))
	start := time.Now()

	sizes := r.ImageSizes(ctx, seq)
	if err := ctx.Err(); err != nil {
		hooks.OnRenderComplete(ctx, 0, time.Since(start), err)
		return nil, err
	}

	renderOpts := []slide.Option{slide.WithImageSizes(sizes.Lookup)}
	if opts.URLTransform != nil {
		renderOpts = append(renderOpts, slide.WithURLTransform(opts.URLTransform))
	}
	tree := slide.New(renderOpts...).Render(seq, opts.Sheet())
	if opts.PreviewWidth > 0 {
		tree = slide.Preview(tree, opts.PreviewWidth)
	}

	nodes := 0
	slide.Walk(tree.Root, func(*slide.Node) { nodes++ })
	hooks.OnRenderComplete(ctx, nodes, time.Since(start), nil)
	return tree, nil
}

// ImageSizes reads the intrinsic size of every image block in seq,
// including those inside columns. Failures are logged and skipped.
func (r *Runner) ImageSizes(ctx context.Context, seq []blocks.Block) images.Sizes {
	sizes := images.Sizes{}
	for _, src := range imageSources(seq) {
		if ctx.Err() != nil {
			break
		}
		if _, ok := sizes[src]; ok {
			continue
		}
		w, h, err := r.Images.Size(ctx, src)
		if err != nil {
			r.Logger.Debug("image size unavailable", "src", src, "error", err)
			continue
		}
		sizes[src] = [2]int{w, h}
	}
	return sizes
}

func imageSources(seq []blocks.Block) []string {
	var out []string
	for _, b := range seq {
		switch {
		case b.Kind == blocks.KindImage && b.Image != nil && b.Image.Src != "":
			out = append(out, b.Image.Src)
		case b.Kind == blocks.KindColumnList:
			for _, c := range b.Columns {
				out = append(out, imageSources(c.Blocks)...)
			}
		}
	}
	return out
}

// Rasterizer returns the backend for the validated options. SVG output is
// always produced by the SVG sink; PDF needs rsvg-convert.
func (r *Runner) Rasterizer(opts Options) (export.Rasterizer, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	format := export.Format(opts.Format)
	if format == export.FormatSVG {
		return render.NewRSVGRasterizer(r.Images, r.Logger), nil
	}
	if opts.Backend == BackendRSVG {
		if !render.Available() {
			return nil, errors.New(errors.ErrCodeUnsupported, "%s not found in PATH", render.RSVGConvert)
		}
		return render.NewRSVGRasterizer(r.Images, r.Logger), nil
	}
	return raster.New(r.Images, r.Logger), nil
}

// Export renders every slide of deck and writes them to sink in order.
func (r *Runner) Export(ctx context.Context, deck *Deck, opts Options, sink export.Sink) (export.Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return export.Result{}, err
	}
	if deck == nil || len(deck.Slides) == 0 {
		return export.Result{}, errors.New(errors.ErrCodeExportFailure, "nothing to export")
	}
	rz, err := r.Rasterizer(opts)
	if err != nil {
		return export.Result{}, err
	}

	// Exports are always full size.
	renderOpts := opts
	renderOpts.PreviewWidth = 0
	renderOpts.URLTransform = nil

	slides := make([]export.Slide, 0, len(deck.Slides))
	for _, s := range deck.Slides {
		tree, err := r.Render(ctx, s.Blocks, renderOpts)
		if err != nil {
			return export.Result{}, err
		}
		slides = append(slides, export.Slide{Title: s.Page.Title, Tree: tree})
	}

	coord := export.NewCoordinator(rz, sink, opts.ExportOptions())
	coord.Progress = opts.Progress
	res, err := coord.ExportAll(ctx, slides)
	if err != nil {
		return res, err
	}
	r.Logger.Info("exported deck",
		"parent", deck.Parent.Title,
		"slides", res.Exported,
		"format", opts.Format,
		"duration", res.Duration)
	return res, nil
}
