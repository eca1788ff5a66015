package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/render/sink"
	"github.com/matzehuels/blockdeck/pkg/render/slide"
)

// RSVGConvert is the converter binary looked up on PATH.
const RSVGConvert = "rsvg-convert"

// Available reports whether rsvg-convert is installed.
func Available() bool {
	_, err := exec.LookPath(RSVGConvert)
	return err == nil
}

// ToPDF converts SVG to PDF.
func ToPDF(svg []byte) ([]byte, error) {
	return Convert(context.Background(), svg, "-f", "pdf")
}

// ToPNG converts SVG to PNG at the given zoom factor.
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return Convert(context.Background(), svg, "-f", "png", "-z", strconv.FormatFloat(scale, 'f', -1, 64))
}

// ToSized converts SVG to a PNG of exactly w x h pixels on a solid
// background.
func ToSized(ctx context.Context, svg []byte, w, h int, bg string) ([]byte, error) {
	args := []string{"-f", "png", "-w", strconv.Itoa(w), "-h", strconv.Itoa(h)}
	if bg != "" {
		args = append(args, "-b", bg)
	}
	return Convert(ctx, svg, args...)
}

// Convert pipes svg through rsvg-convert with args.
func Convert(ctx context.Context, svg []byte, args ...string) ([]byte, error) {
	path, err := exec.LookPath(RSVGConvert)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s not found: install librsvg (brew install librsvg, apt install librsvg2-bin)", RSVGConvert)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(svg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", RSVGConvert, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ImageResolver inlines referenced images.
type ImageResolver interface {
	DataURI(ctx context.Context, url string) (string, error)
}

// RSVGRasterizer implements export.Rasterizer through the SVG sink and
// rsvg-convert. Referenced images are inlined as data URIs first, since
// rsvg-convert does not fetch remote resources.
type RSVGRasterizer struct {
	Images ImageResolver
	Logger *log.Logger
}

// NewRSVGRasterizer creates the rsvg backend. A nil resolver drops images.
func NewRSVGRasterizer(images ImageResolver, logger *log.Logger) *RSVGRasterizer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &RSVGRasterizer{Images: images, Logger: logger}
}

// Rasterize implements export.Rasterizer. SVG output needs no converter.
func (r *RSVGRasterizer) Rasterize(ctx context.Context, tree *slide.Tree, opts export.RasterOptions) ([]byte, error) {
	uris, err := r.inline(ctx, tree)
	if err != nil {
		return nil, err
	}
	svg := sink.RenderSVG(tree, sink.WithEmbeddedFonts(), sink.WithImageResolver(func(src string) string {
		return uris[src]
	}))

	w, h := opts.WidthPx, opts.HeightPx
	if w <= 0 {
		w = int(tree.Width)
	}
	if h <= 0 {
		h = int(tree.Height)
	}

	switch opts.Format {
	case export.FormatSVG:
		return svg, nil
	case export.FormatPDF:
		return Convert(ctx, svg, "-f", "pdf", "-w", strconv.Itoa(w), "-h", strconv.Itoa(h))
	case export.FormatPNG:
		return ToSized(ctx, svg, w, h, opts.Background)
	case export.FormatJPEG, "":
		png, err := ToSized(ctx, svg, w, h, opts.Background)
		if err != nil {
			return nil, err
		}
		return toJPEG(png, opts.Quality)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "rsvg backend cannot write %s", opts.Format)
}

// inline resolves every image source in tree to a data URI, one at a
// time. Sources that fail are logged and left out.
func (r *RSVGRasterizer) inline(ctx context.Context, tree *slide.Tree) (map[string]string, error) {
	uris := make(map[string]string)
	if r.Images == nil {
		return uris, nil
	}
	var srcs []string
	slide.Walk(tree.Root, func(n *slide.Node) {
		if n.Src != "" {
			srcs = append(srcs, n.Src)
		}
		for _, line := range n.Lines {
			for _, s := range line.Spans {
				if s.EmojiSrc != "" {
					srcs = append(srcs, s.EmojiSrc)
				}
			}
		}
	})
	for _, src := range srcs {
		if _, done := uris[src]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		uri, err := r.Images.DataURI(ctx, src)
		if err != nil {
			r.Logger.Debug("image skipped", "src", src, "error", err)
		}
		uris[src] = uri
	}
	return uris, nil
}

func toJPEG(png []byte, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", RSVGConvert, err)
	}
	if quality <= 0 {
		quality = export.DefaultQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
