package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/fonts"
	"github.com/matzehuels/blockdeck/pkg/render/sink"
	"github.com/matzehuels/blockdeck/pkg/render/slide"
	"github.com/matzehuels/blockdeck/pkg/style"
)

// ImageSource decodes the images a tree references.
type ImageSource interface {
	Decode(ctx context.Context, url string) (image.Image, error)
}

// Rasterizer implements export.Rasterizer with gg.
type Rasterizer struct {
	Images ImageSource
	Logger *log.Logger
}

// New creates a rasterizer. With a nil source images draw as placeholders.
func New(images ImageSource, logger *log.Logger) *Rasterizer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Rasterizer{Images: images, Logger: logger}
}

// Rasterize draws tree and encodes it as JPEG or PNG.
func (r *Rasterizer) Rasterize(ctx context.Context, tree *slide.Tree, opts export.RasterOptions) ([]byte, error) {
	switch opts.Format {
	case export.FormatJPEG, export.FormatPNG, "":
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "raster backend cannot write %s", opts.Format)
	}
	img, err := r.Draw(ctx, tree, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if opts.Format == export.FormatPNG {
		err = imaging.Encode(&buf, img, imaging.PNG)
	} else {
		q := opts.Quality
		if q <= 0 {
			q = export.DefaultQuality
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", opts.Format)
	}
	return buf.Bytes(), nil
}

// Draw paints tree onto a WidthPx x HeightPx canvas. A zero size uses the
// tree's own size times Scale.
func (r *Rasterizer) Draw(ctx context.Context, tree *slide.Tree, opts export.RasterOptions) (image.Image, error) {
	s := opts.Scale
	if s <= 0 {
		s = 1
		if opts.WidthPx > 0 && tree.Width > 0 {
			s = float64(opts.WidthPx) / tree.Width
		}
	}
	w, h := opts.WidthPx, opts.HeightPx
	if w <= 0 {
		w = int(math.Round(tree.Width * s))
	}
	if h <= 0 {
		h = int(math.Round(tree.Height * s))
	}

	p := &painter{
		ctx:    ctx,
		dc:     gg.NewContext(w, h),
		s:      s,
		faces:  make(map[fonts.Spec]font.Face),
		images: r.Images,
		logger: r.Logger,
	}
	bg := opts.Background
	if bg == "" {
		bg = tree.Background
	}
	p.dc.SetColor(style.RGBA(bg))
	p.dc.Clear()

	p.dc.DrawRectangle(tree.Clip.X*s, tree.Clip.Y*s, tree.Clip.W*s, tree.Clip.H*s)
	p.dc.Clip()
	if tree.Root != nil {
		for _, c := range tree.Root.Children {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p.node(c)
		}
	}
	p.dc.ResetClip()
	return p.dc.Image(), nil
}

type painter struct {
	ctx    context.Context
	dc     *gg.Context
	s      float64
	faces  map[fonts.Spec]font.Face
	images ImageSource
	logger *log.Logger
}

func (p *painter) node(n *slide.Node) {
	switch n.Kind {
	case slide.KindBox:
		p.box(n)
	case slide.KindText:
		for _, line := range n.Lines {
			for _, sp := range line.Spans {
				p.span(line, sp)
			}
		}
	case slide.KindRule:
		p.fillRect(n.X, n.Y, n.W, n.H, n.Fill)
	case slide.KindDisc:
		p.disc(n)
	case slide.KindMarker:
		p.marker(n)
	case slide.KindImage:
		p.image(n)
	case slide.KindIcon:
		p.icon(n)
	case slide.KindColumns, slide.KindColumn:
		for _, c := range n.Children {
			p.node(c)
		}
	}
}

func (p *painter) fillRect(x, y, w, h float64, fill string) {
	if fill == "" || w <= 0 || h <= 0 {
		return
	}
	p.dc.SetColor(style.RGBA(fill))
	p.dc.DrawRectangle(x*p.s, y*p.s, w*p.s, h*p.s)
	p.dc.Fill()
}

func (p *painter) roundRect(x, y, w, h, r float64) {
	s := p.s
	if r > 0 {
		p.dc.DrawRoundedRectangle(x*s, y*s, w*s, h*s, r*s)
		return
	}
	p.dc.DrawRectangle(x*s, y*s, w*s, h*s)
}

func (p *painter) box(n *slide.Node) {
	if n.Fill != "" {
		p.dc.SetColor(style.RGBA(n.Fill))
		p.roundRect(n.X, n.Y, n.W, n.H, n.Radius)
		p.dc.Fill()
	}
	if b := n.Border; b != nil && b.Width > 0 {
		if b.Left {
			p.fillRect(n.X, n.Y, b.Width, n.H, b.Color)
		} else {
			half := b.Width / 2
			p.dc.SetColor(style.RGBA(b.Color))
			p.dc.SetLineWidth(b.Width * p.s)
			p.roundRect(n.X+half, n.Y+half, n.W-b.Width, n.H-b.Width, max(0, n.Radius-half))
			p.dc.Stroke()
		}
	}
	for _, c := range n.Children {
		p.node(c)
	}
}

// face returns a face for spec at output scale.
func (p *painter) face(spec fonts.Spec) font.Face {
	scaled := spec
	scaled.Size = spec.Size * p.s
	f, ok := p.faces[scaled]
	if !ok {
		f = fonts.NewFace(scaled)
		p.faces[scaled] = f
	}
	return f
}

// drawable drops runes the font has no glyph for.
func drawable(spec fonts.Spec, s string) string {
	f := fonts.Font(spec)
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' || f.Index(r) != 0 {
			out = append(out, r)
		}
	}
	return string(out)
}

func (p *painter) span(line slide.Line, sp slide.Span) {
	s := p.s
	if sp.EmojiSrc != "" {
		size := sp.EmojiSize
		p.drawImage(sp.EmojiSrc, sp.X, line.Top+(line.Height-size)/2, size, size)
		return
	}
	if sp.Background != "" {
		p.fillRect(sp.X, line.Top, sp.Width, line.Height, sp.Background)
	}
	if sp.Code && sp.CodeFill != "" {
		h := sp.Font.Size + 2*sp.CodePadY
		p.dc.SetColor(style.RGBA(sp.CodeFill))
		p.roundRect(sp.X, line.Top+(line.Height-h)/2, sp.Width, h, sp.CodeRadius)
		p.dc.Fill()
	}
	text := drawable(sp.Font, sp.Text)
	if text == "" {
		return
	}

	p.dc.SetFontFace(p.face(sp.Font))
	p.dc.SetColor(style.RGBA(sp.Color))
	p.dc.DrawString(text, sp.TextX*s, line.Baseline*s)

	thickness := max(1, sp.Font.Size/16)
	textW := sp.Width - 2*(sp.TextX-sp.X)
	if sp.Underline {
		p.fillRect(sp.TextX, line.Baseline+sp.Font.Size*0.1, textW, thickness, sp.Color)
	}
	if sp.Strike {
		p.fillRect(sp.TextX, line.Baseline-sp.Font.Size*0.3, textW, thickness, sp.Color)
	}
}

func (p *painter) disc(n *slide.Node) {
	s := p.s
	cx, cy, r := (n.X+n.W/2)*s, (n.Y+n.H/2)*s, n.W/2*s
	if n.Hollow && n.Border != nil {
		p.dc.SetColor(style.RGBA(n.Border.Color))
		p.dc.SetLineWidth(n.Border.Width * s)
		p.dc.DrawCircle(cx, cy, max(0, r-n.Border.Width*s/2))
		p.dc.Stroke()
		return
	}
	p.dc.SetColor(style.RGBA(n.Fill))
	p.dc.DrawCircle(cx, cy, r)
	p.dc.Fill()
}

func (p *painter) marker(n *slide.Node) {
	baseline := n.Y + n.H*0.7
	if len(n.Lines) > 0 {
		baseline = n.Lines[0].Baseline
	}
	p.dc.SetFontFace(p.face(n.Font))
	p.dc.SetColor(style.RGBA(n.Color))
	w, _ := p.dc.MeasureString(n.Label)
	p.dc.DrawString(n.Label, (n.X+n.W)*p.s-w, baseline*p.s)
}

func (p *painter) image(n *slide.Node) {
	if n.Placeholder {
		p.fillRect(n.X, n.Y, n.W, n.H, sink.PlaceholderFill)
	}
	p.drawImage(n.Src, n.X, n.Y, n.W, n.H)
}

func (p *painter) icon(n *slide.Node) {
	if n.Glyph == "" {
		p.drawImage(n.Src, n.X, n.Y, n.W, n.H)
		return
	}
	spec := fonts.Spec{Size: n.H * 0.8}
	glyph := drawable(spec, n.Glyph)
	if glyph == "" {
		return
	}
	p.dc.SetFontFace(p.face(spec))
	p.dc.SetColor(color.Black)
	p.dc.DrawStringAnchored(glyph, (n.X+n.W/2)*p.s, (n.Y+n.H/2)*p.s, 0.5, 0.35)
}

// drawImage draws src contained and centered in the box. Failures are
// logged and leave the box empty.
func (p *painter) drawImage(src string, x, y, w, h float64) {
	if src == "" || p.images == nil {
		return
	}
	img, err := p.images.Decode(p.ctx, src)
	if err != nil {
		p.logger.Debug("image skipped", "src", src, "error", err)
		return
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	bw, bh := w*p.s, h*p.s
	k := math.Min(bw/float64(b.Dx()), bh/float64(b.Dy()))
	dw := max(1, int(math.Round(float64(b.Dx())*k)))
	dh := max(1, int(math.Round(float64(b.Dy())*k)))
	scaled := imaging.Resize(img, dw, dh, imaging.Lanczos)
	p.dc.DrawImage(scaled,
		int(math.Round(x*p.s+(bw-float64(dw))/2)),
		int(math.Round(y*p.s+(bh-float64(dh))/2)))
}
