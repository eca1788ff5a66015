package slide

import (
	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/fonts"
	"github.com/matzehuels/blockdeck/pkg/style"
)

// Measurer measures text for wrapping and baseline placement.
// [*fonts.Metrics] implements it.
type Measurer interface {
	Width(s string, spec fonts.Spec) float64
	Ascent(spec fonts.Spec) float64
}

// ImageSizer reports the intrinsic pixel size of an image source.
type ImageSizer func(src string) (w, h int, ok bool)

// Renderer lays out blocks on a slide. A Renderer is immutable after
// construction and safe for concurrent use if its measurer is.
type Renderer struct {
	transform func(string) string
	measurer  Measurer
	sizes     ImageSizer
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithURLTransform rewrites every image, icon and emoji source, for example
// to route it through an image proxy.
func WithURLTransform(fn func(string) string) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.transform = fn
		}
	}
}

// WithMeasurer sets the text measurer.
func WithMeasurer(m Measurer) Option {
	return func(r *Renderer) {
		if m != nil {
			r.measurer = m
		}
	}
}

// WithImageSizes sets the lookup for intrinsic image sizes. Images whose
// size is unknown are laid out as placeholders.
func WithImageSizes(fn ImageSizer) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.sizes = fn
		}
	}
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		transform: func(s string) string { return s },
		sizes:     func(string) (int, int, bool) { return 0, 0, false },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.measurer == nil {
		r.measurer = fonts.NewMetrics()
	}
	return r
}

// Render lays out seq top to bottom on one slide. Content that runs past
// the content rect stays in the tree; sinks clip it.
func (r *Renderer) Render(seq []blocks.Block, sheet style.Sheet) *Tree {
	clip := Rect{
		X: sheet.Padding.Left,
		Y: sheet.Padding.Top,
		W: sheet.ContentWidth,
		H: sheet.ContentHeight,
	}
	root := &Node{
		Kind: KindBox,
		Rect: Rect{W: sheet.Canvas.Width, H: sheet.Canvas.Height},
		Fill: sheet.Background,
	}
	f := &flow{r: r, sheet: sheet}
	root.Children, _ = f.layout(seq, clip.X, clip.Y, clip.W)

	return &Tree{
		Width:      sheet.Canvas.Width,
		Height:     sheet.Canvas.Height,
		Background: sheet.Background,
		TextColor:  sheet.TextColor,
		FontFamily: sheet.FontFamily,
		Clip:       clip,
		Root:       root,
	}
}

// FitImage scales an intrinsic size to the full available width, then
// shrinks it to maxH if it is too tall. The aspect ratio is preserved.
func FitImage(iw, ih, maxW, maxH float64) (w, h float64) {
	if iw <= 0 || ih <= 0 {
		return maxW, maxH
	}
	w = maxW
	h = w * ih / iw
	if h > maxH {
		h = maxH
		w = h * iw / ih
	}
	return w, h
}
