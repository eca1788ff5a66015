package slide

import "github.com/matzehuels/blockdeck/pkg/fonts"

// NodeKind identifies what a node draws.
type NodeKind string

const (
	KindBox     NodeKind = "box"
	KindText    NodeKind = "text"
	KindSpacer  NodeKind = "spacer"
	KindRule    NodeKind = "rule"
	KindDisc    NodeKind = "disc"
	KindMarker  NodeKind = "marker"
	KindImage   NodeKind = "image"
	KindIcon    NodeKind = "icon"
	KindColumns NodeKind = "columns"
	KindColumn  NodeKind = "column"
)

// Rect is an absolute pixel rectangle on the canvas.
type Rect struct {
	X, Y, W, H float64
}

// Bottom returns the y coordinate of the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Border is a stroke around a box. Left restricts it to the left edge.
type Border struct {
	Width float64
	Color string
	Left  bool
}

// Node is one positioned element of a slide.
type Node struct {
	Kind    NodeKind
	BlockID string
	Rect

	// Box, rule and disc.
	Fill   string
	Border *Border
	Radius float64
	Hollow bool

	// Text and marker.
	Color string
	Lines []Line
	Label string
	Font  fonts.Spec

	// Image and icon.
	Src         string
	Placeholder bool
	Glyph       string

	Children []*Node
}

// Line is one wrapped line of a text node.
type Line struct {
	Top      float64
	Height   float64
	Baseline float64
	Spans    []Span
}

// Span is a positioned piece of a line that shares one style.
type Span struct {
	X     float64
	Width float64
	TextX float64 // where the glyphs start; past X for padded code
	Text  string
	Font  fonts.Spec

	// Weight is the CSS weight; Font.Bold is set for 600 and above.
	Weight     float64
	Color      string
	Background string
	Underline  bool
	Strike     bool
	Href       string

	// Code spans sit on a padded box.
	Code       bool
	CodePadX   float64
	CodePadY   float64
	CodeRadius float64
	CodeFill   string

	// Emoji spans are inline images of EmojiSize, vertically centered on
	// the line.
	EmojiSrc  string
	EmojiAlt  string
	EmojiSize float64
}

// Overrides adjust how a sink presents the tree without changing layout.
// They are only set on preview trees.
type Overrides struct {
	Scale    float64
	Width    float64
	Height   float64
	Overflow string
}

// Tree is a rendered slide.
type Tree struct {
	Width      float64
	Height     float64
	Background string
	TextColor  string
	FontFamily string

	// Clip is the content rect; sinks clip drawing to it.
	Clip      Rect
	Overrides *Overrides
	Root      *Node
}

// Walk calls fn for n and every descendant in drawing order.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := *t
	if t.Overrides != nil {
		o := *t.Overrides
		out.Overrides = &o
	}
	out.Root = cloneNode(t.Root)
	return &out
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Border != nil {
		b := *n.Border
		out.Border = &b
	}
	if n.Lines != nil {
		out.Lines = make([]Line, len(n.Lines))
		for i, l := range n.Lines {
			l.Spans = append([]Span(nil), l.Spans...)
			out.Lines[i] = l
		}
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = cloneNode(c)
		}
	}
	return &out
}

// Preview returns a copy of t scaled to width pixels for thumbnails. The
// layout is untouched; only the presentation overrides change.
func Preview(t *Tree, width float64) *Tree {
	out := t.Clone()
	if out == nil || width <= 0 || out.Width <= 0 {
		return out
	}
	scale := width / out.Width
	out.Overrides = &Overrides{
		Scale:    scale,
		Width:    width,
		Height:   out.Height * scale,
		Overflow: "hidden",
	}
	return out
}
