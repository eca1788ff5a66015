package outline

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/render"
)

// Options configures outline rendering.
type Options struct {
	// Title labels the root node. Empty means "page".
	Title string

	// Detailed adds block ids and payload details to labels.
	Detailed bool

	// PreviewLen bounds the text preview in runes. Zero means 40.
	PreviewLen int
}

const rootID = "page"

// ToDOT converts a block tree to Graphviz DOT.
func ToDOT(tree []blocks.Block, opts Options) string {
	if opts.PreviewLen <= 0 {
		opts.PreviewLen = 40
	}
	title := opts.Title
	if title == "" {
		title = rootID
	}

	w := &writer{opts: opts, seen: map[string]int{rootID: 1}}
	w.buf.WriteString("digraph G {\n")
	w.buf.WriteString("  rankdir=LR;\n")
	w.buf.WriteString("  bgcolor=\"transparent\";\n")
	w.buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	w.buf.WriteString("  ranksep=0.5;\n")
	w.buf.WriteString("  nodesep=0.2;\n")
	w.buf.WriteString("\n")
	fmt.Fprintf(&w.buf, "  %q [label=%q, fillcolor=\"#37352F\", fontcolor=white];\n", rootID, title)

	for _, b := range tree {
		w.block(rootID, b)
	}
	if len(w.edges) > 0 {
		w.buf.WriteString("\n")
		for _, e := range w.edges {
			w.buf.WriteString(e)
		}
	}
	w.buf.WriteString("}\n")
	return w.buf.String()
}

type writer struct {
	opts  Options
	buf   bytes.Buffer
	edges []string
	seen  map[string]int
}

// nodeID returns a unique DOT id for a block id. Blocks without ids get a
// positional one.
func (w *writer) nodeID(id string) string {
	if id == "" {
		id = "block"
	}
	w.seen[id]++
	if n := w.seen[id]; n > 1 {
		return id + "#" + strconv.Itoa(n)
	}
	return id
}

func (w *writer) node(parent, id, label string, attrs ...string) string {
	nid := w.nodeID(id)
	all := append([]string{fmt.Sprintf("label=%q", label)}, attrs...)
	fmt.Fprintf(&w.buf, "  %q [%s];\n", nid, strings.Join(all, ", "))
	w.edges = append(w.edges, fmt.Sprintf("  %q -> %q;\n", parent, nid))
	return nid
}

func (w *writer) block(parent string, b blocks.Block) {
	id := w.node(parent, b.ID, w.label(b), attrs(b)...)
	for _, nb := range b.Nested {
		w.block(id, nb)
	}
	for i, col := range b.Columns {
		label := fmt.Sprintf("column %d", i+1)
		if col.Ratio != nil {
			label += fmt.Sprintf("\nratio %.2f", *col.Ratio)
		}
		cid := w.node(id, col.ID, label, `style="rounded,dashed"`)
		for _, cb := range col.Blocks {
			w.block(cid, cb)
		}
	}
}

func (w *writer) label(b blocks.Block) string {
	parts := []string{string(b.Kind)}
	if text := preview(blocks.PlainText(b.RichText), w.opts.PreviewLen); text != "" {
		parts = append(parts, text)
	}
	if !w.opts.Detailed {
		return strings.Join(parts, "\n")
	}
	if b.ID != "" {
		parts = append(parts, "id: "+b.ID)
	}
	if b.Image != nil {
		parts = append(parts, "src: "+preview(b.Image.Src, w.opts.PreviewLen))
	}
	if c := b.Callout; c != nil {
		if c.Icon.Emoji != "" {
			parts = append(parts, "icon: "+c.Icon.Emoji)
		}
		if c.Color != "" {
			parts = append(parts, "color: "+c.Color)
		}
	}
	return strings.Join(parts, "\n")
}

func attrs(b blocks.Block) []string {
	switch {
	case b.Kind == blocks.KindColumnList:
		return []string{"fillcolor=\"#F1F1EF\""}
	case b.Kind == blocks.KindImage && (b.Image == nil || b.Image.Src == ""):
		return []string{`style="rounded,filled,dashed"`, "fillcolor=lightgrey"}
	case b.Kind.IsText() && blocks.IsEmpty(b.RichText):
		return []string{"fontcolor=grey"}
	}
	return nil
}

// preview collapses whitespace and truncates s to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RenderSVG renders DOT to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a
// pixel-sized one so the outline scales like the slides do.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPNG renders DOT as PNG via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}

// RenderPDF renders DOT as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}
