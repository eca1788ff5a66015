package sink

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/blockdeck/pkg/fonts"
	"github.com/matzehuels/blockdeck/pkg/render/slide"
)

// PlaceholderFill is drawn behind images whose size was unknown at layout.
const PlaceholderFill = "#F1F1EF"

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	embedFonts bool
	resolve    func(src string) string
}

// WithEmbeddedFonts inlines the Go fonts used for measurement.
func WithEmbeddedFonts() SVGOption { return func(r *svgRenderer) { r.embedFonts = true } }

// WithImageResolver rewrites image and icon sources at write time. An empty
// result drops the image.
func WithImageResolver(fn func(src string) string) SVGOption {
	return func(r *svgRenderer) {
		if fn != nil {
			r.resolve = fn
		}
	}
}

// RenderSVG writes t as a standalone SVG document.
func RenderSVG(t *slide.Tree, opts ...SVGOption) []byte {
	r := svgRenderer{resolve: func(s string) string { return s }}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	w, h := t.Width, t.Height
	if o := t.Overrides; o != nil {
		w, h = o.Width, o.Height
	}
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %s %s" width="%.0f" height="%.0f"`,
		num(w), num(h), w, h)
	if o := t.Overrides; o != nil && o.Overflow != "" {
		fmt.Fprintf(&buf, ` overflow="%s"`, escape(o.Overflow))
	}
	buf.WriteString(">\n")

	r.renderDefs(&buf, t)
	if o := t.Overrides; o != nil && o.Scale > 0 {
		fmt.Fprintf(&buf, "  <g transform=\"scale(%s)\">\n", num(o.Scale))
	}

	fmt.Fprintf(&buf, "  <rect x=\"0\" y=\"0\" width=\"%s\" height=\"%s\" fill=\"%s\"/>\n",
		num(t.Width), num(t.Height), escape(t.Background))
	fmt.Fprintf(&buf, "  <g clip-path=\"url(#content)\" font-family=\"%s\" fill=\"%s\">\n",
		escape(r.family(t.FontFamily)), escape(t.TextColor))
	if t.Root != nil {
		for _, c := range t.Root.Children {
			r.renderNode(&buf, c)
		}
	}
	buf.WriteString("  </g>\n")

	if o := t.Overrides; o != nil && o.Scale > 0 {
		buf.WriteString("  </g>\n")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) family(stack string) string {
	if r.embedFonts {
		return fmt.Sprintf("'%s', %s", fonts.Family, stack)
	}
	return stack
}

func (r *svgRenderer) monoFamily() string {
	if r.embedFonts {
		return fmt.Sprintf("'%s', monospace", fonts.MonoFamily)
	}
	return "SFMono-Regular, Menlo, Monaco, Consolas, monospace"
}

func (r *svgRenderer) renderDefs(buf *bytes.Buffer, t *slide.Tree) {
	buf.WriteString("  <defs>\n")
	fmt.Fprintf(buf, "    <clipPath id=\"content\"><rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\"/></clipPath>\n",
		num(t.Clip.X), num(t.Clip.Y), num(t.Clip.W), num(t.Clip.H))
	if r.embedFonts {
		buf.WriteString("    <style>\n")
		faces := []struct {
			family string
			spec   fonts.Spec
		}{
			{fonts.Family, fonts.Spec{}},
			{fonts.Family, fonts.Spec{Bold: true}},
			{fonts.Family, fonts.Spec{Italic: true}},
			{fonts.Family, fonts.Spec{Bold: true, Italic: true}},
			{fonts.MonoFamily, fonts.Spec{Mono: true}},
			{fonts.MonoFamily, fonts.Spec{Mono: true, Bold: true}},
		}
		for _, f := range faces {
			weight, fstyle := "normal", "normal"
			if f.spec.Bold {
				weight = "bold"
			}
			if f.spec.Italic {
				fstyle = "italic"
			}
			fmt.Fprintf(buf, "      @font-face { font-family: '%s'; font-weight: %s; font-style: %s; src: url(data:font/ttf;base64,%s) format('truetype'); }\n",
				f.family, weight, fstyle, fonts.Base64(f.spec))
		}
		buf.WriteString("    </style>\n")
	}
	buf.WriteString("  </defs>\n")
}

func (r *svgRenderer) renderNode(buf *bytes.Buffer, n *slide.Node) {
	switch n.Kind {
	case slide.KindBox:
		r.renderBox(buf, n)
	case slide.KindText:
		r.renderText(buf, n)
	case slide.KindRule:
		fmt.Fprintf(buf, "    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" fill=\"%s\"/>\n",
			num(n.X), num(n.Y), num(n.W), num(n.H), escape(n.Fill))
	case slide.KindDisc:
		renderDisc(buf, n)
	case slide.KindMarker:
		renderMarker(buf, n)
	case slide.KindImage:
		r.renderImage(buf, n)
	case slide.KindIcon:
		r.renderIcon(buf, n)
	case slide.KindColumns, slide.KindColumn:
		buf.WriteString("    <g>\n")
		for _, c := range n.Children {
			r.renderNode(buf, c)
		}
		buf.WriteString("    </g>\n")
	case slide.KindSpacer:
	}
}

func (r *svgRenderer) renderBox(buf *bytes.Buffer, n *slide.Node) {
	b := n.Border
	if n.Fill != "" || (b != nil && !b.Left) {
		fill := n.Fill
		if fill == "" {
			fill = "none"
		}
		fmt.Fprintf(buf, "    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" rx=\"%s\" fill=\"%s\"",
			num(n.X), num(n.Y), num(n.W), num(n.H), num(n.Radius), escape(fill))
		if b != nil && !b.Left && b.Width > 0 {
			// Stroke inside the box edge.
			fmt.Fprintf(buf, ` stroke="%s" stroke-width="%s"`, escape(b.Color), num(b.Width))
		}
		buf.WriteString("/>\n")
	}
	if b != nil && b.Left && b.Width > 0 {
		fmt.Fprintf(buf, "    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" fill=\"%s\"/>\n",
			num(n.X), num(n.Y), num(b.Width), num(n.H), escape(b.Color))
	}
	for _, c := range n.Children {
		r.renderNode(buf, c)
	}
}

func (r *svgRenderer) renderText(buf *bytes.Buffer, n *slide.Node) {
	for _, line := range n.Lines {
		for _, s := range line.Spans {
			r.renderSpan(buf, line, s)
		}
	}
}

func (r *svgRenderer) renderSpan(buf *bytes.Buffer, line slide.Line, s slide.Span) {
	if s.EmojiSrc != "" {
		src := r.resolve(s.EmojiSrc)
		if src == "" {
			return
		}
		y := line.Top + (line.Height-s.EmojiSize)/2
		fmt.Fprintf(buf, "    <image x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" href=\"%s\" xlink:href=\"%s\"/>\n",
			num(s.X), num(y), num(s.EmojiSize), num(s.EmojiSize), escape(src), escape(src))
		return
	}
	if s.Background != "" {
		fmt.Fprintf(buf, "    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" fill=\"%s\"/>\n",
			num(s.X), num(line.Top), num(s.Width), num(line.Height), escape(s.Background))
	}
	if s.Code {
		h := s.Font.Size + 2*s.CodePadY
		fmt.Fprintf(buf, "    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" rx=\"%s\" fill=\"%s\"/>\n",
			num(s.X), num(line.Top+(line.Height-h)/2), num(s.Width), num(h), num(s.CodeRadius), escape(s.CodeFill))
	}
	if s.Text == "" {
		return
	}

	if s.Href != "" {
		fmt.Fprintf(buf, "    <a href=\"%s\" target=\"_blank\">\n", escape(s.Href))
	}
	fmt.Fprintf(buf, "    <text x=\"%s\" y=\"%s\" font-size=\"%s\" font-weight=\"%.0f\" fill=\"%s\" xml:space=\"preserve\"",
		num(s.TextX), num(line.Baseline), num(s.Font.Size), s.Weight, escape(s.Color))
	if s.Font.Italic {
		buf.WriteString(` font-style="italic"`)
	}
	if s.Font.Mono {
		fmt.Fprintf(buf, ` font-family="%s"`, escape(r.monoFamily()))
	}
	if deco := decoration(s); deco != "" {
		fmt.Fprintf(buf, ` text-decoration="%s"`, deco)
	}
	fmt.Fprintf(buf, ">%s</text>\n", escape(s.Text))
	if s.Href != "" {
		buf.WriteString("    </a>\n")
	}
}

func decoration(s slide.Span) string {
	var parts []string
	if s.Underline {
		parts = append(parts, "underline")
	}
	if s.Strike {
		parts = append(parts, "line-through")
	}
	return strings.Join(parts, " ")
}

func renderDisc(buf *bytes.Buffer, n *slide.Node) {
	cx, cy, rad := n.X+n.W/2, n.Y+n.H/2, n.W/2
	if n.Hollow && n.Border != nil {
		fmt.Fprintf(buf, "    <circle cx=\"%s\" cy=\"%s\" r=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%s\"/>\n",
			num(cx), num(cy), num(max(0, rad-n.Border.Width/2)), escape(n.Border.Color), num(n.Border.Width))
		return
	}
	fmt.Fprintf(buf, "    <circle cx=\"%s\" cy=\"%s\" r=\"%s\" fill=\"%s\"/>\n",
		num(cx), num(cy), num(rad), escape(n.Fill))
}

func renderMarker(buf *bytes.Buffer, n *slide.Node) {
	baseline := n.Y + n.H*0.7
	if len(n.Lines) > 0 {
		baseline = n.Lines[0].Baseline
	}
	fmt.Fprintf(buf, "    <text x=\"%s\" y=\"%s\" font-size=\"%s\" text-anchor=\"end\" fill=\"%s\">%s</text>\n",
		num(n.X+n.W), num(baseline), num(n.Font.Size), escape(n.Color), escape(n.Label))
}

func (r *svgRenderer) renderImage(buf *bytes.Buffer, n *slide.Node) {
	src := r.resolve(n.Src)
	if n.Placeholder {
		fmt.Fprintf(buf, "    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" fill=\"%s\"/>\n",
			num(n.X), num(n.Y), num(n.W), num(n.H), PlaceholderFill)
	}
	if src == "" {
		return
	}
	fmt.Fprintf(buf, "    <image x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" preserveAspectRatio=\"xMidYMid meet\" href=\"%s\" xlink:href=\"%s\"/>\n",
		num(n.X), num(n.Y), num(n.W), num(n.H), escape(src), escape(src))
}

func (r *svgRenderer) renderIcon(buf *bytes.Buffer, n *slide.Node) {
	if n.Glyph != "" {
		fmt.Fprintf(buf, "    <text x=\"%s\" y=\"%s\" font-size=\"%s\" text-anchor=\"middle\" dominant-baseline=\"central\">%s</text>\n",
			num(n.X+n.W/2), num(n.Y+n.H/2), num(n.H), escape(n.Glyph))
		return
	}
	if src := r.resolve(n.Src); src != "" {
		fmt.Fprintf(buf, "    <image x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" preserveAspectRatio=\"xMidYMid meet\" href=\"%s\" xlink:href=\"%s\"/>\n",
			num(n.X), num(n.Y), num(n.W), num(n.H), escape(src), escape(src))
	}
}

// Attributes are always double quoted, so single quotes stay literal and
// font stacks such as 'Go', Inter read the same in the output.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"\t", "&#x9;",
	"\n", "&#xA;",
	"\r", "&#xD;",
)

func escape(s string) string {
	return xmlEscaper.Replace(strings.Map(xmlRune, s))
}

// xmlRune replaces runes XML 1.0 does not allow with U+FFFD.
func xmlRune(r rune) rune {
	switch {
	case r == '\t' || r == '\n' || r == '\r',
		r >= 0x20 && r <= 0xD7FF,
		r >= 0xE000 && r <= 0xFFFD,
		r >= 0x10000 && r <= 0x10FFFF:
		return r
	}
	return '\uFFFD'
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
