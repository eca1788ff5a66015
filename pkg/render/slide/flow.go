package slide

import (
	"strconv"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/fonts"
	"github.com/matzehuels/blockdeck/pkg/style"
)

// flow places blocks in a vertical column, advancing a cursor.
type flow struct {
	r     *Renderer
	sheet style.Sheet
}

// layout places seq in a column at (x, y) of the given width and returns
// the nodes and the cursor after the last block.
func (f *flow) layout(seq []blocks.Block, x, y, width float64) ([]*Node, float64) {
	numbers := Numbering(seq)
	var nodes []*Node
	for _, b := range seq {
		var n *Node
		n, y = f.block(b, numbers, x, y, width)
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, y
}

func (f *flow) block(b blocks.Block, numbers map[string]int, x, y, width float64) (*Node, float64) {
	s := f.sheet
	switch b.Kind {
	case blocks.KindHeading1, blocks.KindHeading2, blocks.KindHeading3:
		ts := s.HeadingStyle(headingLevel(b.Kind))
		n := f.text(b, textStyle{TextStyle: ts, Color: s.TextColor}, x, y, width)
		return n, n.Bottom() + ts.Spacing

	case blocks.KindParagraph:
		base := textStyle{TextStyle: s.Paragraph, Color: s.TextColor}
		if blocks.IsEmpty(b.RichText) {
			n := f.spacer(b.ID, x, y, width, s.Paragraph.Leading())
			return n, n.Bottom() + s.Paragraph.Spacing
		}
		n := f.text(b, base, x, y, width)
		return n, n.Bottom() + s.Paragraph.Spacing

	case blocks.KindQuote:
		return f.quote(b, x, y, width)

	case blocks.KindBulletedListItem, blocks.KindNumberedListItem:
		return f.listItem(b, numbers[b.ID], x, y, width)

	case blocks.KindDivider:
		y += s.Divider.SpacingTop
		n := &Node{
			Kind:    KindRule,
			BlockID: b.ID,
			Rect:    Rect{X: x, Y: y, W: width, H: s.Divider.Thickness},
			Fill:    s.Divider.Color,
		}
		return n, n.Bottom() + s.Divider.SpacingBottom

	case blocks.KindCallout:
		return f.callout(b, x, y, width)

	case blocks.KindColumnList:
		return f.columns(b, x, y, width)

	case blocks.KindImage:
		return f.image(b, x, y, width)
	}
	return nil, y
}

func headingLevel(k blocks.Kind) int {
	switch k {
	case blocks.KindHeading1:
		return 1
	case blocks.KindHeading2:
		return 2
	default:
		return 3
	}
}

// text lays out a text block. Empty runs give a zero-height node.
func (f *flow) text(b blocks.Block, base textStyle, x, y, width float64) *Node {
	lines := f.r.layoutText(b.RichText, base, f.sheet, x, y, width)
	return &Node{
		Kind:    KindText,
		BlockID: b.ID,
		Rect:    Rect{X: x, Y: y, W: width, H: float64(len(lines)) * base.Leading()},
		Color:   base.Color,
		Font:    fonts.Spec{Size: base.Size, Bold: base.Weight >= style.BoldWeight},
		Lines:   lines,
	}
}

func (f *flow) spacer(id string, x, y, width, h float64) *Node {
	return &Node{Kind: KindSpacer, BlockID: id, Rect: Rect{X: x, Y: y, W: width, H: h}}
}

func (f *flow) quote(b blocks.Block, x, y, width float64) (*Node, float64) {
	s := f.sheet
	if blocks.IsEmpty(b.RichText) {
		n := f.spacer(b.ID, x, y, width, s.Paragraph.Leading())
		return n, n.Bottom() + s.Quote.Spacing
	}
	inset := s.Quote.BorderWidth + s.Quote.Padding
	body := f.text(b, textStyle{TextStyle: s.Paragraph, Color: s.TextColor}, x+inset, y, max(0, width-inset))
	body.BlockID = ""
	n := &Node{
		Kind:     KindBox,
		BlockID:  b.ID,
		Rect:     Rect{X: x, Y: y, W: width, H: body.H},
		Children: []*Node{body},
	}
	if s.Quote.BorderWidth > 0 {
		n.Border = &Border{Width: s.Quote.BorderWidth, Color: s.TextColor, Left: true}
	}
	return n, n.Bottom() + s.Quote.Spacing
}

// listItem lays out one bulleted or numbered item and its nested children.
// Margins inside the item collapse the way adjacent block margins do.
func (f *flow) listItem(b blocks.Block, number int, x, y, width float64) (*Node, float64) {
	s := f.sheet
	body := textStyle{TextStyle: s.Paragraph, Color: s.TextColor}
	numbered := b.Kind == blocks.KindNumberedListItem
	if numbered && number == 0 {
		number = 1
	}

	item := &Node{Kind: KindBox, BlockID: b.ID, Rect: Rect{X: x, Y: y, W: width}}
	var (
		marker *Node
		textX  float64
	)
	if numbered {
		marker = f.marker(strconv.Itoa(number)+".", x, y, body)
		textX = x + s.List.MarkerWidth + s.List.NumberGap
	} else {
		marker = f.disc(x, y, false)
		textX = x + s.List.MarkerWidth + s.List.BulletGap
	}
	text := f.text(b, body, textX, y, max(0, x+width-textX))
	text.BlockID = ""
	item.Children = append(item.Children, marker, text)
	cursor := y + max(text.H, body.Leading())

	for i, nb := range b.Nested {
		cursor += s.List.NestedSpacing
		nx := x + s.List.NestedIndent
		var (
			nm  *Node
			ntx float64
		)
		if numbered {
			nm = f.marker(letter(i)+".", nx, cursor, body)
			ntx = nx + s.List.MarkerWidth + s.List.NumberGap
		} else {
			nm = f.disc(nx, cursor, true)
			ntx = nx + s.List.BulletSize + s.List.NestedBulletGap
		}
		nt := f.text(nb, body, ntx, cursor, max(0, x+width-ntx))
		row := &Node{
			Kind:     KindBox,
			BlockID:  nb.ID,
			Rect:     Rect{X: nx, Y: cursor, W: max(0, x+width-nx), H: max(nt.H, body.Leading())},
			Children: []*Node{nm, nt},
		}
		nt.BlockID = ""
		item.Children = append(item.Children, row)
		cursor = row.Bottom()
	}

	item.H = cursor - y
	spacing := s.Paragraph.Spacing
	if len(b.Nested) > 0 {
		spacing = max(spacing, s.List.NestedSpacing)
	}
	return item, cursor + spacing
}

func (f *flow) marker(label string, x, y float64, body textStyle) *Node {
	s := f.sheet
	return &Node{
		Kind:  KindMarker,
		Rect:  Rect{X: x, Y: y, W: s.List.MarkerWidth, H: body.Leading()},
		Color: body.Color,
		Font:  fonts.Spec{Size: body.Size, Bold: body.Weight >= style.BoldWeight},
		Lines: []Line{{
			Top:      y,
			Height:   body.Leading(),
			Baseline: y + (body.Leading()-body.Size)/2 + f.r.measurer.Ascent(fonts.Spec{Size: body.Size}),
		}},
		Label: label,
	}
}

func (f *flow) disc(x, y float64, hollow bool) *Node {
	s := f.sheet
	n := &Node{
		Kind:   KindDisc,
		Rect:   Rect{X: x, Y: y + s.List.BulletOffset, W: s.List.BulletSize, H: s.List.BulletSize},
		Fill:   s.TextColor,
		Hollow: hollow,
	}
	if hollow {
		n.Fill = ""
		n.Border = &Border{Width: s.List.NestedBulletBorder, Color: s.TextColor}
	}
	return n
}

func (f *flow) callout(b blocks.Block, x, y, width float64) (*Node, float64) {
	s := f.sheet
	if blocks.IsEmpty(b.RichText) {
		return nil, y
	}
	c := s.Callout
	var info blocks.Callout
	if b.Callout != nil {
		info = *b.Callout
	}

	fill := c.Background
	border := &Border{Width: c.BorderWidth, Color: c.BorderColor}
	textColor := s.TextColor
	switch {
	case style.IsDefaultKey(info.Color):
	case style.IsBackgroundKey(info.Color):
		if bg, ok := style.BackgroundColor(info.Color); ok {
			fill = bg
		}
		border = nil
	default:
		if tc, ok := style.TextColor(info.Color); ok {
			textColor = tc
		}
	}
	if border != nil && border.Width <= 0 {
		border = nil
	}

	inset := c.Padding
	if border != nil {
		inset += border.Width
	}
	icon := &Node{
		Kind: KindIcon,
		Rect: Rect{X: x + inset, Y: y + inset, W: c.IconSize, H: c.IconSize},
	}
	switch {
	case info.Icon.Emoji != "":
		icon.Glyph = info.Icon.Emoji
	case info.Icon.URL != "":
		icon.Src = f.r.transform(info.Icon.URL)
	default:
		icon.Glyph = c.DefaultIcon
	}

	textX := icon.X + c.IconSize + c.Gap
	body := f.text(b, textStyle{TextStyle: s.Paragraph, Color: textColor}, textX, y+inset, max(0, x+width-inset-textX))
	body.BlockID = ""

	n := &Node{
		Kind:     KindBox,
		BlockID:  b.ID,
		Rect:     Rect{X: x, Y: y, W: width, H: max(c.IconSize, body.H) + 2*inset},
		Fill:     fill,
		Border:   border,
		Radius:   c.Radius,
		Children: []*Node{icon, body},
	}
	return n, n.Bottom() + c.Spacing
}

// columns shares width by ratio weight. A column with no positive ratio
// weighs 1; weights are normalized by their sum.
func (f *flow) columns(b blocks.Block, x, y, width float64) (*Node, float64) {
	s := f.sheet
	if len(b.Columns) == 0 {
		return nil, y
	}
	weights := make([]float64, len(b.Columns))
	var total float64
	for i, c := range b.Columns {
		weights[i] = 1
		if c.Ratio != nil && *c.Ratio > 0 {
			weights[i] = *c.Ratio
		}
		total += weights[i]
	}
	avail := max(0, width-s.Columns.Gap*float64(len(b.Columns)-1))

	n := &Node{Kind: KindColumns, BlockID: b.ID, Rect: Rect{X: x, Y: y, W: width}}
	cx := x
	bottom := y
	for i, c := range b.Columns {
		cw := avail * weights[i] / total
		col := &Node{Kind: KindColumn, BlockID: c.ID, Rect: Rect{X: cx, Y: y, W: cw}}
		var end float64
		col.Children, end = f.layout(c.Blocks, cx, y, cw)
		col.H = end - y
		bottom = max(bottom, end)
		n.Children = append(n.Children, col)
		cx += cw + s.Columns.Gap
	}
	n.H = bottom - y
	return n, bottom + s.Columns.Spacing
}

func (f *flow) image(b blocks.Block, x, y, width float64) (*Node, float64) {
	s := f.sheet
	if b.Image == nil || b.Image.Src == "" {
		return nil, y
	}
	n := &Node{Kind: KindImage, BlockID: b.ID, Src: f.r.transform(b.Image.Src)}
	if iw, ih, ok := f.r.sizes(b.Image.Src); ok && iw > 0 && ih > 0 {
		w, h := FitImage(float64(iw), float64(ih), width, s.Image.MaxHeight)
		n.Rect = Rect{X: x + (width-w)/2, Y: y, W: w, H: h}
	} else {
		n.Rect = Rect{X: x, Y: y, W: width, H: s.Image.MaxHeight}
		n.Placeholder = true
	}
	return n, n.Bottom() + s.Image.Spacing
}
