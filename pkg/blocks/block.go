package blocks

import "strings"

// Kind is the closed set of block kinds a slide can render.
type Kind string

// Block kinds.
const (
	KindHeading1         Kind = "heading1"
	KindHeading2         Kind = "heading2"
	KindHeading3         Kind = "heading3"
	KindParagraph        Kind = "paragraph"
	KindBulletedListItem Kind = "bulletedListItem"
	KindNumberedListItem Kind = "numberedListItem"
	KindImage            Kind = "image"
	KindDivider          Kind = "divider"
	KindQuote            Kind = "quote"
	KindCallout          Kind = "callout"
	KindColumnList       Kind = "columnList"
)

// sourceKinds maps source type tags onto kinds.
var sourceKinds = map[string]Kind{
	"heading_1":          KindHeading1,
	"heading_2":          KindHeading2,
	"heading_3":          KindHeading3,
	"paragraph":          KindParagraph,
	"bulleted_list_item": KindBulletedListItem,
	"numbered_list_item": KindNumberedListItem,
	"image":              KindImage,
	"divider":            KindDivider,
	"quote":              KindQuote,
	"callout":            KindCallout,
	"column_list":        KindColumnList,
}

// KindOf returns the kind for a source type tag.
func KindOf(sourceType string) (Kind, bool) {
	k, ok := sourceKinds[sourceType]
	return k, ok
}

// IsText reports whether blocks of kind k carry rich text.
func (k Kind) IsText() bool {
	switch k {
	case KindHeading1, KindHeading2, KindHeading3, KindParagraph,
		KindBulletedListItem, KindNumberedListItem, KindQuote, KindCallout:
		return true
	}
	return false
}

// IsListItem reports whether k is a bulleted or numbered list item.
func (k Kind) IsListItem() bool {
	return k == KindBulletedListItem || k == KindNumberedListItem
}

// Block is one normalized content unit.
type Block struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	HasChildren bool   `json:"hasChildren,omitempty"`

	// RichText is set for text kinds.
	RichText []Run `json:"richText,omitempty"`

	// Nested holds the direct children of a list item. Nested blocks never
	// have nested children of their own.
	Nested []Block `json:"nested,omitempty"`

	Image   *Image   `json:"image,omitempty"`
	Callout *Callout `json:"callout,omitempty"`
	Columns []Column `json:"columns,omitempty"`
}

// Run is one rich text run: either literal text or a custom emoji.
type Run struct {
	Text        string      `json:"text,omitempty"`
	Href        string      `json:"href,omitempty"`
	Annotations Annotations `json:"annotations"`
	Emoji       *Emoji      `json:"emoji,omitempty"`
}

// Annotations are inline styles. Color is a palette key such as "red" or
// "blue_background"; empty and "default" mean no change.
type Annotations struct {
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Color         string `json:"color,omitempty"`
}

// Emoji is a custom emoji rendered inline as an image.
type Emoji struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Image is the payload of an image block. Src is empty when the source
// gave neither a hosted nor an external URL.
type Image struct {
	Src string `json:"src"`
}

// Icon is a resolved callout icon. At most one of Emoji and URL is set;
// both empty means the default glyph.
type Icon struct {
	Emoji string `json:"emoji,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Callout is the payload of a callout block.
type Callout struct {
	Icon  Icon   `json:"icon"`
	Color string `json:"color,omitempty"`
}

// Column is one column of a column list. Ratio is nil when no width was
// declared and none could be derived.
type Column struct {
	ID     string   `json:"id"`
	Ratio  *float64 `json:"ratio,omitempty"`
	Blocks []Block  `json:"blocks"`
}

// PlainText joins the text of runs, rendering emoji runs as their alt text.
func PlainText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Emoji != nil {
			b.WriteString(r.Emoji.Alt)
			continue
		}
		b.WriteString(r.Text)
	}
	return b.String()
}

// IsEmpty reports whether runs render nothing.
func IsEmpty(runs []Run) bool {
	for _, r := range runs {
		if r.Emoji != nil || r.Text != "" {
			return false
		}
	}
	return true
}
