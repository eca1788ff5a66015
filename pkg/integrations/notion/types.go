package notion

import (
	"encoding/json"
	"math"
)

// RawBlock is one item of a children listing as the API returns it. Only
// the fields blockdeck reads are decoded; the type-keyed payload is kept as
// raw JSON so that it can be cached and decoded lazily.
type RawBlock struct {
	ID          string
	Type        string
	HasChildren bool

	// Payload is the object stored under the block's own type key,
	// e.g. the value of "paragraph" for a paragraph block.
	Payload json.RawMessage

	// Format holds the optional "format" object some exports attach to
	// column blocks.
	Format json.RawMessage
}

type rawBlockWire struct {
	Object      string `json:"object,omitempty"`
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`
}

// UnmarshalJSON decodes the common block fields and captures the payload
// stored under the block's type key.
func (b *RawBlock) UnmarshalJSON(data []byte) error {
	var head rawBlockWire
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*b = RawBlock{
		ID:          head.ID,
		Type:        head.Type,
		HasChildren: head.HasChildren,
		Payload:     fields[head.Type],
		Format:      fields["format"],
	}
	return nil
}

// MarshalJSON writes the block back in API shape so a cached listing
// decodes to the same value.
func (b RawBlock) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"object":       "block",
		"id":           b.ID,
		"type":         b.Type,
		"has_children": b.HasChildren,
	}
	if len(b.Payload) > 0 && b.Type != "" {
		m[b.Type] = b.Payload
	}
	if len(b.Format) > 0 {
		m["format"] = b.Format
	}
	return json.Marshal(m)
}

// Decode unmarshals the block payload into v. An absent payload leaves v
// untouched.
func (b RawBlock) Decode(v any) error {
	if len(b.Payload) == 0 || string(b.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(b.Payload, v)
}

// ColumnRatio returns the declared width ratio of a column block. It reads
// format.column_ratio first and falls back to column.width_ratio. Only a
// finite JSON number counts as declared.
func (b RawBlock) ColumnRatio() (float64, bool) {
	var format struct {
		ColumnRatio any `json:"column_ratio"`
	}
	if len(b.Format) > 0 && json.Unmarshal(b.Format, &format) == nil {
		if v, ok := finite(format.ColumnRatio); ok {
			return v, true
		}
	}
	var col struct {
		WidthRatio any `json:"width_ratio"`
	}
	if b.Type == "column" && len(b.Payload) > 0 && json.Unmarshal(b.Payload, &col) == nil {
		if v, ok := finite(col.WidthRatio); ok {
			return v, true
		}
	}
	return 0, false
}

func finite(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ListPage is one page of a children listing.
type ListPage struct {
	Results    []RawBlock `json:"results"`
	NextCursor string     `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// UnmarshalJSON tolerates a null next_cursor.
func (p *ListPage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Results    []RawBlock `json:"results"`
		NextCursor *string    `json:"next_cursor"`
		HasMore    bool       `json:"has_more"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Results = wire.Results
	p.HasMore = wire.HasMore
	p.NextCursor = ""
	if wire.NextCursor != nil {
		p.NextCursor = *wire.NextCursor
	}
	return nil
}

// RichText is one rich text item.
type RichText struct {
	Type        string       `json:"type"`
	PlainText   string       `json:"plain_text"`
	Href        string       `json:"href,omitempty"`
	Annotations Annotations  `json:"annotations"`
	Text        *TextContent `json:"text,omitempty"`
	Mention     *Mention     `json:"mention,omitempty"`
}

// TextContent is the payload of a "text" rich text item.
type TextContent struct {
	Content string `json:"content"`
}

// Annotations are the inline styles of a rich text item.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// Mention is the payload of a "mention" rich text item.
type Mention struct {
	Type        string       `json:"type"`
	CustomEmoji *CustomEmoji `json:"custom_emoji,omitempty"`
}

// CustomEmoji is a workspace emoji backed by an image.
type CustomEmoji struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// File is a hosted or external file reference.
type File struct {
	URL string `json:"url"`
}

// Icon is a page or callout icon.
type Icon struct {
	Type        string       `json:"type"`
	Emoji       string       `json:"emoji,omitempty"`
	External    *File        `json:"external,omitempty"`
	File        *File        `json:"file,omitempty"`
	CustomEmoji *CustomEmoji `json:"custom_emoji,omitempty"`
}

// TextBlock is the payload shared by headings, paragraphs, list items,
// quotes and callouts.
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
	Icon     *Icon      `json:"icon,omitempty"`
}

// ImageBlock is the payload of an image block.
type ImageBlock struct {
	Type     string     `json:"type"`
	File     *File      `json:"file,omitempty"`
	External *File      `json:"external,omitempty"`
	Caption  []RichText `json:"caption,omitempty"`
}

// URL returns the hosted file URL, falling back to the external URL.
func (i ImageBlock) URL() string {
	if i.File != nil && i.File.URL != "" {
		return i.File.URL
	}
	if i.External != nil && i.External.URL != "" {
		return i.External.URL
	}
	return ""
}

// ChildPage is the payload of a child_page block.
type ChildPage struct {
	Title string `json:"title"`
}

// PageRef identifies a page for listings.
type PageRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// DatabaseRef identifies a database for listings.
type DatabaseRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Property is a page property; only title properties are decoded.
type Property struct {
	Type  string     `json:"type"`
	Title []RichText `json:"title,omitempty"`
}

// Object is an item of a search or database query result.
type Object struct {
	Object     string              `json:"object"`
	ID         string              `json:"id"`
	URL        string              `json:"url,omitempty"`
	Title      []RichText          `json:"title,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
}

// ObjectPage is one page of a search or database query result.
type ObjectPage struct {
	Results    []Object `json:"results"`
	NextCursor *string  `json:"next_cursor"`
	HasMore    bool     `json:"has_more"`
}

// User is the bot user behind an access token.
type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Bot    *struct {
		WorkspaceName string `json:"workspace_name,omitempty"`
		Owner         struct {
			Type      string `json:"type"`
			Workspace bool   `json:"workspace,omitempty"`
		} `json:"owner"`
	} `json:"bot,omitempty"`
}

// WorkspaceName returns the workspace of a bot user, if known.
func (u *User) WorkspaceName() string {
	if u == nil || u.Bot == nil {
		return ""
	}
	return u.Bot.WorkspaceName
}

// Image is fetched image bytes.
type Image struct {
	Data        []byte
	ContentType string
}

// PlainText concatenates the plain_text of each item.
func PlainText(rt []RichText) string {
	var n int
	for _, r := range rt {
		n += len(r.PlainText)
	}
	buf := make([]byte, 0, n)
	for _, r := range rt {
		buf = append(buf, r.PlainText...)
	}
	return string(buf)
}
