package blocks

import (
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
)

// Normalize converts one raw block into a [Block]. It returns false for
// source types outside the closed kind set; those are dropped, not errors.
// Only the fields of the block's own kind are copied. Nested children and
// columns are attached by the fetcher.
func Normalize(raw notion.RawBlock) (Block, bool) {
	kind, ok := KindOf(raw.Type)
	if !ok {
		return Block{}, false
	}
	b := Block{ID: raw.ID, Kind: kind, HasChildren: raw.HasChildren}

	switch {
	case kind == KindImage:
		var img notion.ImageBlock
		_ = raw.Decode(&img)
		b.Image = &Image{Src: img.URL()}
	case kind.IsText():
		var tb notion.TextBlock
		_ = raw.Decode(&tb)
		b.RichText = Runs(tb.RichText)
		if kind == KindCallout {
			b.Callout = &Callout{Icon: resolveIcon(tb.Icon), Color: tb.Color}
		}
	}
	return b, true
}

// NormalizeAll normalizes raws in order, dropping unknown kinds. The result
// is never longer than the input.
func NormalizeAll(raws []notion.RawBlock) []Block {
	out := make([]Block, 0, len(raws))
	for _, r := range raws {
		if b, ok := Normalize(r); ok {
			out = append(out, b)
		}
	}
	return out
}

// Runs converts source rich text into runs. Text comes from text.content
// when present since plain_text may collapse whitespace; custom emoji
// mentions become emoji runs.
func Runs(rt []notion.RichText) []Run {
	if len(rt) == 0 {
		return nil
	}
	out := make([]Run, 0, len(rt))
	for _, r := range rt {
		run := Run{
			Href: r.Href,
			Annotations: Annotations{
				Bold:          r.Annotations.Bold,
				Italic:        r.Annotations.Italic,
				Underline:     r.Annotations.Underline,
				Strikethrough: r.Annotations.Strikethrough,
				Code:          r.Annotations.Code,
				Color:         r.Annotations.Color,
			},
		}
		if run.Annotations.Color == "default" {
			run.Annotations.Color = ""
		}
		switch {
		case r.Mention != nil && r.Mention.Type == "custom_emoji" && r.Mention.CustomEmoji != nil:
			ce := r.Mention.CustomEmoji
			run.Emoji = &Emoji{Src: ce.URL, Alt: ":" + ce.Name + ":"}
		case r.Text != nil:
			run.Text = r.Text.Content
		default:
			run.Text = r.PlainText
		}
		out = append(out, run)
	}
	return out
}

// resolveIcon applies the callout icon priority: emoji, external image,
// hosted file image, custom emoji image, then any emoji string. A nil or
// unusable icon yields the zero Icon, which renders as the default glyph.
func resolveIcon(icon *notion.Icon) Icon {
	if icon == nil {
		return Icon{}
	}
	switch {
	case icon.Type == "emoji" && icon.Emoji != "":
		return Icon{Emoji: icon.Emoji}
	case icon.Type == "external" && icon.External != nil && icon.External.URL != "":
		return Icon{URL: icon.External.URL}
	case icon.Type == "file" && icon.File != nil && icon.File.URL != "":
		return Icon{URL: icon.File.URL}
	case icon.Type == "custom_emoji" && icon.CustomEmoji != nil && icon.CustomEmoji.URL != "":
		return Icon{URL: icon.CustomEmoji.URL}
	case icon.Emoji != "":
		return Icon{Emoji: icon.Emoji}
	}
	return Icon{}
}

// ReconcileRatios fills in undeclared column ratios. With definedTotal the
// sum of declared ratios and n the number of undeclared ones, each
// undeclared column gets (1-definedTotal)/n when n > 0 and definedTotal < 1.
// Otherwise undeclared columns stay nil. Declared ratios are never changed.
func ReconcileRatios(declared []*float64) []*float64 {
	var (
		definedTotal   float64
		undefinedCount int
	)
	for _, r := range declared {
		if r == nil {
			undefinedCount++
			continue
		}
		definedTotal += *r
	}

	out := make([]*float64, len(declared))
	var fallback *float64
	if undefinedCount > 0 && definedTotal < 1 {
		v := (1 - definedTotal) / float64(undefinedCount)
		fallback = &v
	}
	for i, r := range declared {
		switch {
		case r != nil:
			v := *r
			out[i] = &v
		case fallback != nil:
			v := *fallback
			out[i] = &v
		}
	}
	return out
}

// declaredRatios reads the declared ratio of each raw column.
func declaredRatios(cols []notion.RawBlock) []*float64 {
	out := make([]*float64, len(cols))
	for i, c := range cols {
		if r, ok := c.ColumnRatio(); ok {
			out[i] = &r
		}
	}
	return out
}

// withoutColumnLists drops column lists from a column's content. Columns
// never nest.
func withoutColumnLists(raws []notion.RawBlock) []notion.RawBlock {
	out := raws[:0:0]
	for _, r := range raws {
		if r.Type == "column_list" {
			continue
		}
		out = append(out, r)
	}
	return out
}
