package blocks

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
)

func raw(t *testing.T, s string) notion.RawBlock {
	t.Helper()
	var b notion.RawBlock
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		t.Fatalf("unmarshal %s: %v", s, err)
	}
	return b
}

func ptr(v float64) *float64 { return &v }

func TestNormalizeKinds(t *testing.T) {
	tests := []struct {
		json string
		want Kind
		ok   bool
	}{
		{`{"id":"a","type":"heading_1","heading_1":{"rich_text":[]}}`, KindHeading1, true},
		{`{"id":"a","type":"heading_2","heading_2":{}}`, KindHeading2, true},
		{`{"id":"a","type":"heading_3","heading_3":{}}`, KindHeading3, true},
		{`{"id":"a","type":"paragraph","paragraph":{}}`, KindParagraph, true},
		{`{"id":"a","type":"bulleted_list_item","bulleted_list_item":{}}`, KindBulletedListItem, true},
		{`{"id":"a","type":"numbered_list_item","numbered_list_item":{}}`, KindNumberedListItem, true},
		{`{"id":"a","type":"divider","divider":{}}`, KindDivider, true},
		{`{"id":"a","type":"quote","quote":{}}`, KindQuote, true},
		{`{"id":"a","type":"column_list","column_list":{}}`, KindColumnList, true},
		{`{"id":"a","type":"to_do","to_do":{}}`, "", false},
		{`{"id":"a","type":"table","table":{}}`, "", false},
	}
	for _, tt := range tests {
		b, ok := Normalize(raw(t, tt.json))
		if ok != tt.ok {
			t.Errorf("Normalize(%s) ok = %v, want %v", tt.json, ok, tt.ok)
			continue
		}
		if b.Kind != tt.want {
			t.Errorf("Normalize(%s).Kind = %q, want %q", tt.json, b.Kind, tt.want)
		}
	}
}

func TestNormalizeRichText(t *testing.T) {
	b, ok := Normalize(raw(t, `{
		"id": "p1",
		"type": "paragraph",
		"paragraph": {
			"rich_text": [
				{"type": "text", "plain_text": "Hello  world", "text": {"content": "Hello  world"},
				 "annotations": {"bold": true, "color": "default"}},
				{"type": "text", "plain_text": "x", "href": "https://example.com", "text": {"content": "link"},
				 "annotations": {"italic": true, "color": "red"}},
				{"type": "mention", "plain_text": ":party:",
				 "mention": {"type": "custom_emoji", "custom_emoji": {"id": "e1", "name": "party", "url": "https://e/p.png"}}}
			]
		}
	}`))
	if !ok {
		t.Fatal("Normalize() ok = false")
	}
	if len(b.RichText) != 3 {
		t.Fatalf("len(RichText) = %d, want 3", len(b.RichText))
	}
	if got := b.RichText[0]; got.Text != "Hello  world" || !got.Annotations.Bold || got.Annotations.Color != "" {
		t.Errorf("run[0] = %+v", got)
	}
	if got := b.RichText[1]; got.Text != "link" || got.Href != "https://example.com" || got.Annotations.Color != "red" {
		t.Errorf("run[1] = %+v, want text from text.content", got)
	}
	e := b.RichText[2].Emoji
	if e == nil || e.Src != "https://e/p.png" || e.Alt != ":party:" {
		t.Errorf("run[2].Emoji = %+v, want party emoji", e)
	}
	if got := PlainText(b.RichText); got != "Hello  worldlink:party:" {
		t.Errorf("PlainText() = %q", got)
	}
}

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"file", `{"id":"i","type":"image","image":{"type":"file","file":{"url":"https://s3/x.png?sig=1"}}}`, "https://s3/x.png?sig=1"},
		{"external", `{"id":"i","type":"image","image":{"type":"external","external":{"url":"https://ext/y.jpg"}}}`, "https://ext/y.jpg"},
		{"missing", `{"id":"i","type":"image","image":{}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := Normalize(raw(t, tt.json))
			if !ok || b.Image == nil {
				t.Fatalf("Normalize() = %+v, %v", b, ok)
			}
			if b.Image.Src != tt.want {
				t.Errorf("Image.Src = %q, want %q", b.Image.Src, tt.want)
			}
			if b.RichText != nil {
				t.Errorf("RichText = %v, want nil for image", b.RichText)
			}
		})
	}
}

func TestNormalizeCalloutIcon(t *testing.T) {
	tests := []struct {
		name string
		icon string
		want Icon
	}{
		{"emoji", `{"type":"emoji","emoji":"🚀"}`, Icon{Emoji: "🚀"}},
		{"external", `{"type":"external","external":{"url":"https://i/x.svg"}}`, Icon{URL: "https://i/x.svg"}},
		{"file", `{"type":"file","file":{"url":"https://s3/i.png"}}`, Icon{URL: "https://s3/i.png"}},
		{"custom emoji", `{"type":"custom_emoji","custom_emoji":{"name":"ok","url":"https://e/ok.png"}}`, Icon{URL: "https://e/ok.png"}},
		{"null", `null`, Icon{}},
		{"empty external", `{"type":"external","external":{"url":""}}`, Icon{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := Normalize(raw(t, `{"id":"c","type":"callout","callout":{"rich_text":[],"color":"gray_background","icon":`+tt.icon+`}}`))
			if !ok || b.Callout == nil {
				t.Fatalf("Normalize() = %+v, %v", b, ok)
			}
			if b.Callout.Icon != tt.want {
				t.Errorf("Icon = %+v, want %+v", b.Callout.Icon, tt.want)
			}
			if b.Callout.Color != "gray_background" {
				t.Errorf("Color = %q, want gray_background", b.Callout.Color)
			}
		})
	}
}

func TestNormalizeAllDropsUnknown(t *testing.T) {
	raws := []notion.RawBlock{
		raw(t, `{"id":"1","type":"paragraph","paragraph":{}}`),
		raw(t, `{"id":"2","type":"table_of_contents","table_of_contents":{}}`),
		raw(t, `{"id":"3","type":"divider","divider":{}}`),
	}
	got := NormalizeAll(raws)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("NormalizeAll() = %+v, want blocks 1 and 3", got)
	}
}

func TestReconcileRatios(t *testing.T) {
	tests := []struct {
		name     string
		declared []*float64
		want     []*float64
	}{
		{"none declared", []*float64{nil, nil}, []*float64{ptr(0.5), ptr(0.5)}},
		{"partial", []*float64{ptr(0.5), nil, nil}, []*float64{ptr(0.5), ptr(0.25), ptr(0.25)}},
		{"partial split", []*float64{ptr(0.3), nil, nil}, []*float64{ptr(0.3), ptr(0.35), ptr(0.35)}},
		{"all declared", []*float64{ptr(0.3), ptr(0.7)}, []*float64{ptr(0.3), ptr(0.7)}},
		{"over one", []*float64{ptr(0.8), ptr(0.4), nil}, []*float64{ptr(0.8), ptr(0.4), nil}},
		{"exactly one", []*float64{ptr(1), nil}, []*float64{ptr(1), nil}},
		{"empty", nil, []*float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileRatios(tt.declared)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				switch {
				case got[i] == nil && tt.want[i] == nil:
				case got[i] == nil || tt.want[i] == nil:
					t.Errorf("ratio[%d] = %v, want %v", i, got[i], tt.want[i])
				case *got[i] != *tt.want[i]:
					t.Errorf("ratio[%d] = %v, want %v", i, *got[i], *tt.want[i])
				}
			}
		})
	}
}

func TestDeclaredRatios(t *testing.T) {
	cols := []notion.RawBlock{
		raw(t, `{"id":"a","type":"column","column":{},"format":{"column_ratio":0.25}}`),
		raw(t, `{"id":"b","type":"column","column":{"width_ratio":0.5}}`),
		raw(t, `{"id":"c","type":"column","column":{"width_ratio":"wide"}}`),
	}
	got := declaredRatios(cols)
	if got[0] == nil || *got[0] != 0.25 {
		t.Errorf("ratio[0] = %v, want 0.25", got[0])
	}
	if got[1] == nil || *got[1] != 0.5 {
		t.Errorf("ratio[1] = %v, want 0.5", got[1])
	}
	if got[2] != nil {
		t.Errorf("ratio[2] = %v, want nil for non-numeric", *got[2])
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(nil) {
		t.Error("IsEmpty(nil) = false, want true")
	}
	if !IsEmpty([]Run{{Text: ""}}) {
		t.Error("IsEmpty(empty run) = false, want true")
	}
	if IsEmpty([]Run{{Emoji: &Emoji{Src: "x"}}}) {
		t.Error("IsEmpty(emoji) = true, want false")
	}
}
