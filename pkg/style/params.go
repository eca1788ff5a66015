package style

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Param describes one numeric style key.
type Param struct {
	Key     string
	Default float64
	Min     float64
	Max     float64

	field func(*Sheet) *float64
}

// Clamp resolves v against the parameter. Missing and non-numeric values
// yield the default; out-of-range values are pulled to the nearest bound.
func (p Param) Clamp(v any) float64 {
	f, ok := toFloat(v)
	if !ok {
		return p.Default
	}
	return math.Min(p.Max, math.Max(p.Min, f))
}

var params = []Param{
	{"paddingTop", 100, 0, 400, func(s *Sheet) *float64 { return &s.Padding.Top }},
	{"paddingRight", 100, 0, 400, func(s *Sheet) *float64 { return &s.Padding.Right }},
	{"paddingBottom", 100, 0, 400, func(s *Sheet) *float64 { return &s.Padding.Bottom }},
	{"paddingLeft", 100, 0, 400, func(s *Sheet) *float64 { return &s.Padding.Left }},

	{"heading1Size", 72, 12, 200, func(s *Sheet) *float64 { return &s.Heading[0].Size }},
	{"heading2Size", 56, 12, 160, func(s *Sheet) *float64 { return &s.Heading[1].Size }},
	{"heading3Size", 44, 12, 120, func(s *Sheet) *float64 { return &s.Heading[2].Size }},
	{"headingWeight", 600, 100, 900, func(s *Sheet) *float64 { return &s.HeadingWeight }},
	{"headingLineHeight", 1.3, 0.8, 3, func(s *Sheet) *float64 { return &s.HeadingLineHeight }},
	{"heading1Spacing", 36, 0, 200, func(s *Sheet) *float64 { return &s.Heading[0].Spacing }},
	{"heading2Spacing", 28, 0, 200, func(s *Sheet) *float64 { return &s.Heading[1].Spacing }},
	{"heading3Spacing", 24, 0, 200, func(s *Sheet) *float64 { return &s.Heading[2].Spacing }},

	{"bodySize", 44, 12, 120, func(s *Sheet) *float64 { return &s.Paragraph.Size }},
	{"bodyWeight", 400, 100, 900, func(s *Sheet) *float64 { return &s.Paragraph.Weight }},
	{"bodyLineHeight", 1.6, 0.8, 3, func(s *Sheet) *float64 { return &s.Paragraph.LineHeight }},
	{"bodySpacing", 20, 0, 200, func(s *Sheet) *float64 { return &s.Paragraph.Spacing }},

	{"listGap", 20, 0, 100, func(s *Sheet) *float64 { return &s.List.BulletGap }},
	{"numberGap", 22, 0, 100, func(s *Sheet) *float64 { return &s.List.NumberGap }},
	{"markerWidth", 36, 0, 200, func(s *Sheet) *float64 { return &s.List.MarkerWidth }},
	{"bulletSize", 14, 2, 60, func(s *Sheet) *float64 { return &s.List.BulletSize }},
	{"bulletOffset", 28, 0, 120, func(s *Sheet) *float64 { return &s.List.BulletOffset }},
	{"nestedIndent", 66, 0, 300, func(s *Sheet) *float64 { return &s.List.NestedIndent }},
	{"nestedSpacing", 16, 0, 100, func(s *Sheet) *float64 { return &s.List.NestedSpacing }},
	{"nestedBulletGap", 35, 0, 100, func(s *Sheet) *float64 { return &s.List.NestedBulletGap }},
	{"nestedBulletBorder", 1.5, 0.5, 10, func(s *Sheet) *float64 { return &s.List.NestedBulletBorder }},

	{"dividerThickness", 1, 0.5, 20, func(s *Sheet) *float64 { return &s.Divider.Thickness }},
	{"dividerSpacingTop", 16, 0, 200, func(s *Sheet) *float64 { return &s.Divider.SpacingTop }},
	{"dividerSpacingBottom", 24, 0, 200, func(s *Sheet) *float64 { return &s.Divider.SpacingBottom }},

	{"quoteBorderWidth", 5, 0, 40, func(s *Sheet) *float64 { return &s.Quote.BorderWidth }},
	{"quotePadding", 24, 0, 200, func(s *Sheet) *float64 { return &s.Quote.Padding }},
	{"quoteSpacing", 28, 0, 200, func(s *Sheet) *float64 { return &s.Quote.Spacing }},

	{"calloutPadding", 24, 0, 200, func(s *Sheet) *float64 { return &s.Callout.Padding }},
	{"calloutRadius", 12, 0, 100, func(s *Sheet) *float64 { return &s.Callout.Radius }},
	{"calloutGap", 16, 0, 100, func(s *Sheet) *float64 { return &s.Callout.Gap }},
	{"calloutIconSize", 40, 12, 160, func(s *Sheet) *float64 { return &s.Callout.IconSize }},
	{"calloutBorderWidth", 1, 0, 20, func(s *Sheet) *float64 { return &s.Callout.BorderWidth }},
	{"calloutSpacing", 28, 0, 200, func(s *Sheet) *float64 { return &s.Callout.Spacing }},

	{"codeSize", 38, 8, 120, func(s *Sheet) *float64 { return &s.Code.Size }},
	{"codePaddingX", 8, 0, 60, func(s *Sheet) *float64 { return &s.Code.PaddingX }},
	{"codePaddingY", 4, 0, 60, func(s *Sheet) *float64 { return &s.Code.PaddingY }},
	{"codeRadius", 4, 0, 40, func(s *Sheet) *float64 { return &s.Code.Radius }},

	{"columnGap", 16, 0, 200, func(s *Sheet) *float64 { return &s.Columns.Gap }},
	{"columnSpacing", 28, 0, 200, func(s *Sheet) *float64 { return &s.Columns.Spacing }},

	{"imageSpacing", 28, 0, 200, func(s *Sheet) *float64 { return &s.Image.Spacing }},
	{"maxImageHeight", 600, 50, 1350, func(s *Sheet) *float64 { return &s.Image.MaxHeight }},

	{"emojiSize", 44, 8, 200, func(s *Sheet) *float64 { return &s.Emoji.Size }},
}

// String keys and their defaults.
const (
	KeyBgColor    = "bgColor"
	KeyTextColor  = "textColor"
	KeyFontFamily = "fontFamily"

	DefaultBgColor    = "#FFFFFF"
	DefaultTextColor  = "#37352F"
	DefaultFontFamily = "inter"
)

// Params returns the numeric parameter table in a stable order.
func Params() []Param {
	out := make([]Param, len(params))
	copy(out, params)
	return out
}

// Lookup returns the numeric parameter named key.
func Lookup(key string) (Param, bool) {
	for _, p := range params {
		if p.Key == key {
			return p, true
		}
	}
	return Param{}, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
