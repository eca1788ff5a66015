package style

import "maps"

// Fixed visual constants.
const (
	DividerColor      = "#D3D1CB"
	CalloutBackground = "#FFFFFF"
	CalloutBorder     = "#E0E0E0"
	CodeBackground    = "#F7F6F3"
	CodeColor         = "#37352F"
	DefaultIcon       = "💡"
	MonoFamily        = `SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace`

	// BoldWeight is the weight of bold runs, whatever the block weight.
	BoldWeight = 600
)

var fontFamilies = map[string]string{
	"inter":   "Inter, sans-serif",
	"noto":    "'Noto Sans SC', sans-serif",
	"georgia": "Georgia, serif",
	"system":  "system-ui, sans-serif",
}

// FontFamily returns the CSS family stack for a font key.
func FontFamily(key string) (string, bool) {
	f, ok := fontFamilies[key]
	return f, ok
}

// Config is a loose style configuration keyed by parameter name.
type Config map[string]any

// Canvas is the slide size in pixels.
type Canvas struct {
	Width  float64
	Height float64
}

// DefaultCanvas returns the 1080x1350 portrait canvas.
func DefaultCanvas() Canvas { return Canvas{Width: 1080, Height: 1350} }

// Padding is the inset of the content rect.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// TextStyle describes a run of text. Spacing is the gap below the block.
type TextStyle struct {
	Size       float64
	Weight     float64
	LineHeight float64
	Spacing    float64
}

// Leading returns the height of one line.
func (t TextStyle) Leading() float64 { return t.Size * t.LineHeight }

// ListStyle holds list marker geometry.
type ListStyle struct {
	BulletGap          float64
	NumberGap          float64
	MarkerWidth        float64
	BulletSize         float64
	BulletOffset       float64
	NestedIndent       float64
	NestedSpacing      float64
	NestedBulletGap    float64
	NestedBulletBorder float64
}

// DividerStyle is the rule drawn for a divider block and the space around it.
type DividerStyle struct {
	Thickness     float64
	SpacingTop    float64
	SpacingBottom float64
	Color         string
}

// QuoteStyle holds the left border and inset of a quote block.
type QuoteStyle struct {
	BorderWidth float64
	Padding     float64
	Spacing     float64
}

// CalloutStyle holds the box, icon and fallback glyph of a callout.
type CalloutStyle struct {
	Padding     float64
	Radius      float64
	Gap         float64
	IconSize    float64
	BorderWidth float64
	Spacing     float64
	Background  string
	BorderColor string
	DefaultIcon string
}

// CodeStyle is applied to inline code runs.
type CodeStyle struct {
	Size       float64
	PaddingX   float64
	PaddingY   float64
	Radius     float64
	Background string
	Color      string
	FontFamily string
}

// ColumnStyle holds the gap between columns and the space after a column list.
type ColumnStyle struct {
	Gap     float64
	Spacing float64
}

// ImageStyle bounds image blocks to the content width and MaxHeight.
type ImageStyle struct {
	Spacing   float64
	MaxHeight float64
}

// EmojiStyle sizes custom emoji drawn inline with text.
type EmojiStyle struct {
	Size float64
}

// Sheet is a fully resolved style. Every field holds a usable value.
type Sheet struct {
	Canvas        Canvas
	Padding       Padding
	ContentWidth  float64
	ContentHeight float64

	Background string // #RRGGBB
	TextColor  string // #RRGGBB
	FontKey    string // inter, noto, georgia or system
	FontFamily string // CSS family stack for FontKey

	HeadingWeight     float64
	HeadingLineHeight float64

	Heading   [3]TextStyle
	Paragraph TextStyle
	List      ListStyle
	Divider   DividerStyle
	Quote     QuoteStyle
	Callout   CalloutStyle
	Code      CodeStyle
	Columns   ColumnStyle
	Image     ImageStyle
	Emoji     EmojiStyle
}

// Defaults returns a fresh default configuration.
func Defaults() Config {
	cfg := make(Config, len(params)+3)
	for _, p := range params {
		cfg[p.Key] = p.Default
	}
	cfg[KeyBgColor] = DefaultBgColor
	cfg[KeyTextColor] = DefaultTextColor
	cfg[KeyFontFamily] = DefaultFontFamily
	return cfg
}

// Merge returns a copy of base with the keys of override applied.
func Merge(base, override Config) Config {
	out := make(Config, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// Resolve builds a sheet from cfg for the given canvas. It never fails.
// A zero canvas dimension falls back to the default canvas.
func Resolve(cfg Config, canvas Canvas) Sheet {
	def := DefaultCanvas()
	if canvas.Width <= 0 {
		canvas.Width = def.Width
	}
	if canvas.Height <= 0 {
		canvas.Height = def.Height
	}

	var s Sheet
	s.Canvas = canvas
	for _, p := range params {
		*p.field(&s) = p.Clamp(cfg[p.Key])
	}

	s.Background = resolveColor(cfg[KeyBgColor], DefaultBgColor)
	s.TextColor = resolveColor(cfg[KeyTextColor], DefaultTextColor)
	s.FontKey = DefaultFontFamily
	if key, ok := cfg[KeyFontFamily].(string); ok {
		if _, known := fontFamilies[key]; known {
			s.FontKey = key
		}
	}
	s.FontFamily = fontFamilies[s.FontKey]

	s.ContentWidth = max(0, canvas.Width-s.Padding.Left-s.Padding.Right)
	s.ContentHeight = max(0, canvas.Height-s.Padding.Top-s.Padding.Bottom)

	for i := range s.Heading {
		s.Heading[i].Weight = s.HeadingWeight
		s.Heading[i].LineHeight = s.HeadingLineHeight
	}

	s.Divider.Color = DividerColor
	s.Callout.Background = CalloutBackground
	s.Callout.BorderColor = CalloutBorder
	s.Callout.DefaultIcon = DefaultIcon
	s.Code.Background = CodeBackground
	s.Code.Color = CodeColor
	s.Code.FontFamily = MonoFamily
	return s
}

// Config returns the configuration that resolves back to s.
func (s Sheet) Config() Config {
	cfg := make(Config, len(params)+3)
	for _, p := range params {
		cfg[p.Key] = *p.field(&s)
	}
	cfg[KeyBgColor] = s.Background
	cfg[KeyTextColor] = s.TextColor
	cfg[KeyFontFamily] = s.FontKey
	return cfg
}

// HeadingStyle returns the style of heading level 1..3. Other levels get
// the level 3 style.
func (s Sheet) HeadingStyle(level int) TextStyle {
	if level < 1 || level > 3 {
		level = 3
	}
	return s.Heading[level-1]
}

func resolveColor(v any, def string) string {
	str, ok := v.(string)
	if !ok {
		return def
	}
	c, ok := ParseRGB(str)
	if !ok {
		return def
	}
	return c
}
