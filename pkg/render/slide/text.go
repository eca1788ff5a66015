package slide

import (
	"strings"
	"unicode"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/fonts"
	"github.com/matzehuels/blockdeck/pkg/style"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokSpace
	tokBreak
	tokEmoji
)

// token is an unbreakable piece of text. Words break only when a single
// word is wider than the line; CJK characters are tokens of their own so
// they can break anywhere.
type token struct {
	kind  tokenKind
	text  string
	run   int
	width float64
	lead  float64 // padding before the text, inside width
}

// textStyle is the block-level style a run inherits.
type textStyle struct {
	style.TextStyle
	Color string
}

func tokenize(runs []blocks.Run) []token {
	var out []token
	for i, r := range runs {
		if r.Emoji != nil {
			out = append(out, token{kind: tokEmoji, text: r.Emoji.Alt, run: i})
			continue
		}
		out = append(out, splitText(r.Text, i)...)
	}
	return out
}

func splitText(s string, run int) []token {
	var (
		out   []token
		start = -1
		kind  tokenKind
	)
	flush := func(end int) {
		if start >= 0 && end > start {
			out = append(out, token{kind: kind, text: s[start:end], run: run})
		}
		start = -1
	}
	for i, r := range s {
		switch {
		case r == '\n':
			flush(i)
			out = append(out, token{kind: tokBreak, run: run})
		case unicode.IsSpace(r):
			if start < 0 || kind != tokSpace {
				flush(i)
				start, kind = i, tokSpace
			}
		case isCJK(r):
			flush(i)
			out = append(out, token{kind: tokWord, text: string(r), run: run})
		default:
			if start < 0 || kind != tokWord {
				flush(i)
				start, kind = i, tokWord
			}
		}
	}
	flush(len(s))
	return out
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}

// runFont returns the font spec and CSS weight of run under base.
func (r *Renderer) runFont(run blocks.Run, base textStyle, sheet style.Sheet) (fonts.Spec, float64) {
	a := run.Annotations
	if a.Code {
		return fonts.Spec{Size: sheet.Code.Size, Mono: true, Bold: a.Bold}, base.Weight
	}
	weight := base.Weight
	if a.Bold {
		weight = style.BoldWeight
	}
	return fonts.Spec{Size: base.Size, Bold: weight >= style.BoldWeight, Italic: a.Italic}, weight
}

// measure fills in token widths. Code runs carry their horizontal padding
// on their first and last tokens.
func (r *Renderer) measure(toks []token, runs []blocks.Run, base textStyle, sheet style.Sheet) {
	for i := range toks {
		t := &toks[i]
		run := runs[t.run]
		switch t.kind {
		case tokBreak:
			continue
		case tokEmoji:
			t.width = sheet.Emoji.Size
			continue
		}
		spec, _ := r.runFont(run, base, sheet)
		t.width = r.measurer.Width(t.text, spec)
		if run.Annotations.Code {
			if i == 0 || toks[i-1].run != t.run {
				t.width += sheet.Code.PaddingX
				t.lead = sheet.Code.PaddingX
			}
			if i == len(toks)-1 || toks[i+1].run != t.run {
				t.width += sheet.Code.PaddingX
			}
		}
	}
}

// wrap breaks tokens into lines no wider than maxWidth. Spaces at a wrap
// point are dropped; a word wider than the line is split by character.
func (r *Renderer) wrap(toks []token, runs []blocks.Run, base textStyle, sheet style.Sheet, maxWidth float64) [][]token {
	var (
		lines [][]token
		line  []token
		width float64
	)
	flush := func() {
		for len(line) > 0 && line[len(line)-1].kind == tokSpace {
			line = line[:len(line)-1]
		}
		lines = append(lines, line)
		line, width = nil, 0
	}
	for _, t := range toks {
		switch {
		case t.kind == tokBreak:
			flush()
			continue
		case t.kind == tokSpace && len(line) == 0:
			continue
		}
		if t.kind == tokSpace || width+t.width <= maxWidth {
			line = append(line, t)
			width += t.width
			continue
		}
		if len(line) > 0 {
			flush()
		}
		if t.width <= maxWidth || t.kind == tokEmoji {
			line = append(line, t)
			width += t.width
			continue
		}
		for _, part := range r.breakLongToken(t, runs[t.run], base, sheet, maxWidth) {
			if len(line) > 0 {
				flush()
			}
			line = append(line, part)
			width += part.width
		}
	}
	if len(line) > 0 {
		flush()
	}
	return lines
}

func (r *Renderer) breakLongToken(t token, run blocks.Run, base textStyle, sheet style.Sheet, maxWidth float64) []token {
	spec, _ := r.runFont(run, base, sheet)
	var (
		parts   []token
		current strings.Builder
		width   float64
	)
	for _, ch := range t.text {
		cw := r.measurer.Width(string(ch), spec)
		if width+cw > maxWidth && current.Len() > 0 {
			parts = append(parts, token{kind: tokWord, text: current.String(), run: t.run, width: width})
			current.Reset()
			width = 0
		}
		current.WriteRune(ch)
		width += cw
	}
	if current.Len() > 0 {
		parts = append(parts, token{kind: tokWord, text: current.String(), run: t.run, width: width})
	}
	return parts
}

// layoutText wraps runs into positioned lines starting at (x, y). It
// returns nil for runs that render nothing.
func (r *Renderer) layoutText(runs []blocks.Run, base textStyle, sheet style.Sheet, x, y, maxWidth float64) []Line {
	if blocks.IsEmpty(runs) {
		return nil
	}
	toks := tokenize(runs)
	r.measure(toks, runs, base, sheet)
	wrapped := r.wrap(toks, runs, base, sheet, maxWidth)

	leading := base.Leading()
	baseSpec := fonts.Spec{Size: base.Size, Bold: base.Weight >= style.BoldWeight}
	ascent := r.measurer.Ascent(baseSpec)

	lines := make([]Line, 0, len(wrapped))
	for i, toks := range wrapped {
		top := y + float64(i)*leading
		line := Line{
			Top:      top,
			Height:   leading,
			Baseline: top + (leading-base.Size)/2 + ascent,
		}
		cx := x
		for _, t := range toks {
			span := r.span(t, runs[t.run], base, sheet)
			span.X = cx
			span.TextX = cx + t.lead
			cx += t.width
			if n := len(line.Spans); n > 0 && mergeable(line.Spans[n-1], span) {
				line.Spans[n-1].Text += span.Text
				line.Spans[n-1].Width += span.Width
				continue
			}
			line.Spans = append(line.Spans, span)
		}
		lines = append(lines, line)
	}
	return lines
}

// mergeable reports whether next continues prev with the same style.
func mergeable(prev, next Span) bool {
	if prev.EmojiSrc != "" || next.EmojiSrc != "" {
		return false
	}
	if next.TextX != next.X {
		return false
	}
	prev.Text, next.Text = "", ""
	prev.X, next.X = 0, 0
	prev.TextX, next.TextX = 0, 0
	prev.Width, next.Width = 0, 0
	return prev == next
}

func (r *Renderer) span(t token, run blocks.Run, base textStyle, sheet style.Sheet) Span {
	spec, weight := r.runFont(run, base, sheet)
	a := run.Annotations
	s := Span{
		Width:     t.width,
		Text:      t.text,
		Font:      spec,
		Weight:    weight,
		Color:     base.Color,
		Underline: a.Underline,
		Strike:    a.Strikethrough,
		Href:      run.Href,
	}
	if t.kind == tokEmoji {
		s.Text = ""
		s.EmojiAlt = run.Emoji.Alt
		s.EmojiSrc = r.transform(run.Emoji.Src)
		s.EmojiSize = sheet.Emoji.Size
		return s
	}
	if a.Code {
		s.Code = true
		s.Color = sheet.Code.Color
		s.CodeFill = sheet.Code.Background
		s.CodePadX = sheet.Code.PaddingX
		s.CodePadY = sheet.Code.PaddingY
		s.CodeRadius = sheet.Code.Radius
		return s
	}
	if !style.IsDefaultKey(a.Color) {
		if style.IsBackgroundKey(a.Color) {
			if c, ok := style.BackgroundColor(a.Color); ok {
				s.Background = c
			}
		} else if c, ok := style.TextColor(a.Color); ok {
			s.Color = c
		}
	}
	return s
}
