// Package fonts provides the embedded Go font family for text measurement,
// raster drawing and SVG embedding.
//
// The Go fonts ship with golang.org/x/image, so measuring and drawing text
// gives the same result on every machine. Sizes are in pixels: faces are
// built at 72 DPI so one point is one pixel.
package fonts

import (
	"encoding/base64"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Family names used for @font-face declarations.
const (
	Family     = "Go"
	MonoFamily = "Go Mono"
)

// Spec selects a face.
type Spec struct {
	Size   float64
	Bold   bool
	Italic bool
	Mono   bool
}

type variant struct{ bold, italic, mono bool }

func (s Spec) variant() variant {
	v := variant{bold: s.Bold, italic: s.Italic, mono: s.Mono}
	if v.mono {
		v.italic = false
	}
	return v
}

func (v variant) ttf() []byte {
	switch {
	case v.mono && v.bold:
		return gomonobold.TTF
	case v.mono:
		return gomono.TTF
	case v.bold && v.italic:
		return gobolditalic.TTF
	case v.bold:
		return gobold.TTF
	case v.italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}

// TTF returns the TrueType data for the face spec selects.
func TTF(spec Spec) []byte { return spec.variant().ttf() }

var (
	parsedMu sync.Mutex
	parsed   = map[variant]*truetype.Font{}
)

// Font returns the parsed font for spec. Parsed fonts are shared and safe
// for concurrent use; faces built from them are not.
func Font(spec Spec) *truetype.Font {
	v := spec.variant()
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if f, ok := parsed[v]; ok {
		return f
	}
	// The embedded fonts are known-good; a parse error is a build defect.
	f, err := truetype.Parse(v.ttf())
	if err != nil {
		panic("fonts: parse embedded font: " + err.Error())
	}
	parsed[v] = f
	return f
}

// NewFace builds a face at spec.Size pixels.
func NewFace(spec Spec) font.Face {
	return truetype.NewFace(Font(spec), &truetype.Options{
		Size:    spec.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Cache for base64-encoded fonts (computed once per variant).
var (
	b64Mu sync.Mutex
	b64   = map[variant]string{}
)

// Base64 returns the TTF data for spec as a base64 string for data URLs.
func Base64(spec Spec) string {
	v := spec.variant()
	b64Mu.Lock()
	defer b64Mu.Unlock()
	if s, ok := b64[v]; ok {
		return s
	}
	s := base64.StdEncoding.EncodeToString(v.ttf())
	b64[v] = s
	return s
}
