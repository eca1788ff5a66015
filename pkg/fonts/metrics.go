package fonts

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Metrics measures text with the embedded fonts. It keeps one face per
// spec and is safe for concurrent use.
type Metrics struct {
	mu    sync.Mutex
	faces map[Spec]font.Face
}

// NewMetrics creates an empty measurer.
func NewMetrics() *Metrics {
	return &Metrics{faces: map[Spec]font.Face{}}
}

func (m *Metrics) face(spec Spec) font.Face {
	if m.faces == nil {
		m.faces = map[Spec]font.Face{}
	}
	f, ok := m.faces[spec]
	if !ok {
		f = NewFace(spec)
		m.faces[spec] = f
	}
	return f
}

// Width returns the advance width of s in pixels.
func (m *Metrics) Width(s string, spec Spec) float64 {
	if s == "" || spec.Size <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return toFloat(font.MeasureString(m.face(spec), s))
}

// Ascent returns the distance from the top of a line box to the baseline,
// for a box whose height equals the font size.
func (m *Metrics) Ascent(spec Spec) float64 {
	if spec.Size <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	met := m.face(spec).Metrics()
	asc, desc := toFloat(met.Ascent), toFloat(met.Descent)
	if asc+desc <= 0 {
		return spec.Size * 0.8
	}
	return spec.Size * asc / (asc + desc)
}

func toFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
