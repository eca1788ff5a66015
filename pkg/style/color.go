package style

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var textColors = map[string]string{
	"gray":   "#9B9A97",
	"brown":  "#64473A",
	"orange": "#D9730D",
	"yellow": "#DFAB01",
	"green":  "#0F7B6C",
	"blue":   "#0B6E99",
	"purple": "#6940A5",
	"pink":   "#AD1A72",
	"red":    "#E03E3E",
}

var backgroundColors = map[string]string{
	"gray_background":   "#EBECED",
	"brown_background":  "#E9E5E3",
	"orange_background": "#FAEBDD",
	"yellow_background": "#FBF3DB",
	"green_background":  "#DDEDEA",
	"blue_background":   "#DDEBF1",
	"purple_background": "#EAE4F2",
	"pink_background":   "#F4DFEB",
	"red_background":    "#FBE4E4",
}

// TextColor returns the palette color for a plain color key such as "red".
func TextColor(key string) (string, bool) {
	c, ok := textColors[key]
	return c, ok
}

// BackgroundColor returns the palette color for a "*_background" key.
func BackgroundColor(key string) (string, bool) {
	c, ok := backgroundColors[key]
	return c, ok
}

// IsBackgroundKey reports whether key names a background color.
func IsBackgroundKey(key string) bool {
	return strings.HasSuffix(key, "_background")
}

// IsDefaultKey reports whether key leaves the inherited color unchanged.
func IsDefaultKey(key string) bool {
	return key == "" || key == "default"
}

// ParseRGB parses "#RGB", "#RRGGBB" or "R,G,B" into "#RRGGBB". In the
// comma form each part is clamped to 0..255 and a non-numeric part counts
// as 255.
func ParseRGB(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return "", false
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return "", false
		}
		return "#" + strings.ToUpper(hex), true
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return "", false
	}
	var rgb [3]int
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(n) {
			rgb[i] = 255
			continue
		}
		rgb[i] = int(min(255, max(0, n)))
	}
	return fmt.Sprintf("#%02X%02X%02X", rgb[0], rgb[1], rgb[2]), true
}

// RGBA converts a "#RRGGBB" color into an opaque color.NRGBA. Malformed
// input yields opaque black.
func RGBA(hex string) color.NRGBA {
	c := color.NRGBA{A: 255}
	norm, ok := ParseRGB(hex)
	if !ok || !strings.HasPrefix(norm, "#") {
		return c
	}
	v, _ := strconv.ParseUint(norm[1:], 16, 32)
	c.R = uint8(v >> 16)
	c.G = uint8(v >> 8)
	c.B = uint8(v)
	return c
}
