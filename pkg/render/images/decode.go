package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/webp"
)

// MIMESVG is the content type reported for SVG documents.
const MIMESVG = "image/svg+xml"

// defaultSVGSize is used for SVGs without a usable viewBox.
const defaultSVGSize = 1024

// maxRasterDim bounds SVG rasterization so a huge viewBox cannot exhaust memory.
const maxRasterDim = 8192

// Sniff returns the MIME type of image data, or "" if it is not an image
// this package can decode.
func Sniff(data []byte) string {
	if kind, err := filetype.Match(data); err == nil && filetype.IsImage(data) {
		switch kind.MIME.Value {
		case "image/png", "image/jpeg", "image/gif", "image/webp":
			return kind.MIME.Value
		}
	}
	if isSVG(data) {
		return MIMESVG
	}
	return ""
}

func isSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// Size returns the intrinsic pixel size of image data without decoding
// the pixels. SVGs report their viewBox.
func Size(data []byte) (w, h int, err error) {
	switch Sniff(data) {
	case "":
		return 0, 0, fmt.Errorf("unrecognized image data")
	case MIMESVG:
		icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
		if err != nil {
			return 0, 0, fmt.Errorf("parse svg: %w", err)
		}
		return svgSize(icon)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func svgSize(icon *oksvg.SvgIcon) (int, int, error) {
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return defaultSVGSize, defaultSVGSize, nil
	}
	return w, h, nil
}

// Decode decodes image data. SVGs are rasterized at their intrinsic size.
func Decode(data []byte) (image.Image, error) {
	switch Sniff(data) {
	case "":
		return nil, fmt.Errorf("unrecognized image data")
	case MIMESVG:
		return RasterizeSVG(data, 0, 0)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// RasterizeSVG draws an SVG into an RGBA image. With a zero target the
// viewBox size is used; with one side set the other follows the aspect
// ratio; with both set the drawing is fitted inside the box. The
// background is transparent.
func RasterizeSVG(data []byte, targetW, targetH int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	iw, ih, _ := svgSize(icon)

	w, h := iw, ih
	switch {
	case targetW > 0 && targetH > 0:
		s := math.Min(float64(targetW)/float64(iw), float64(targetH)/float64(ih))
		w, h = int(math.Round(float64(iw)*s)), int(math.Round(float64(ih)*s))
	case targetW > 0:
		w, h = targetW, int(math.Round(float64(targetW)*float64(ih)/float64(iw)))
	case targetH > 0:
		w, h = int(math.Round(float64(targetH)*float64(iw)/float64(ih))), targetH
	}
	w, h = max(w, 1), max(h, 1)
	if w > maxRasterDim || h > maxRasterDim {
		s := math.Min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w, h = max(int(float64(w)*s), 1), max(int(float64(h)*s), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return dst, nil
}

// DataURI encodes image data as a data: URI with its sniffed type.
func DataURI(data []byte) string {
	mime := Sniff(data)
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
