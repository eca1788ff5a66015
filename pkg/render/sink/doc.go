// Package sink writes a rendered slide [slide.Tree] as SVG.
//
// [RenderSVG] produces a self-contained document: the background, every
// node of the tree and a clip path for the content rect, so overflowing
// content is hidden exactly as it is in raster output.
//
//	svg := sink.RenderSVG(tree, sink.WithEmbeddedFonts())
//
// # Options
//
//   - [WithEmbeddedFonts]: inline the Go fonts the layout was measured
//     with as base64 @font-face rules
//   - [WithImageResolver]: replace image sources, e.g. with data URLs so
//     that converters without network access can draw them
//
// Preview trees (see [slide.Preview]) are written into a viewport of the
// preview size with the slide scaled inside it.
//
// PNG and PDF output goes through [render.ToPNG] and [render.ToPDF], which
// convert this SVG with rsvg-convert.
//
// [render.ToPNG]: github.com/matzehuels/blockdeck/pkg/render.ToPNG
// [render.ToPDF]: github.com/matzehuels/blockdeck/pkg/render.ToPDF
package sink
