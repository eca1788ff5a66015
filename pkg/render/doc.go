// Package render turns slide trees into output files.
//
// # Overview
//
// Layout lives in [slide]; this package and its siblings consume the
// resulting tree:
//
//   - [sink]: standalone SVG documents
//   - [raster]: JPEG and PNG through fogleman/gg, no external tools
//   - [images]: fetching, sniffing and decoding referenced images
//   - [outline]: a Graphviz view of a block tree, for debugging
//
// # Format Conversion
//
// [ToPDF], [ToPNG] and [ToSized] convert any SVG with the external
// rsvg-convert tool (from librsvg). [RSVGRasterizer] builds on them to
// export slides as SVG, PNG, JPEG or PDF; it is the only backend that
// writes PDF.
//
//	svg := sink.RenderSVG(tree, sink.WithEmbeddedFonts())
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
//
// [slide]: github.com/matzehuels/blockdeck/pkg/render/slide
// [sink]: github.com/matzehuels/blockdeck/pkg/render/sink
// [raster]: github.com/matzehuels/blockdeck/pkg/render/raster
// [images]: github.com/matzehuels/blockdeck/pkg/render/images
// [outline]: github.com/matzehuels/blockdeck/pkg/render/outline
package render
