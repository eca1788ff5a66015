// Package slide lays out normalized blocks on a fixed-size slide.
//
// [Renderer.Render] makes a single top-to-bottom pass over the blocks and
// produces a [Tree] of absolutely positioned nodes. The tree knows nothing
// about output formats: the SVG sink, the raster backend and the export
// coordinator all consume the same tree.
//
// # Layout
//
// Blocks stack vertically inside the content rect (the canvas minus the
// sheet padding). Each kind has its own geometry:
//
//   - headings, paragraphs and quotes wrap their rich text greedily
//   - list items put a disc or an "N." marker in a fixed marker column and
//     indent their nested children, lettered "a.", "b.", ... under numbers
//   - callouts draw a rounded box with an icon column
//   - column lists share the width by ratio
//   - images fill the width, capped at the maximum image height
//
// Nothing paginates. Content below the content rect stays in the tree and
// [Tree.Clip] tells sinks to hide it.
//
// # Measurement
//
// Text is measured with the embedded Go fonts through a [Measurer], so the
// same input produces the same tree on every machine:
//
//	r := slide.New(slide.WithURLTransform(proxy))
//	tree := r.Render(blocks, style.Resolve(cfg, style.DefaultCanvas()))
package slide
