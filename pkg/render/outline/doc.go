// Package outline draws a fetched block tree as a Graphviz diagram.
//
// It is a debugging view: every block becomes a box labelled with its kind
// and a short text preview, with edges from the page to its top-level
// blocks, from list items to their nested children and from column lists
// through their columns to the column content.
//
//	dot := outline.ToDOT(tree, outline.Options{Title: "My page"})
//	svg, err := outline.RenderSVG(ctx, dot)
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PNG and PDF conversion goes through the render package and
// requires librsvg (rsvg-convert).
package outline
