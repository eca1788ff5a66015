// Package blocks fetches and normalizes the block tree of a page.
//
// The content source returns an open-ended set of block types. This package
// narrows it to the closed set of kinds a slide can show ([Kind]) and
// attaches the two kinds of structure a slide understands:
//
//   - one level of nested children under bulleted and numbered list items
//   - columns under a column list, each with its own block sequence
//
// Anything else is dropped silently. Fetching is strictly sequential: every
// call to the source completes before the next one is issued.
//
//	f := blocks.NewFetcher(notionClient)
//	tree, err := f.FetchTree(ctx, pageID)
package blocks
