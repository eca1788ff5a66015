// Package pkg holds the libraries behind blockdeck, which turns Notion pages
// into fixed-canvas slides.
//
// # Overview
//
// A page reference goes through five stages:
//
//	page URL or id
//	     ↓
//	[ident]          canonical block id
//	     ↓
//	[blocks]         block tree, fetched page by page and normalized
//	     ↓
//	[style]          style sheet resolved from a user config
//	     ↓
//	[render/slide]   laid-out slide tree
//	     ↓
//	[export]         SVG, PNG, JPEG or PDF files, one per slide
//
// [pipeline] runs these stages with caching. [server] exposes them over
// HTTP and [integrations/notion] talks to the content source.
//
// # Supporting packages
//
//   - [cache]: response and block caches (file, Redis, null)
//   - [session]: workspace connections and OAuth state (file, Redis, MongoDB)
//   - [errors]: coded errors shared by every layer
//   - [httputil]: retry with backoff
//   - [observability]: hooks for metrics and tracing
//   - [fonts]: embedded Go fonts used for text measurement
//   - [render/images], [render/raster], [render/sink], [render/outline]:
//     image loading, the in-process raster backend, the SVG writer and the
//     Graphviz outline of a block tree
//
// # Quick Start
//
//	client := notion.NewClient(os.Getenv("NOTION_TOKEN"), nil)
//	runner := pipeline.NewRunner(client, nil, nil, logger)
//
//	deck, err := runner.Deck(ctx, "https://www.notion.so/Launch-0123456789abcdef0123456789abcdef", opts)
//	if err != nil {
//	    return err
//	}
//	_, err = runner.Export(ctx, deck, opts, export.DirSink("launch"))
package pkg
