// Package images loads, sniffs and decodes the images a slide references.
//
// A [Store] fetches bytes through a [Loader] (normally the Notion client,
// which knows when to attach credentials) and keeps them in a
// [cache.Cache]. Hosted file URLs carry a fresh signature on every listing,
// so the cache key ignores the query string.
//
// Formats are sniffed from content rather than trusted from headers:
// PNG, JPEG, GIF and WebP go through image decoders; SVG is rasterized with
// oksvg.
package images
