// Package integrations provides the HTTP plumbing shared by content source
// clients.
//
// # Overview
//
// [Client] wraps an [net/http.Client] with:
//   - default headers applied to every request
//   - retry with exponential backoff for network errors, 5xx and 429
//   - status mapping onto [ErrNotFound], [ErrUnauthorized], [ErrRateLimited]
//     and [ErrNetwork]
//   - an optional [cache.Cache] for JSON responses via [Client.Cached]
//
// The Notion client in the [notion] subpackage embeds it:
//
//	client := notion.NewClient(token, cache.NewNullCache())
//	page, err := client.ListChildren(ctx, pageID, "")
package integrations
