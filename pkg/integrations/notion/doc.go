// Package notion is the content source client for the Notion REST API.
//
// It covers the calls blockdeck needs and nothing more:
//
//   - [Client.ListChildren]: one page of a block's children
//   - [Client.ChildPages], [Client.Databases], [Client.DatabasePages]: listings
//     built on cursor loops
//   - [Client.Me]: the bot user behind a token
//   - [Client.FetchImage]: image bytes, authenticated only for workspace hosts
//   - [OAuthClient]: the public integration authorization code flow
//
// All requests are pinned to API version [Version]. Listing calls are issued
// one after another on the caller's goroutine.
package notion
