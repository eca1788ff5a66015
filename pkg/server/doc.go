// Package server exposes the slide pipeline over HTTP for the web editor.
//
// Routes live under /api/notion and mirror what the browser client expects:
// an OAuth connect flow backed by a [session.Store], listings of pages and
// databases, normalized blocks, an image proxy, SVG slide rendering and a
// zip export of a whole deck.
//
// The service keeps no per-user state in memory. Sessions and OAuth state
// tokens live in the configured stores, and upstream listings and image
// bytes in the shared [cache.Cache], scoped per workspace.
//
//	srv := server.New(cfg, sessions, states, c, logger)
//	defer srv.Close()
//	err := srv.ListenAndServe(ctx)
package server
