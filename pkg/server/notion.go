package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/ident"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/pipeline"
	"github.com/matzehuels/blockdeck/pkg/render/images"
)

type proxied struct {
	data []byte
	mime string
}

// handleProxyImage streams an image to the browser. The token is attached
// by the client only for workspace-hosted URLs, so no session is needed.
// Concurrent requests for one URL share a single upstream fetch.
func (s *Server) handleProxyImage(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("url")
	if src == "" {
		writeMessage(w, http.StatusBadRequest, "Missing url")
		return
	}
	sess := sessionFrom(r.Context())
	store := images.NewStore(s.client(sess), s.cache, s.keyer(sess))

	// The fetch is shared, so one caller going away must not fail the rest.
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.images.Do(sess.UserID()+"|"+src, func() (any, error) {
		data, mime, err := store.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		return proxied{data: data, mime: mime}, nil
	})
	if err != nil {
		s.logger.Debug("proxy image failed", "url", src, "error", err)
		writeMessage(w, http.StatusBadGateway, errImageFailed)
		return
	}
	img := v.(proxied)
	w.Header().Set("Content-Type", img.mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(img.data)
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("pageIdOrUrl")
	if ref == "" {
		writeMessage(w, http.StatusBadRequest, "Missing pageIdOrUrl")
		return
	}
	id, ok := ident.Resolve(ref)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid page ID or URL")
		return
	}
	pages, err := s.client(sessionFrom(r.Context())).ChildPages(r.Context(), id)
	if err != nil {
		s.writeError(w, r, blocks.SourceError(id, err))
		return
	}
	if pages == nil {
		pages = []notion.PageRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": pages})
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("blockIdOrUrl")
	if ref == "" {
		writeMessage(w, http.StatusBadRequest, "Missing blockIdOrUrl")
		return
	}
	if _, ok := ident.Resolve(ref); !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid block ID or URL")
		return
	}
	opts := pipeline.Options{Refresh: r.URL.Query().Get("refresh") == "1"}
	seq, _, err := s.runner(sessionFrom(r.Context())).Blocks(r.Context(), ref, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if seq == nil {
		seq = []blocks.Block{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": seq})
}

func (s *Server) handleSearchDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := s.client(sessionFrom(r.Context())).Databases(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if dbs == nil {
		dbs = []notion.DatabaseRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"databases": dbs})
}

func (s *Server) handleDatabasePages(w http.ResponseWriter, r *http.Request) {
	id, ok := ident.Resolve(chi.URLParam(r, "databaseId"))
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid database ID or URL")
		return
	}
	pages, err := s.client(sessionFrom(r.Context())).DatabasePages(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if pages == nil {
		pages = []notion.PageRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}
