package server

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/pipeline"
	"github.com/matzehuels/blockdeck/pkg/render/sink"
	"github.com/matzehuels/blockdeck/pkg/style"
)

type renderRequest struct {
	BlockIDOrURL string       `json:"blockIdOrUrl"`
	Style        style.Config `json:"style,omitempty"`
	Preview      float64      `json:"preview,omitempty"` // width in px, 0 for full size
	Refresh      bool         `json:"refresh,omitempty"`
}

type exportRequest struct {
	PageIDOrURL string       `json:"pageIdOrUrl"`
	Style       style.Config `json:"style,omitempty"`
	Format      string       `json:"format,omitempty"`
	Background  string       `json:"background,omitempty"`
	Backend     string       `json:"backend,omitempty"`
	Refresh     bool         `json:"refresh,omitempty"`
}

// proxyURL routes an image source through the image proxy of this service.
func (s *Server) proxyURL(src string) string {
	return s.cfg.BaseURL + "/api/notion/proxy-image?url=" + url.QueryEscape(src)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.BlockIDOrURL == "" {
		writeMessage(w, http.StatusBadRequest, "Missing blockIdOrUrl")
		return
	}

	opts := pipeline.Options{
		Refresh:      req.Refresh,
		Style:        req.Style,
		PreviewWidth: req.Preview,
		URLTransform: s.proxyURL,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}
	runner := s.runner(sessionFrom(r.Context()))
	seq, _, err := runner.Blocks(r.Context(), req.BlockIDOrURL, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tree, err := runner.Render(r.Context(), seq, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	svg := sink.RenderSVG(tree, sink.WithEmbeddedFonts())
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.PageIDOrURL == "" {
		writeMessage(w, http.StatusBadRequest, "Missing pageIdOrUrl")
		return
	}

	opts := pipeline.Options{
		Refresh:    req.Refresh,
		Style:      req.Style,
		Format:     req.Format,
		Background: req.Background,
		Backend:    req.Backend,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}
	runner := s.runner(sessionFrom(r.Context()))
	deck, err := runner.Deck(r.Context(), req.PageIDOrURL, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	zs := export.NewZipSink(&buf)
	res, err := runner.Export(r.Context(), deck, opts, zs)
	if err == nil {
		err = zs.Close()
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Exported == 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeExportFailure, "no slides exported"))
		return
	}

	name := export.Dir("", deck.Parent.Title) + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
