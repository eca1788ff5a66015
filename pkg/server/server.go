package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/pipeline"
	"github.com/matzehuels/blockdeck/pkg/session"
)

// Defaults for [Config].
const (
	DefaultAddr         = ":3001"
	DefaultClientOrigin = "http://localhost:5173"

	// CookieName holds the session id.
	CookieName = "blockdeck_session"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
	cleanupInterval = 10 * time.Minute
)

// Config configures the service.
type Config struct {
	Addr string

	// BaseURL is the public URL of this service. The OAuth redirect URI is
	// BaseURL + "/api/notion/callback".
	BaseURL string

	// ClientOrigin is the web client allowed by CORS and the target of
	// OAuth redirects.
	ClientOrigin string

	OAuth notion.OAuthConfig

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool

	// NotionBaseURL overrides the API host. It is used by tests.
	NotionBaseURL string
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.BaseURL == "" {
		host := c.Addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		c.BaseURL = "http://" + host
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ClientOrigin == "" {
		c.ClientOrigin = DefaultClientOrigin
	}
	if c.OAuth.RedirectURI == "" {
		c.OAuth.RedirectURI = c.BaseURL + "/api/notion/callback"
	}
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	sessions session.Store
	states   session.StateStore
	cache    cache.Cache
	oauth    *notion.OAuthClient
	logger   *log.Logger
	images   singleflight.Group
	router   chi.Router
}

// New creates a server. A nil cache disables caching and a nil logger
// discards output.
func New(cfg Config, sessions session.Store, states session.StateStore, c cache.Cache, logger *log.Logger) *Server {
	cfg.setDefaults()
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	oauth := notion.NewOAuthClient(cfg.OAuth)
	if cfg.NotionBaseURL != "" {
		oauth = oauth.WithBaseURL(cfg.NotionBaseURL)
	}
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		states:   states,
		cache:    c,
		oauth:    oauth,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Use(s.loadSession)

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/api/notion", func(r chi.Router) {
		r.Get("/auth", s.handleAuth)
		r.Get("/callback", s.handleCallback)
		r.Get("/me", s.handleMe)
		r.Post("/disconnect", s.handleDisconnect)
		r.Get("/proxy-image", s.handleProxyImage)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/children", s.handleChildren)
			r.Get("/blocks", s.handleBlocks)
			r.Get("/search-databases", s.handleSearchDatabases)
			r.Get("/databases/{databaseId}/pages", s.handleDatabasePages)
			r.Post("/slides/render", s.handleRender)
			r.Post("/export", s.handleExport)
		})
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.cleanupLoop(janitorCtx, cleanupInterval)
	s.logger.Info("listening", "addr", s.cfg.Addr, "base_url", s.cfg.BaseURL, "client_origin", s.cfg.ClientOrigin)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errc; serveErr != nil && !stderrors.Is(serveErr, http.ErrServerClosed) {
		err = multierr.Append(err, serveErr)
	}
	s.logger.Info("server stopped")
	return err
}

// cleanupLoop drops expired sessions and OAuth states every interval until
// ctx is done.
func (s *Server) cleanupLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.cleanup(ctx)
		}
	}
}

func (s *Server) cleanup(ctx context.Context) {
	if s.sessions != nil {
		if err := s.sessions.Cleanup(ctx); err != nil {
			s.logger.Warn("session cleanup failed", "error", err)
		}
	}
	if s.states != nil {
		if err := s.states.Cleanup(ctx); err != nil {
			s.logger.Warn("state cleanup failed", "error", err)
		}
	}
}

// Close releases the cache and the session stores.
func (s *Server) Close() error {
	var err error
	if s.cache != nil {
		err = multierr.Append(err, s.cache.Close())
	}
	if s.sessions != nil {
		err = multierr.Append(err, s.sessions.Close())
	}
	if s.states != nil {
		err = multierr.Append(err, s.states.Close())
	}
	return err
}

// keyer scopes cache keys to the connected workspace.
func (s *Server) keyer(sess *session.Session) cache.Keyer {
	if id := sess.UserID(); id != "" {
		return cache.NewScopedKeyer(nil, id+":")
	}
	return cache.NewDefaultKeyer()
}

func (s *Server) client(sess *session.Session) *notion.Client {
	token := ""
	if sess != nil {
		token = sess.AccessToken
	}
	c := notion.NewClient(token, s.cache).WithKeyer(s.keyer(sess))
	if s.cfg.NotionBaseURL != "" {
		c = c.WithBaseURL(s.cfg.NotionBaseURL)
	}
	return c
}

func (s *Server) runner(sess *session.Session) *pipeline.Runner {
	return pipeline.NewRunner(s.client(sess), s.cache, s.keyer(sess), s.logger)
}
