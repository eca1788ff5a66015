package server

import (
	"net/http"
	"net/url"

	"github.com/matzehuels/blockdeck/pkg/session"
)

func (s *Server) redirectClient(w http.ResponseWriter, r *http.Request, key, value string) {
	target := s.cfg.ClientOrigin + "?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OAuth.Configured() {
		writeMessage(w, http.StatusInternalServerError, "Notion OAuth not configured: set NOTION_CLIENT_ID and NOTION_CLIENT_SECRET")
		return
	}
	state, err := s.states.Generate(r.Context(), session.DefaultStateTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, s.oauth.AuthorizationURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.redirectClient(w, r, "error", e)
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		s.redirectClient(w, r, "error", "invalid_callback")
		return
	}
	ok, err := s.states.Validate(r.Context(), state)
	if err != nil || !ok {
		s.logger.Debug("oauth state rejected", "error", err)
		s.redirectClient(w, r, "error", "invalid_callback")
		return
	}
	if !s.cfg.OAuth.Configured() {
		s.redirectClient(w, r, "error", "server_config")
		return
	}

	tok, err := s.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		s.logger.Warn("token exchange failed", "error", err)
		s.redirectClient(w, r, "error", "token_exchange")
		return
	}
	sess, err := session.FromToken(tok, session.DefaultTTL)
	if err == nil {
		err = s.sessions.Set(r.Context(), sess)
	}
	if err != nil {
		s.logger.Error("create session", "error", err)
		s.redirectClient(w, r, "error", "server_error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(session.DefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("workspace connected", "workspace", sess.WorkspaceName, "bot", sess.BotID)
	s.redirectClient(w, r, "connected", "1")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		writeMessage(w, http.StatusUnauthorized, errNotConnected)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":      true,
		"bot_id":         sess.BotID,
		"workspace_name": sess.WorkspaceName,
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess != nil {
		if err := s.sessions.Delete(r.Context(), sess.ID); err != nil {
			s.logger.Warn("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
