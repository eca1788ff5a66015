package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/integrations"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/session"
)

const (
	deckID  = "11111111111111111111111111111111"
	slide1  = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	slide2  = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	origin  = "http://localhost:5173"
	baseURL = "http://api.test"
)

type testEnv struct {
	srv      *Server
	api      *httptest.Server
	sessions *session.FileStore
}

// fakeNotion serves the handful of endpoints the service calls.
func fakeNotion(t *testing.T) *httptest.Server {
	t.Helper()
	var api *httptest.Server
	children := map[string]func() string{
		"11111111-1111-1111-1111-111111111111": func() string {
			return `{"results":[
				{"object":"block","id":"` + slide1 + `","type":"child_page","child_page":{"title":"Intro"}},
				{"object":"block","id":"` + slide2 + `","type":"child_page","child_page":{"title":"Outro"}}
			],"next_cursor":null,"has_more":false}`
		},
		slide1: func() string {
			return `{"results":[
				{"object":"block","id":"h","type":"heading_1","heading_1":{"rich_text":[{"type":"text","plain_text":"Hello","text":{"content":"Hello"}}]}},
				{"object":"block","id":"i","type":"image","image":{"type":"external","external":{"url":"` + api.URL + `/files/ok.png"}}}
			],"next_cursor":null,"has_more":false}`
		},
		slide2: func() string {
			return `{"results":[{"object":"block","id":"d","type":"divider","divider":{}}],"next_cursor":null,"has_more":false}`
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/blocks/{id}/children", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"object":"error","status":401,"code":"unauthorized","message":"bad token"}`)
			return
		}
		body, ok := children[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"object":"error","status":404,"code":"object_not_found","message":"Could not find block"}`)
			return
		}
		fmt.Fprint(w, body())
	})
	mux.HandleFunc("GET /v1/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"object":"page","id":%q,"properties":{"title":{"type":"title","title":[{"plain_text":"Launch Deck"}]}}}`, r.PathValue("id"))
	})
	mux.HandleFunc("POST /v1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"object":"database","id":"db1","title":[{"plain_text":"Tasks"}]},
			{"object":"page","id":"p1"}
		],"next_cursor":null}`)
	})
	mux.HandleFunc("POST /v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"secret","bot_id":"bot-1","workspace_name":"Acme"}`)
	})
	mux.HandleFunc("GET /files/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, image.NewNRGBA(image.Rect(0, 0, 40, 20)))
	})
	mux.HandleFunc("GET /files/not-an-image", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello")
	})

	api = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func newEnv(t *testing.T, oauth notion.OAuthConfig) *testEnv {
	t.Helper()
	api := fakeNotion(t)
	store, err := session.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	srv := New(Config{
		BaseURL:       baseURL,
		ClientOrigin:  origin,
		OAuth:         oauth,
		NotionBaseURL: api.URL,
	}, store, session.NewMemoryStateStore(), nil, nil)
	return &testEnv{srv: srv, api: api, sessions: store}
}

func (e *testEnv) connect(t *testing.T) *http.Cookie {
	t.Helper()
	sess, err := session.New("secret", "bot-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.sessions.Set(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: CookieName, Value: sess.ID}
}

func (e *testEnv) do(method, target string, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	rec := newEnv(t, notion.OAuthConfig{}).do(http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Errorf("GET /api/health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	req := httptest.NewRequest(http.MethodOptions, "/api/notion/me", nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
		t.Errorf("Allow-Origin = %q, want %q", got, origin)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for a foreign origin = %q, want empty", got)
	}
}

func TestNotConnected(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	for _, target := range []string{
		"/api/notion/me",
		"/api/notion/children?pageIdOrUrl=" + deckID,
		"/api/notion/blocks?blockIdOrUrl=" + deckID,
		"/api/notion/search-databases",
	} {
		rec := env.do(http.MethodGet, target, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", target, rec.Code)
			continue
		}
		if got := decode(t, rec)["error"]; got != errNotConnected {
			t.Errorf("GET %s error = %v, want %q", target, got, errNotConnected)
		}
	}

	rec := env.do(http.MethodGet, "/api/notion/me", "", &http.Cookie{Name: CookieName, Value: "unknown"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /me with an unknown session = %d, want 401", rec.Code)
	}
}

func TestAuthNotConfigured(t *testing.T) {
	rec := newEnv(t, notion.OAuthConfig{ClientID: "your_client_id"}).do(http.MethodGet, "/api/notion/auth", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /auth = %d, want 500", rec.Code)
	}
}

func TestOAuthFlow(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{ClientID: "cid", ClientSecret: "csecret"})

	rec := env.do(http.MethodGet, "/api/notion/auth", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("GET /auth = %d, want 302", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if got := loc.Query().Get("redirect_uri"); got != baseURL+"/api/notion/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("state missing from the authorization URL")
	}

	cb := "/api/notion/callback?code=abc&state=" + url.QueryEscape(state)
	rec = env.do(http.MethodGet, cb, "", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != origin+"?connected=1" {
		t.Fatalf("callback = %d %s", rec.Code, rec.Header().Get("Location"))
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Fatalf("session cookie = %+v", cookie)
	}

	rec = env.do(http.MethodGet, "/api/notion/me", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /me = %d", rec.Code)
	}
	me := decode(t, rec)
	if me["connected"] != true || me["bot_id"] != "bot-1" || me["workspace_name"] != "Acme" {
		t.Errorf("GET /me = %v", me)
	}

	// States are single use.
	rec = env.do(http.MethodGet, cb, "", nil)
	if got := rec.Header().Get("Location"); got != origin+"?error=invalid_callback" {
		t.Errorf("replayed callback Location = %q", got)
	}
}

func TestCallbackErrors(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{ClientID: "cid", ClientSecret: "csecret"})
	tests := []struct {
		query string
		want  string
	}{
		{"error=access_denied", "error=access_denied"},
		{"code=abc", "error=invalid_callback"},
		{"code=abc&state=forged", "error=invalid_callback"},
	}
	for _, tt := range tests {
		rec := env.do(http.MethodGet, "/api/notion/callback?"+tt.query, "", nil)
		if got := rec.Header().Get("Location"); got != origin+"?"+tt.want {
			t.Errorf("callback?%s Location = %q, want ?%s", tt.query, got, tt.want)
		}
	}
}

func TestDisconnect(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	cookie := env.connect(t)
	rec := env.do(http.MethodPost, "/api/notion/disconnect", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /disconnect = %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/notion/me", "", cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /me after disconnect = %d, want 401", rec.Code)
	}
}

func TestChildren(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	cookie := env.connect(t)

	rec := env.do(http.MethodGet, "/api/notion/children?pageIdOrUrl="+url.QueryEscape("https://www.notion.so/Deck-"+deckID), "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /children = %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Children []notion.PageRef `json:"children"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Children) != 2 || got.Children[0].Title != "Intro" || got.Children[1].ID != slide2 {
		t.Errorf("children = %+v", got.Children)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"pageIdOrUrl=nope", http.StatusBadRequest},
		{"pageIdOrUrl=cccccccccccccccccccccccccccccccc", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := env.do(http.MethodGet, "/api/notion/children?"+tt.query, "", cookie)
		if rec.Code != tt.want {
			t.Errorf("GET /children?%s = %d, want %d", tt.query, rec.Code, tt.want)
		}
	}
}

func TestBlocks(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	rec := env.do(http.MethodGet, "/api/notion/blocks?blockIdOrUrl="+slide1, "", env.connect(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /blocks = %d %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`"heading1"`, `"Hello"`, `/files/ok.png`} {
		if !strings.Contains(body, want) {
			t.Errorf("GET /blocks missing %s: %s", want, body)
		}
	}
}

func TestSearchDatabases(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	rec := env.do(http.MethodGet, "/api/notion/search-databases", "", env.connect(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /search-databases = %d", rec.Code)
	}
	var got struct {
		Databases []notion.DatabaseRef `json:"databases"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Databases) != 1 || got.Databases[0].ID != "db1" || got.Databases[0].Title != "Tasks" {
		t.Errorf("databases = %+v, want only Tasks", got.Databases)
	}
}

func TestProxyImage(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})

	rec := env.do(http.MethodGet, "/api/notion/proxy-image", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing url = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodGet, "/api/notion/proxy-image?url="+url.QueryEscape(env.api.URL+"/files/ok.png"), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("proxy = %d %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, max-age=3600" {
		t.Errorf("Cache-Control = %q", got)
	}

	for _, path := range []string{"/files/missing.png", "/files/not-an-image"} {
		rec = env.do(http.MethodGet, "/api/notion/proxy-image?url="+url.QueryEscape(env.api.URL+path), "", nil)
		if rec.Code != http.StatusBadGateway || decode(t, rec)["error"] != errImageFailed {
			t.Errorf("proxy %s = %d %s, want 502", path, rec.Code, rec.Body.String())
		}
	}
}

func TestProxyImageOutlivesCaller(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := "/api/notion/proxy-image?url=" + url.QueryEscape(env.api.URL+"/files/ok.png")
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("proxy with a gone caller = %d %s, want 200", rec.Code, rec.Body.String())
	}
}

func TestRenderSlide(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	rec := env.do(http.MethodPost, "/api/notion/slides/render", `{"blockIdOrUrl":"`+slide1+`","preview":540}`, env.connect(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /slides/render = %d %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("Content-Type = %q", got)
	}
	svg := rec.Body.String()
	if !strings.Contains(svg, `width="540" height="675"`) {
		t.Error("preview size missing")
	}
	if !strings.Contains(svg, baseURL+"/api/notion/proxy-image?url="+url.QueryEscape(env.api.URL)) {
		t.Error("image source not routed through the proxy")
	}

	rec = env.do(http.MethodPost, "/api/notion/slides/render", `{}`, env.connect(t))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("render without a reference = %d, want 400", rec.Code)
	}
}

func TestExportZip(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	rec := env.do(http.MethodPost, "/api/notion/export", `{"pageIdOrUrl":"`+deckID+`","format":"png","background":"0,0,0"}`, env.connect(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /export = %d %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="launch-deck.zip"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "01.png,02.png" {
		t.Errorf("zip entries = %v, want [01.png 02.png]", names)
	}
}

func TestExportRejectsPDFWithoutRSVG(t *testing.T) {
	env := newEnv(t, notion.OAuthConfig{})
	rec := env.do(http.MethodPost, "/api/notion/export", `{"pageIdOrUrl":"`+deckID+`","format":"pdf"}`, env.connect(t))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /export pdf = %d, want 400", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeInvalidReference, "bad"), http.StatusBadRequest},
		{errors.Wrap(errors.ErrCodeSourceUnavailable, errors.New(errors.ErrCodeNotFound, "gone"), "fetch"), http.StatusNotFound},
		{fmt.Errorf("list: %w", integrations.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("list: %w", integrations.ErrUnauthorized), http.StatusUnauthorized},
		{errors.New(errors.ErrCodeSourceUnavailable, "down"), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestClose(t *testing.T) {
	if err := newEnv(t, notion.OAuthConfig{}).srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

type countingStore struct {
	session.Store
	cleanups chan struct{}
}

func (s *countingStore) Cleanup(ctx context.Context) error {
	select {
	case s.cleanups <- struct{}{}:
	default:
	}
	return nil
}

func TestCleanupLoop(t *testing.T) {
	files, err := session.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := &countingStore{Store: files, cleanups: make(chan struct{}, 4)}
	srv := New(Config{}, store, session.NewMemoryStateStore(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.cleanupLoop(ctx, time.Millisecond)
		close(done)
	}()

	select {
	case <-store.cleanups:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanupLoop() never called Cleanup")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanupLoop() did not stop on cancel")
	}
}
