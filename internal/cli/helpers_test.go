package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/server"
	"github.com/matzehuels/blockdeck/pkg/style"
)

func titles(pages []notion.PageRef) string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Title
	}
	return strings.Join(out, ",")
}

func TestSortPages(t *testing.T) {
	base := []notion.PageRef{{Title: "Slide 10"}, {Title: "slide 2"}, {Title: "Agenda"}, {Title: "Slide 1"}}

	tests := []struct {
		by   string
		want string
	}{
		{"", "Slide 10,slide 2,Agenda,Slide 1"},
		{sortSource, "Slide 10,slide 2,Agenda,Slide 1"},
		{sortTitle, "Agenda,Slide 1,slide 2,Slide 10"},
	}
	for _, tt := range tests {
		t.Run(tt.by, func(t *testing.T) {
			pages := append([]notion.PageRef(nil), base...)
			if err := sortPages(pages, tt.by); err != nil {
				t.Fatalf("sortPages() error = %v", err)
			}
			if got := titles(pages); got != tt.want {
				t.Errorf("sortPages(%q) = %s, want %s", tt.by, got, tt.want)
			}
		})
	}

	if err := sortPages(base, "date"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("sortPages(date) error = %v, want INVALID_FORMAT", err)
	}
}

func TestPageListModel(t *testing.T) {
	pages := []notion.PageRef{{ID: "1", Title: "Intro"}, {ID: "2", Title: "Pricing"}, {ID: "3", Title: "Outro"}}
	key := func(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }
	runes := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

	send := func(m PageListModel, msgs ...tea.Msg) (PageListModel, tea.Cmd) {
		var cmd tea.Cmd
		var next tea.Model = m
		for _, msg := range msgs {
			next, cmd = next.(PageListModel).Update(msg)
		}
		return next.(PageListModel), cmd
	}

	t.Run("navigate", func(t *testing.T) {
		m, _ := send(NewPageListModel(pages), key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyUp))
		if m.Cursor != 1 {
			t.Errorf("Cursor = %d, want 1", m.Cursor)
		}
	})

	t.Run("cursor stays at top", func(t *testing.T) {
		m, _ := send(NewPageListModel(pages), key(tea.KeyUp))
		if m.Cursor != 0 {
			t.Errorf("Cursor = %d, want 0", m.Cursor)
		}
	})

	t.Run("filter and select", func(t *testing.T) {
		m, cmd := send(NewPageListModel(pages), runes("TRO"), key(tea.KeyDown), key(tea.KeyEnter))
		if m.Filter != "TRO" {
			t.Errorf("Filter = %q, want TRO", m.Filter)
		}
		if m.Selected == nil || m.Selected.ID != "3" {
			t.Fatalf("Selected = %+v, want Outro", m.Selected)
		}
		if cmd == nil {
			t.Error("Enter did not quit")
		}
	})

	t.Run("backspace widens filter", func(t *testing.T) {
		m, _ := send(NewPageListModel(pages), runes("pz"))
		if n := len(m.visible()); n != 0 {
			t.Fatalf("visible() = %d pages, want 0", n)
		}
		if !strings.Contains(m.View(), "no matches") {
			t.Error("View() does not report no matches")
		}
		m, _ = send(m, key(tea.KeyBackspace))
		if n := len(m.visible()); n != 1 {
			t.Errorf("visible() after backspace = %d pages, want 1", n)
		}
	})

	t.Run("enter without matches", func(t *testing.T) {
		m, cmd := send(NewPageListModel(pages), runes("zzz"), key(tea.KeyEnter))
		if m.Selected != nil || cmd != nil {
			t.Errorf("Enter with no matches selected %+v", m.Selected)
		}
	})

	t.Run("escape", func(t *testing.T) {
		m, cmd := send(NewPageListModel(pages), key(tea.KeyEsc))
		if m.Selected != nil || cmd == nil {
			t.Errorf("Esc = %+v, %v, want quit without selection", m.Selected, cmd)
		}
	})

	t.Run("window size", func(t *testing.T) {
		m, _ := send(NewPageListModel(pages), tea.WindowSizeMsg{Width: 80, Height: 8})
		if m.Height != 5 {
			t.Errorf("Height = %d, want 5", m.Height)
		}
	})
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  string
	}{
		{"ok", "?code=abc&state=s1", "abc", ""},
		{"denied", "?error=access_denied&state=s1", "", "authorization denied"},
		{"state mismatch", "?code=abc&state=other", "", "state mismatch"},
		{"no code", "?state=s1", "", "without code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			res := <-results
			if tt.wantErr == "" {
				if res.err != nil || res.code != tt.wantCode {
					t.Errorf("result = %q, %v, want %q", res.code, res.err, tt.wantCode)
				}
				if rec.Code != http.StatusOK {
					t.Errorf("status = %d, want 200", rec.Code)
				}
				return
			}
			if res.err == nil || !strings.Contains(res.err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", res.err, tt.wantErr)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCallbackHandlerDoesNotBlock(t *testing.T) {
	results := make(chan callbackResult)
	rec := httptest.NewRecorder()
	callbackHandler("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=x&state=s1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		path string
		want export.Format
		code errors.Code
	}{
		{"slide.png", export.FormatPNG, ""},
		{"out/Slide.JPG", export.FormatJPEG, ""},
		{"slide.jpeg", export.FormatJPEG, ""},
		{"slide.svg", export.FormatSVG, ""},
		{"slide.pdf", export.FormatPDF, ""},
		{"slide.gif", "", errors.ErrCodeInvalidFormat},
		{"slide", "", errors.ErrCodeInvalidFormat},
		{"", "", errors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := outputFormat(tt.path)
			if tt.code != "" {
				if !errors.Is(err, tt.code) {
					t.Errorf("outputFormat(%q) error = %v, want %s", tt.path, err, tt.code)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("outputFormat(%q) = %q, %v, want %q", tt.path, got, err, tt.want)
			}
		})
	}
}

func TestOutlineFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"", "dot", false},
		{"tree.dot", "dot", false},
		{"tree.SVG", "svg", false},
		{"tree.png", "png", false},
		{"tree.pdf", "pdf", false},
		{"tree.jpg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := outlineFormat(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("outlineFormat(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("outlineFormat(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		canvas style.Canvas
		width  int
		wantW  int
		wantH  int
	}{
		{style.DefaultCanvas(), 270, 270, 338},
		{style.DefaultCanvas(), 1080, 1080, 1350},
		{style.Canvas{Width: 1920, Height: 1080}, 960, 960, 540},
		{style.Canvas{}, 540, 540, 675},
	}
	for _, tt := range tests {
		w, h := scaledSize(tt.canvas, tt.width)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("scaledSize(%v, %d) = %d×%d, want %d×%d", tt.canvas, tt.width, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestServeOptionsApplyEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("BASE_URL", "https://deck.example.com")
	t.Setenv("CLIENT_ORIGIN", "https://app.example.com")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("MONGO_URI", "")

	opts := serveOptions{redisURL: "redis://flag:6379/1"}
	opts.applyEnv()

	if opts.addr != ":8080" {
		t.Errorf("addr = %q, want :8080", opts.addr)
	}
	if opts.baseURL != "https://deck.example.com" || opts.clientOrigin != "https://app.example.com" {
		t.Errorf("urls = %q, %q", opts.baseURL, opts.clientOrigin)
	}
	if opts.redisURL != "redis://flag:6379/1" {
		t.Errorf("redisURL = %q, flag should win over REDIS_URL", opts.redisURL)
	}

	t.Setenv("PORT", "")
	opts = serveOptions{}
	opts.applyEnv()
	if opts.addr != server.DefaultAddr {
		t.Errorf("addr without PORT = %q, want %q", opts.addr, server.DefaultAddr)
	}
}

func TestServeOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    serveOptions
		wantErr bool
	}{
		{"file", serveOptions{sessionStore: storeFile, cacheStore: storeFile}, false},
		{"no cache", serveOptions{sessionStore: storeFile, cacheStore: storeNone}, false},
		{"redis", serveOptions{sessionStore: storeRedis, cacheStore: storeRedis, redisURL: "redis://localhost:6379"}, false},
		{"mongo", serveOptions{sessionStore: storeMongo, cacheStore: storeNone, mongoURI: "mongodb://localhost"}, false},
		{"unknown store", serveOptions{sessionStore: "sqlite", cacheStore: storeNone}, true},
		{"unknown cache", serveOptions{sessionStore: storeFile, cacheStore: "memcached"}, true},
		{"redis without url", serveOptions{sessionStore: storeFile, cacheStore: storeRedis}, true},
		{"mongo without uri", serveOptions{sessionStore: storeMongo, cacheStore: storeNone}, true},
		{"bad base url", serveOptions{sessionStore: storeFile, cacheStore: storeNone, baseURL: "not a url"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenBackendsFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b, err := openBackends(t.Context(), serveOptions{sessionStore: storeFile, cacheStore: storeNone})
	if err != nil {
		t.Fatalf("openBackends() error = %v", err)
	}
	if b.sessions == nil || b.states == nil || b.cache == nil {
		t.Fatalf("openBackends() = %+v, want all stores set", b)
	}
	if b.rdb != nil {
		t.Error("file backends opened a redis client")
	}
	if err := b.close(); err != nil {
		t.Errorf("close() error = %v", err)
	}
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	for name, data := range map[string]string{
		"a.json":          "12345",
		"nested/b.json":   "123",
		"nested/deep/c.x": "1",
	} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	count, size, err := clearDir(dir)
	if err != nil {
		t.Fatalf("clearDir() error = %v", err)
	}
	if count != 3 || size != 9 {
		t.Errorf("clearDir() = %d files, %d bytes, want 3, 9", count, size)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir still has %d entries", len(entries))
	}

	count, _, err = clearDir(filepath.Join(dir, "missing"))
	if err != nil || count != 0 {
		t.Errorf("clearDir(missing) = %d, %v, want 0, nil", count, err)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestStatsLine(t *testing.T) {
	line := statsLine([]stat{{2, "slide"}, {1, "block"}, {0, "image"}}, true)
	for _, want := range []string{"2 slides", "1 block", iconCached} {
		if !strings.Contains(line, want) {
			t.Errorf("statsLine() = %q, missing %q", line, want)
		}
	}
	if strings.Contains(line, "image") {
		t.Errorf("statsLine() = %q, zero counts should be omitted", line)
	}
	if fresh := statsLine(nil, false); !strings.Contains(fresh, iconFresh) {
		t.Errorf("statsLine(fresh) = %q, missing %q", fresh, iconFresh)
	}
}

func TestLoadStyle(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadStyle("")
	if err != nil || cfg != nil {
		t.Fatalf("loadStyle() without a file = %v, %v, want nil, nil", cfg, err)
	}

	if _, err := loadStyle(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("loadStyle(explicit missing) succeeded")
	}

	if err := runCLI(t, "style", "init"); err != nil {
		t.Fatalf("style init error = %v", err)
	}
	cfg, err = loadStyle("")
	if err != nil || cfg == nil {
		t.Fatalf("loadStyle() after init = %v, %v", cfg, err)
	}
	if cfg[style.KeyBgColor] == nil {
		t.Errorf("loaded style lacks %s", style.KeyBgColor)
	}

	if err := runCLI(t, "style", "reset"); err != nil {
		t.Fatalf("style reset error = %v", err)
	}
	path, _ := defaultStylePath()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("style file still exists after reset: %v", err)
	}
}

func TestLoadStyleInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("padding = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadStyle(path); !errors.Is(err, errors.ErrCodeInvalidStyle) {
		t.Errorf("loadStyle(bad) error = %v, want INVALID_STYLE", err)
	}
}
