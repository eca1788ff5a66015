package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/export"
	"github.com/matzehuels/blockdeck/pkg/integrations"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/render/slide"
)

const (
	parentID = "11111111-1111-1111-1111-111111111111"
	slideA   = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	slideB   = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

type fakeClient struct {
	children map[string][]string // container id -> raw block JSON
	images   map[string][]byte
	title    string
	calls    int
}

func (f *fakeClient) ListChildren(_ context.Context, id, _ string) (*notion.ListPage, error) {
	f.calls++
	raws, ok := f.children[id]
	if !ok {
		return nil, integrations.ErrNotFound
	}
	page := &notion.ListPage{}
	for _, s := range raws {
		var b notion.RawBlock
		if err := json.Unmarshal([]byte(s), &b); err != nil {
			return nil, err
		}
		page.Results = append(page.Results, b)
	}
	return page, nil
}

func (f *fakeClient) ChildPages(ctx context.Context, id string) ([]notion.PageRef, error) {
	page, err := f.ListChildren(ctx, id, "")
	if err != nil {
		return nil, err
	}
	var out []notion.PageRef
	for _, b := range page.Results {
		if b.Type == "child_page" {
			out = append(out, notion.PageRef{ID: b.ID, Title: b.ID[:1]})
		}
	}
	return out, nil
}

func (f *fakeClient) Page(_ context.Context, id string) (*notion.PageRef, error) {
	if f.title == "" {
		return nil, integrations.ErrNotFound
	}
	return &notion.PageRef{ID: id, Title: f.title}, nil
}

func (f *fakeClient) FetchImage(_ context.Context, url string) (*notion.Image, error) {
	data, ok := f.images[url]
	if !ok {
		return nil, integrations.ErrNotFound
	}
	return &notion.Image{Data: data, ContentType: "image/png"}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newFake(t *testing.T) *fakeClient {
	return &fakeClient{
		title: "Quarterly Review",
		children: map[string][]string{
			parentID: {
				`{"id":"` + slideA + `","type":"child_page","child_page":{"title":"A"}}`,
				`{"id":"x","type":"paragraph","paragraph":{}}`,
				`{"id":"` + slideB + `","type":"child_page","child_page":{"title":"B"}}`,
			},
			slideA: {
				`{"id":"h","type":"heading_1","heading_1":{"rich_text":[{"type":"text","text":{"content":"Hello"}}]}}`,
				`{"id":"i","type":"image","image":{"type":"external","external":{"url":"https://img/ok.png"}}}`,
				`{"id":"j","type":"image","image":{"type":"external","external":{"url":"https://img/missing.png"}}}`,
			},
			slideB: {
				`{"id":"p","type":"paragraph","paragraph":{"rich_text":[{"type":"text","text":{"content":"World"}}]}}`,
			},
		},
		images: map[string][]byte{"https://img/ok.png": pngBytes(t, 200, 100)},
	}
}

func newRunner(t *testing.T, f *fakeClient) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	return NewRunner(f, c, nil, log.NewWithOptions(&bytes.Buffer{}, log.Options{}))
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantFormat string
		wantErr    bool
	}{
		{"defaults", Options{}, "jpg", false},
		{"jpeg alias", Options{Format: "jpeg"}, "jpg", false},
		{"png", Options{Format: "png"}, "png", false},
		{"svg with gg", Options{Format: "svg"}, "svg", false},
		{"pdf with rsvg", Options{Format: "pdf", Backend: BackendRSVG}, "pdf", false},
		{"pdf with gg", Options{Format: "pdf"}, "", true},
		{"unknown format", Options{Format: "gif"}, "", true},
		{"unknown backend", Options{Backend: "cairo"}, "", true},
		{"bad background", Options{Background: "red"}, "", true},
		{"bad quality", Options{Quality: 101}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.opts.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", tt.opts.Format, tt.wantFormat)
			}
		})
	}
}

func TestValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Background: "10,20,30"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	eo := opts.ExportOptions()
	if eo.Background != "#0A141E" {
		t.Errorf("Background = %q, want #0A141E", eo.Background)
	}
	if eo.WidthPx != 1080 || eo.HeightPx != 1350 || eo.Quality != export.DefaultQuality {
		t.Errorf("ExportOptions() = %+v, want defaults", eo)
	}
}

func TestBlocksCache(t *testing.T) {
	f := newFake(t)
	r := newRunner(t, f)
	ctx := context.Background()

	seq, hit, err := r.Blocks(ctx, "https://www.notion.so/Slide-bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Options{})
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}
	if hit || len(seq) != 1 || seq[0].Kind != blocks.KindParagraph {
		t.Fatalf("Blocks() = %+v, hit %v", seq, hit)
	}
	calls := f.calls

	seq, hit, err = r.Blocks(ctx, slideB, Options{})
	if err != nil || !hit || len(seq) != 1 {
		t.Fatalf("Blocks() second call = %d blocks, hit %v, err %v; want cache hit", len(seq), hit, err)
	}
	if f.calls != calls {
		t.Errorf("source called on a cache hit")
	}

	_, hit, err = r.Blocks(ctx, slideB, Options{Refresh: true})
	if err != nil || hit {
		t.Errorf("Blocks(Refresh) hit = %v, err %v; want a fresh fetch", hit, err)
	}
	if f.calls == calls {
		t.Error("Refresh did not reach the source")
	}
}

func TestBlocksErrors(t *testing.T) {
	r := newRunner(t, newFake(t))
	_, _, err := r.Blocks(context.Background(), "not a page", Options{})
	if !errors.Is(err, errors.ErrCodeInvalidReference) {
		t.Errorf("Blocks(bad ref) error = %v, want INVALID_REFERENCE", err)
	}
	_, _, err = r.Blocks(context.Background(), "cccccccccccccccccccccccccccccccc", Options{})
	if !errors.Has(err, errors.ErrCodeNotFound) {
		t.Errorf("Blocks(unknown) error = %v, want NOT_FOUND cause", err)
	}
}

func TestDeck(t *testing.T) {
	r := newRunner(t, newFake(t))
	deck, err := r.Deck(context.Background(), parentID, Options{})
	if err != nil {
		t.Fatalf("Deck() error = %v", err)
	}
	if deck.Parent.Title != "Quarterly Review" {
		t.Errorf("Parent.Title = %q, want Quarterly Review", deck.Parent.Title)
	}
	if len(deck.Slides) != 2 || deck.Slides[0].Page.ID != slideA || deck.Slides[1].Page.ID != slideB {
		t.Fatalf("Slides = %+v, want A then B", deck.Slides)
	}
	if len(deck.Slides[0].Blocks) != 3 {
		t.Errorf("slide A blocks = %d, want 3", len(deck.Slides[0].Blocks))
	}
}

func TestDeckUntitledParent(t *testing.T) {
	f := newFake(t)
	f.title = ""
	deck, err := newRunner(t, f).Deck(context.Background(), parentID, Options{})
	if err != nil {
		t.Fatalf("Deck() error = %v", err)
	}
	if deck.Parent.Title != "Untitled" {
		t.Errorf("Parent.Title = %q, want Untitled", deck.Parent.Title)
	}
}

func TestDeckWithoutChildPages(t *testing.T) {
	_, err := newRunner(t, newFake(t)).Deck(context.Background(), slideB, Options{})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Deck() error = %v, want NOT_FOUND", err)
	}
}

func TestRenderImageSizes(t *testing.T) {
	f := newFake(t)
	r := newRunner(t, f)
	seq, _, err := r.Blocks(context.Background(), slideA, Options{})
	if err != nil {
		t.Fatal(err)
	}
	tree, err := r.Render(context.Background(), seq, Options{
		URLTransform: func(s string) string { return "/proxy?url=" + s },
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var imgs []*slide.Node
	slide.Walk(tree.Root, func(n *slide.Node) {
		if n.Kind == slide.KindImage {
			imgs = append(imgs, n)
		}
	})
	if len(imgs) != 2 {
		t.Fatalf("image nodes = %d, want 2", len(imgs))
	}
	if imgs[0].Placeholder || imgs[0].W != 880 || imgs[0].H != 440 {
		t.Errorf("sized image = %+v, want 880x440", imgs[0].Rect)
	}
	if !imgs[1].Placeholder {
		t.Error("unreadable image is not a placeholder")
	}
	if imgs[0].Src != "/proxy?url=https://img/ok.png" {
		t.Errorf("Src = %q, want proxied", imgs[0].Src)
	}
}

func TestRenderPreview(t *testing.T) {
	r := newRunner(t, newFake(t))
	seq := []blocks.Block{{ID: "p", Kind: blocks.KindParagraph, RichText: []blocks.Run{{Text: "x"}}}}
	tree, err := r.Render(context.Background(), seq, Options{PreviewWidth: 540})
	if err != nil {
		t.Fatal(err)
	}
	if tree.Overrides == nil {
		t.Error("preview overrides missing")
	}
}

func TestExport(t *testing.T) {
	r := newRunner(t, newFake(t))
	opts := Options{Format: "png", WidthPx: 270, HeightPx: 338}
	var progress []int
	opts.Progress = func(done, total int) { progress = append(progress, done) }

	deck, err := r.Deck(context.Background(), parentID, opts)
	if err != nil {
		t.Fatal(err)
	}
	sink := &export.MemorySink{}
	res, err := r.Export(context.Background(), deck, opts, sink)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Exported != 2 {
		t.Errorf("Exported = %d, want 2", res.Exported)
	}
	names := sink.Names()
	if len(names) != 2 || names[0] != "01.png" || names[1] != "02.png" {
		t.Errorf("Names() = %v, want [01.png 02.png]", names)
	}
	data, _ := sink.Get("01.png")
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != 270 || cfg.Height != 338 {
		t.Errorf("01.png = %dx%d (err %v), want 270x338", cfg.Width, cfg.Height, err)
	}
	if len(progress) != 2 || progress[1] != 2 {
		t.Errorf("progress = %v, want [1 2]", progress)
	}
}

func TestExportSVGNeedsNoBinary(t *testing.T) {
	r := newRunner(t, newFake(t))
	deck := &Deck{Slides: []DeckSlide{{Blocks: []blocks.Block{{ID: "d", Kind: blocks.KindDivider}}}}}
	sink := &export.MemorySink{}
	if _, err := r.Export(context.Background(), deck, Options{Format: "svg"}, sink); err != nil {
		t.Fatalf("Export(svg) error = %v", err)
	}
	data, ok := sink.Get("01.svg")
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<svg")) {
		t.Errorf("01.svg missing or not SVG")
	}
}

func TestExportEmptyDeck(t *testing.T) {
	r := newRunner(t, newFake(t))
	_, err := r.Export(context.Background(), &Deck{}, Options{}, &export.MemorySink{})
	if !errors.Is(err, errors.ErrCodeExportFailure) {
		t.Errorf("Export() error = %v, want EXPORT_FAILURE", err)
	}
}
