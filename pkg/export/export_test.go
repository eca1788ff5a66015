package export

import (
	"archive/zip"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/render/slide"
)

type fakeRasterizer struct {
	calls  []RasterOptions
	trees  []*slide.Tree
	failAt int // 1-based call number that fails, 0 never
}

func (f *fakeRasterizer) Rasterize(_ context.Context, tree *slide.Tree, opts RasterOptions) ([]byte, error) {
	f.calls = append(f.calls, opts)
	f.trees = append(f.trees, tree)
	if f.failAt == len(f.calls) {
		return nil, fmt.Errorf("boom")
	}
	return []byte(fmt.Sprintf("slide-%d", len(f.calls))), nil
}

func testSlides(n int) []Slide {
	slides := make([]Slide, n)
	for i := range slides {
		slides[i] = Slide{
			Title: fmt.Sprintf("Slide %d", i+1),
			Tree: &slide.Tree{
				Width:      1080,
				Height:     1350,
				Background: "#FFFFFF",
				Overrides:  &slide.Overrides{Scale: 0.5, Width: 540, Height: 675, Overflow: "hidden"},
				Root:       &slide.Node{Kind: slide.KindBox, Fill: "#FFFFFF"},
			},
		}
	}
	return slides
}

func TestExportAll(t *testing.T) {
	r := &fakeRasterizer{}
	sink := &MemorySink{}
	c := NewCoordinator(r, sink, Options{WidthPx: 2160})
	var progress [][2]int
	c.Progress = func(done, total int) { progress = append(progress, [2]int{done, total}) }

	res, err := c.ExportAll(context.Background(), testSlides(3))
	if err != nil {
		t.Fatalf("ExportAll() error = %v", err)
	}
	if res.Exported != 3 {
		t.Errorf("Exported = %d, want 3", res.Exported)
	}
	want := []string{"01.jpg", "02.jpg", "03.jpg"}
	if !reflect.DeepEqual(sink.Names(), want) {
		t.Errorf("Names() = %v, want %v", sink.Names(), want)
	}
	if !reflect.DeepEqual(res.Files, want) {
		t.Errorf("Files = %v, want %v", res.Files, want)
	}
	if got, _ := sink.Get("02.jpg"); string(got) != "slide-2" {
		t.Errorf("02.jpg = %q, want slide-2", got)
	}
	if !reflect.DeepEqual(progress, [][2]int{{1, 3}, {2, 3}, {3, 3}}) {
		t.Errorf("progress = %v", progress)
	}

	opts := r.calls[0]
	if opts.WidthPx != 2160 || opts.HeightPx != 1350 || opts.Scale != 2 {
		t.Errorf("RasterOptions = %+v, want 2160x1350 at scale 2", opts)
	}
	if opts.Format != FormatJPEG || opts.Quality != DefaultQuality {
		t.Errorf("RasterOptions format = %s q%d, want jpg q%d", opts.Format, opts.Quality, DefaultQuality)
	}
	if r.trees[0].Overrides != nil {
		t.Error("preview overrides reached the rasterizer")
	}
}

func TestExportAllStopsAtFirstFailure(t *testing.T) {
	r := &fakeRasterizer{failAt: 2}
	sink := &MemorySink{}
	c := NewCoordinator(r, sink, DefaultOptions())

	res, err := c.ExportAll(context.Background(), testSlides(4))
	if !errors.Is(err, errors.ErrCodeExportFailure) {
		t.Fatalf("ExportAll() error = %v, want EXPORT_FAILURE", err)
	}
	if res.Exported != 1 {
		t.Errorf("Exported = %d, want 1", res.Exported)
	}
	if len(r.calls) != 2 {
		t.Errorf("rasterize calls = %d, want 2", len(r.calls))
	}
	if !reflect.DeepEqual(sink.Names(), []string{"01.jpg"}) {
		t.Errorf("Names() = %v, want [01.jpg]", sink.Names())
	}
}

type failingSink struct{}

func (failingSink) Write(context.Context, string, []byte) error { return io.ErrShortWrite }

func TestExportAllSinkFailure(t *testing.T) {
	c := NewCoordinator(&fakeRasterizer{}, failingSink{}, DefaultOptions())
	res, err := c.ExportAll(context.Background(), testSlides(2))
	if !errors.Is(err, errors.ErrCodeExportFailure) || !stderrors.Is(err, io.ErrShortWrite) {
		t.Fatalf("ExportAll() error = %v, want EXPORT_FAILURE wrapping short write", err)
	}
	if res.Exported != 0 {
		t.Errorf("Exported = %d, want 0", res.Exported)
	}
}

func TestExportAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeRasterizer{}
	_, err := NewCoordinator(r, &MemorySink{}, DefaultOptions()).ExportAll(ctx, testSlides(2))
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("ExportAll() error = %v, want context.Canceled", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("rasterize calls = %d, want 0", len(r.calls))
	}
}

func TestExportAllEmpty(t *testing.T) {
	res, err := NewCoordinator(&fakeRasterizer{}, &MemorySink{}, DefaultOptions()).ExportAll(context.Background(), nil)
	if err != nil || res.Exported != 0 {
		t.Errorf("ExportAll(nil) = %+v, %v", res, err)
	}
}

func TestNeutralize(t *testing.T) {
	src := testSlides(1)[0].Tree
	out := Neutralize(src, Options{Background: "#000000"})
	if out.Overrides != nil {
		t.Error("Overrides not stripped")
	}
	if out.Background != "#000000" || out.Root.Fill != "#000000" {
		t.Errorf("Background = %s / %s, want #000000", out.Background, out.Root.Fill)
	}
	if src.Overrides == nil || src.Background != "#FFFFFF" || src.Root.Fill != "#FFFFFF" {
		t.Error("Neutralize() mutated its input")
	}

	keep := Neutralize(src, Options{})
	if keep.Background != "#FFFFFF" {
		t.Errorf("Background = %s, want sheet background", keep.Background)
	}
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.WidthPx != 1080 || opts.HeightPx != 1350 || opts.Format != FormatJPEG || opts.Quality != 92 {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
	if err := opts.WithBackground("255,0,0"); err != nil || opts.Background != "#FF0000" {
		t.Errorf("WithBackground() = %v, Background = %s", err, opts.Background)
	}
	if err := opts.WithBackground("nope"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("WithBackground(nope) error = %v, want INVALID_INPUT", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jpg", FormatJPEG, false},
		{"jpeg", FormatJPEG, false},
		{"png", FormatPNG, false},
		{"pdf", FormatPDF, false},
		{"svg", FormatSVG, false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(0, FormatPNG); got != "01.png" {
		t.Errorf("FileName(0) = %q, want 01.png", got)
	}
	if got := FileName(99, FormatJPEG); got != "100.jpg" {
		t.Errorf("FileName(99) = %q, want 100.jpg", got)
	}
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "deck")
	sink := DirSink(dir)
	if err := sink.Write(context.Background(), "01.jpg", []byte("x")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "01.jpg"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
	if err := sink.Write(context.Background(), "../escape.jpg", nil); err == nil {
		t.Error("Write() accepted a path separator")
	}
}

func TestZipSink(t *testing.T) {
	var buf bytes.Buffer
	z := NewZipSink(&buf)
	c := NewCoordinator(&fakeRasterizer{}, z, Options{Format: FormatPNG})
	if _, err := c.ExportAll(context.Background(), testSlides(2)); err != nil {
		t.Fatalf("ExportAll() error = %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if !reflect.DeepEqual(names, []string{"01.png", "02.png"}) {
		t.Errorf("entries = %v, want [01.png 02.png]", names)
	}
}

func TestDir(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"My Launch Deck", "my-launch-deck"},
		{"  Q3: Results, Plans!  ", "q3-results-plans"},
		{"", "slides"},
		{"***", "slides"},
	}
	for _, tt := range tests {
		if got := Dir("base", tt.title); got != filepath.Join("base", tt.want) {
			t.Errorf("Dir(%q) = %q, want %q", tt.title, got, filepath.Join("base", tt.want))
		}
	}
}
