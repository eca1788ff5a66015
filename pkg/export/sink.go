package export

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gosimple/slug"

	"github.com/matzehuels/blockdeck/pkg/errors"
)

// Sink receives exported files by name.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// DirSink writes files into a directory, creating it on first write.
type DirSink string

// Write implements Sink.
func (d DirSink) Write(_ context.Context, name string, data []byte) error {
	if err := errors.ValidateOutputName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(string(d), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(string(d), name), data, 0o644)
}

// ZipSink writes files as entries of a zip archive. Call Close to write
// the central directory.
type ZipSink struct {
	zw *zip.Writer
}

// NewZipSink creates a sink writing a zip archive to w.
func NewZipSink(w io.Writer) *ZipSink {
	return &ZipSink{zw: zip.NewWriter(w)}
}

// Write implements Sink.
func (z *ZipSink) Write(_ context.Context, name string, data []byte) error {
	f, err := z.zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// Close finishes the archive. It does not close the underlying writer.
func (z *ZipSink) Close() error { return z.zw.Close() }

// MemorySink keeps files in memory. The zero value is ready to use.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// Write implements Sink.
func (m *MemorySink) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the content written under name.
func (m *MemorySink) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

// Names returns the written names in sorted order.
func (m *MemorySink) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dir returns the default output directory for a deck titled title under
// base. Titles that slug to nothing fall back to "slides".
func Dir(base, title string) string {
	name := slug.Make(title)
	if name == "" {
		name = "slides"
	}
	return filepath.Join(base, name)
}
