package images

import (
	"context"
	"fmt"
	"image"

	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
)

// Loader fetches image bytes by URL.
type Loader interface {
	FetchImage(ctx context.Context, url string) (*notion.Image, error)
}

// Store loads images through a Loader and caches their bytes.
type Store struct {
	loader Loader
	cache  cache.Cache
	keyer  cache.Keyer
}

// NewStore creates a store. A nil cache disables caching and a nil keyer
// uses the default key layout.
func NewStore(loader Loader, c cache.Cache, keyer cache.Keyer) *Store {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Store{loader: loader, cache: c, keyer: keyer}
}

// Load returns the bytes of the image at url and their sniffed MIME type.
// Bytes that are not a recognizable image are an error and are not cached.
func (s *Store) Load(ctx context.Context, url string) ([]byte, string, error) {
	key := s.keyer.ImageKey(url)
	if data, ok, _ := s.cache.Get(ctx, key); ok {
		if mime := Sniff(data); mime != "" {
			return data, mime, nil
		}
	}

	img, err := s.loader.FetchImage(ctx, url)
	if err != nil {
		return nil, "", err
	}
	mime := Sniff(img.Data)
	if mime == "" {
		return nil, "", fmt.Errorf("%s: not an image (content type %s)", url, img.ContentType)
	}
	_ = s.cache.Set(ctx, key, img.Data, cache.TTLImage)
	return img.Data, mime, nil
}

// Size returns the intrinsic pixel size of the image at url.
func (s *Store) Size(ctx context.Context, url string) (w, h int, err error) {
	data, _, err := s.Load(ctx, url)
	if err != nil {
		return 0, 0, err
	}
	return Size(data)
}

// Decode loads and decodes the image at url.
func (s *Store) Decode(ctx context.Context, url string) (image.Image, error) {
	data, _, err := s.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// DataURI loads the image at url and returns it as a data: URI.
func (s *Store) DataURI(ctx context.Context, url string) (string, error) {
	data, _, err := s.Load(ctx, url)
	if err != nil {
		return "", err
	}
	return DataURI(data), nil
}

// Sizes holds prefetched intrinsic sizes keyed by source URL.
type Sizes map[string][2]int

// Lookup reports the size recorded for src. It matches the renderer's
// image sizer signature.
func (s Sizes) Lookup(src string) (w, h int, ok bool) {
	wh, ok := s[src]
	return wh[0], wh[1], ok
}
