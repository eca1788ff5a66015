package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blockdeck/pkg/blocks"
	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/ident"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/render/images"
)

// Client is the subset of the content source the pipeline needs.
// *notion.Client satisfies it.
type Client interface {
	blocks.Source
	images.Loader
	ChildPages(ctx context.Context, parentID string) ([]notion.PageRef, error)
	Page(ctx context.Context, pageID string) (*notion.PageRef, error)
}

// Runner encapsulates pipeline execution with caching.
//
// The Runner holds no per-run state. Multiple goroutines can use the same
// Runner with different options.
type Runner struct {
	Client  Client
	Fetcher *blocks.Fetcher
	Cache   cache.Cache
	Keyer   cache.Keyer
	Images  *images.Store
	Logger  *log.Logger
}

// NewRunner creates a runner over client.
// If c is nil, a NullCache is used (caching disabled).
// If keyer is nil, a DefaultKeyer is used.
func NewRunner(client Client, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Client:  client,
		Fetcher: blocks.NewFetcher(client),
		Cache:   c,
		Keyer:   keyer,
		Images:  images.NewStore(client, c, keyer),
		Logger:  logger,
	}
}

// Blocks resolves ref and returns the normalized block tree of the page,
// and whether it came from the cache.
func (r *Runner) Blocks(ctx context.Context, ref string, opts Options) ([]blocks.Block, bool, error) {
	id, err := ident.Parse(ref)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.BlocksKey(id)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var seq []blocks.Block
			if err := json.Unmarshal(data, &seq); err == nil {
				r.Logger.Debug("blocks cache hit", "page", id, "blocks", blocks.Count(seq))
				return seq, true, nil
			}
		}
	}

	start := time.Now()
	seq, err := r.Fetcher.FetchTree(ctx, id)
	if err != nil {
		return nil, false, err
	}
	r.Logger.Info("fetched blocks",
		"page", id,
		"blocks", blocks.Count(seq),
		"duration", time.Since(start))

	if data, err := json.Marshal(seq); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLBlocks); err != nil {
			r.Logger.Debug("cache blocks", "page", id, "error", err)
		}
	}
	return seq, false, nil
}

// Deck is a parent page and the slides built from its child pages.
type Deck struct {
	Parent notion.PageRef
	Slides []DeckSlide
}

// DeckSlide is one child page and its blocks.
type DeckSlide struct {
	Page   notion.PageRef
	Blocks []blocks.Block
}

// Deck lists the child pages of parentRef and fetches the blocks of each,
// in source order. A parent with no child pages is a NOT_FOUND error.
func (r *Runner) Deck(ctx context.Context, parentRef string, opts Options) (*Deck, error) {
	id, err := ident.Parse(parentRef)
	if err != nil {
		return nil, err
	}
	deck := &Deck{Parent: notion.PageRef{ID: id, Title: "Untitled"}}
	if p, err := r.Client.Page(ctx, id); err != nil {
		r.Logger.Debug("parent title unavailable", "page", id, "error", err)
	} else if p.Title != "" {
		deck.Parent.Title = p.Title
		deck.Parent.URL = p.URL
	}

	pages, err := r.Client.ChildPages(ctx, id)
	if err != nil {
		return nil, blocks.SourceError(id, err)
	}
	if len(pages) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "page %s has no child pages", id)
	}

	for _, p := range pages {
		seq, _, err := r.Blocks(ctx, p.ID, opts)
		if err != nil {
			return nil, err
		}
		deck.Slides = append(deck.Slides, DeckSlide{Page: p, Blocks: seq})
	}
	r.Logger.Info("loaded deck", "parent", deck.Parent.Title, "slides", len(deck.Slides))
	return deck, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
