package blocks

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/integrations"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/observability"
)

// Source is the paged children listing a [Fetcher] reads from.
// [*notion.Client] implements it.
type Source interface {
	ListChildren(ctx context.Context, containerID, cursor string) (*notion.ListPage, error)
}

// Fetcher walks the block tree of a container through a [Source].
// Every call to the source is issued only after the previous one returned.
type Fetcher struct {
	src Source
}

// NewFetcher creates a fetcher reading from src.
func NewFetcher(src Source) *Fetcher {
	return &Fetcher{src: src}
}

// FetchChildren returns every child of containerID in source order,
// following the continuation cursor until the source reports no more pages.
func (f *Fetcher) FetchChildren(ctx context.Context, containerID string) ([]notion.RawBlock, error) {
	var (
		all    []notion.RawBlock
		cursor string
		seen   = map[string]bool{}
	)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := f.src.ListChildren(ctx, containerID, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		observability.Pipeline().OnFetchPage(ctx, containerID, page, len(resp.Results))

		if resp.NextCursor == "" {
			return all, nil
		}
		if seen[resp.NextCursor] {
			return nil, fmt.Errorf("%w: cursor %q repeated for %s", integrations.ErrNetwork, resp.NextCursor, containerID)
		}
		seen[resp.NextCursor] = true
		cursor = resp.NextCursor
	}
}

// FetchTree fetches and normalizes the blocks of containerID. List items
// with children get one extra listing for their nested blocks; a column list
// gets a listing of its columns and then one listing per column. Column
// content is taken as listed, without nested expansion.
//
// Any failed call aborts the whole fetch and no partial tree is returned.
// The error carries code SOURCE_UNAVAILABLE; a NOT_FOUND or UNAUTHORIZED
// cause stays visible through [errors.Has].
func (f *Fetcher) FetchTree(ctx context.Context, containerID string) ([]Block, error) {
	hooks := observability.Pipeline()
	hooks.OnFetchStart(ctx, containerID)
	start := time.Now()

	tree, err := f.fetchTree(ctx, containerID)
	if err != nil {
		err = SourceError(containerID, err)
		hooks.OnFetchComplete(ctx, containerID, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnFetchComplete(ctx, containerID, Count(tree), time.Since(start), nil)
	return tree, nil
}

func (f *Fetcher) fetchTree(ctx context.Context, containerID string) ([]Block, error) {
	raws, err := f.FetchChildren(ctx, containerID)
	if err != nil {
		return nil, err
	}

	out := make([]Block, 0, len(raws))
	for _, raw := range raws {
		b, ok := Normalize(raw)
		if !ok {
			continue
		}
		switch {
		case b.Kind.IsListItem() && raw.HasChildren:
			children, err := f.FetchChildren(ctx, raw.ID)
			if err != nil {
				return nil, err
			}
			b.Nested = NormalizeAll(children)
		case b.Kind == KindColumnList:
			cols, err := f.fetchColumns(ctx, raw.ID)
			if err != nil {
				return nil, err
			}
			b.Columns = cols
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *Fetcher) fetchColumns(ctx context.Context, listID string) ([]Column, error) {
	children, err := f.FetchChildren(ctx, listID)
	if err != nil {
		return nil, err
	}
	var raws []notion.RawBlock
	for _, c := range children {
		if c.Type == "column" {
			raws = append(raws, c)
		}
	}

	ratios := ReconcileRatios(declaredRatios(raws))
	cols := make([]Column, 0, len(raws))
	for i, raw := range raws {
		content, err := f.FetchChildren(ctx, raw.ID)
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{ID: raw.ID, Ratio: ratios[i], Blocks: NormalizeAll(withoutColumnLists(content))})
	}
	return cols, nil
}

// Count returns the number of blocks in tree, including nested blocks and
// column content.
func Count(tree []Block) int {
	n := 0
	for _, b := range tree {
		n++
		n += len(b.Nested)
		for _, c := range b.Columns {
			n += Count(c.Blocks)
		}
	}
	return n
}

// SourceError classifies a failed source call on containerID as a
// SOURCE_UNAVAILABLE error, keeping NOT_FOUND, UNAUTHORIZED and RATE_LIMITED
// causes visible. Context errors pass through unchanged.
func SourceError(containerID string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	cause := err
	switch {
	case stderrors.Is(err, integrations.ErrNotFound):
		cause = errors.Wrap(errors.ErrCodeNotFound, err, "%s was not found or is not shared with the integration", containerID)
	case stderrors.Is(err, integrations.ErrUnauthorized):
		cause = errors.Wrap(errors.ErrCodeUnauthorized, err, "access to %s was refused", containerID)
	case stderrors.Is(err, integrations.ErrRateLimited):
		cause = errors.Wrap(errors.ErrCodeRateLimited, err, "rate limited while fetching %s", containerID)
	}
	return errors.Wrap(errors.ErrCodeSourceUnavailable, cause, "fetch %s", containerID)
}
