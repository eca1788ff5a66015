package notion

import (
	"context"
	"strings"
)

const (
	untitledPage     = "Untitled"
	untitledDatabase = "Untitled Database"
)

// ChildPages lists the child_page blocks directly under parentID, in
// source order. Each child page is one slide of a deck.
func (c *Client) ChildPages(ctx context.Context, parentID string) ([]PageRef, error) {
	var pages []PageRef
	cursor := ""
	for {
		page, err := c.ListChildren(ctx, parentID, cursor)
		if err != nil {
			return nil, err
		}
		for _, b := range page.Results {
			if b.Type != "child_page" {
				continue
			}
			var cp ChildPage
			_ = b.Decode(&cp)
			title := strings.TrimSpace(cp.Title)
			if title == "" {
				title = untitledPage
			}
			pages = append(pages, PageRef{ID: b.ID, Title: title})
		}
		if page.NextCursor == "" {
			return pages, nil
		}
		cursor = page.NextCursor
	}
}

// Databases lists every database shared with the integration. The search
// endpoint is called without a filter and non-database results are dropped.
func (c *Client) Databases(ctx context.Context) ([]DatabaseRef, error) {
	var dbs []DatabaseRef
	cursor := ""
	for {
		page, err := c.Search(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, o := range page.Results {
			if o.Object != "database" {
				continue
			}
			dbs = append(dbs, DatabaseRef{ID: o.ID, Title: DatabaseTitle(o)})
		}
		if page.NextCursor == nil || *page.NextCursor == "" {
			return dbs, nil
		}
		cursor = *page.NextCursor
	}
}

// DatabasePages lists the pages stored in a database.
func (c *Client) DatabasePages(ctx context.Context, databaseID string) ([]PageRef, error) {
	var pages []PageRef
	cursor := ""
	for {
		page, err := c.QueryDatabase(ctx, databaseID, cursor)
		if err != nil {
			return nil, err
		}
		for _, o := range page.Results {
			if o.Object != "page" {
				continue
			}
			pages = append(pages, PageRef{ID: o.ID, Title: PageTitle(o.Properties), URL: o.URL})
		}
		if page.NextCursor == nil || *page.NextCursor == "" {
			return pages, nil
		}
		cursor = *page.NextCursor
	}
}

// DatabaseTitle returns the plain title of a database object.
func DatabaseTitle(o Object) string {
	if t := strings.TrimSpace(PlainText(o.Title)); t != "" {
		return t
	}
	return untitledDatabase
}

// PageTitle returns the plain text of the first title-typed property.
// Map iteration order is random, but a page has exactly one title property.
func PageTitle(props map[string]Property) string {
	for _, p := range props {
		if p.Type != "title" {
			continue
		}
		if t := strings.TrimSpace(PlainText(p.Title)); t != "" {
			return t
		}
		break
	}
	return untitledPage
}
