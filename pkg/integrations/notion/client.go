package notion

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/httputil"
	"github.com/matzehuels/blockdeck/pkg/integrations"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.notion.com"

	// Version is the API version every request is pinned to.
	Version = "2022-06-28"

	// PageSize is the page size used for every paginated call.
	PageSize = 100
)

// Client talks to the Notion REST API on behalf of one access token.
type Client struct {
	*integrations.Client
	images  *integrations.Client
	keyer   cache.Keyer
	baseURL string
	token   string
	refresh bool
}

// NewClient creates a client for token. Children listings are cached in c
// (pass nil to disable caching).
func NewClient(token string, c cache.Cache) *Client {
	headers := map[string]string{
		"Notion-Version": Version,
		"Accept":         "application/json",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(c, "notion:", cache.TTLChildren, headers),
		images:  integrations.NewClient(nil, "", 0, map[string]string{"Accept": "image/*"}),
		keyer:   cache.NewDefaultKeyer(),
		baseURL: DefaultBaseURL,
		token:   token,
	}
}

// WithBaseURL points the client at another API host. It is used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// WithKeyer replaces the keyer used for cached listings.
func (c *Client) WithKeyer(k cache.Keyer) *Client {
	if k != nil {
		c.keyer = k
	}
	return c
}

// WithRefresh makes every cached call bypass the cache.
func (c *Client) WithRefresh(refresh bool) *Client {
	c.refresh = refresh
	return c
}

// Token returns the access token the client was created with.
func (c *Client) Token() string { return c.token }

// Keyer returns the keyer used for cached listings.
func (c *Client) Keyer() cache.Keyer { return c.keyer }

// ListChildren returns one page of the children of a block or page.
// An empty cursor requests the first page.
func (c *Client) ListChildren(ctx context.Context, containerID, cursor string) (*ListPage, error) {
	q := url.Values{"page_size": {fmt.Sprint(PageSize)}}
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	endpoint := fmt.Sprintf("%s/v1/blocks/%s/children?%s", c.baseURL, url.PathEscape(containerID), q.Encode())

	var page ListPage
	err := c.Cached(ctx, c.keyer.ChildrenKey(containerID, cursor), c.refresh, &page, func() error {
		page = ListPage{}
		return c.Get(ctx, endpoint, &page)
	})
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", containerID, err)
	}
	return &page, nil
}

// Search returns one page of every object shared with the integration.
func (c *Client) Search(ctx context.Context, cursor string) (*ObjectPage, error) {
	var page ObjectPage
	err := httputil.RetryWithBackoff(ctx, func() error {
		page = ObjectPage{}
		return c.PostJSON(ctx, c.baseURL+"/v1/search", nil, paging(cursor), &page)
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return &page, nil
}

// QueryDatabase returns one page of the rows of a database.
func (c *Client) QueryDatabase(ctx context.Context, databaseID, cursor string) (*ObjectPage, error) {
	endpoint := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, url.PathEscape(databaseID))
	var page ObjectPage
	err := httputil.RetryWithBackoff(ctx, func() error {
		page = ObjectPage{}
		return c.PostJSON(ctx, endpoint, nil, paging(cursor), &page)
	})
	if err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}
	return &page, nil
}

// Me returns the bot user behind the token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.Get(ctx, c.baseURL+"/v1/users/me", &u)
	})
	if err != nil {
		return nil, fmt.Errorf("users/me: %w", err)
	}
	return &u, nil
}

// Page returns the id, title and URL of a page.
func (c *Client) Page(ctx context.Context, pageID string) (*PageRef, error) {
	endpoint := fmt.Sprintf("%s/v1/pages/%s", c.baseURL, url.PathEscape(pageID))
	var o Object
	err := httputil.RetryWithBackoff(ctx, func() error {
		o = Object{}
		return c.Get(ctx, endpoint, &o)
	})
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", pageID, err)
	}
	return &PageRef{ID: o.ID, Title: PageTitle(o.Properties), URL: o.URL}, nil
}

// FetchImage downloads image bytes. The access token is only attached for
// hosts that serve workspace files; external images are fetched anonymously.
func (c *Client) FetchImage(ctx context.Context, rawURL string) (*Image, error) {
	var headers map[string]string
	if c.token != "" && NeedsAuth(rawURL) {
		headers = map[string]string{"Authorization": "Bearer " + c.token}
	}
	var img Image
	err := httputil.RetryWithBackoff(ctx, func() error {
		data, ct, err := c.images.GetBytes(ctx, rawURL, headers)
		if err != nil {
			return err
		}
		img = Image{Data: data, ContentType: ct}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if img.ContentType == "" {
		img.ContentType = "image/png"
	}
	return &img, nil
}

// NeedsAuth reports whether an image URL points at workspace-hosted files.
func NeedsAuth(rawURL string) bool {
	return strings.Contains(rawURL, "notion") || strings.Contains(rawURL, "s3-us-west-2.amazonaws.com")
}

func paging(cursor string) map[string]any {
	body := map[string]any{"page_size": PageSize}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	return body
}
