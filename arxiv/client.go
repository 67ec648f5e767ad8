// Package arxiv queries the arXiv export API for paper metadata and downloads
// paper PDFs. It keeps no state between calls beyond the shared HTTP client
// and performs no retrying of its own.
package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zaka-ai/paperpush/errs"
)

const defaultBaseURL = "https://export.arxiv.org/api/query"

// Client talks to the arXiv query API.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the query API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient supplies the HTTP client used for all requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// NewClient returns a Client with a 60s request timeout unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search runs an arXiv API query and returns matching papers,
// most recently submitted first.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	u := fmt.Sprintf("%s?search_query=%s&sortBy=submittedDate&sortOrder=descending&max_results=%d",
		c.baseURL, url.QueryEscape(query), maxResults)

	feed, err := c.getFeed(ctx, u)
	if err != nil {
		return nil, errs.E(errs.KindFetch, "arxiv.search", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		p := parseEntry(entry)
		if p.ID == "" {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Recent returns papers submitted within the last days days.
func (c *Client) Recent(ctx context.Context, days, maxResults int) ([]Paper, error) {
	return c.Search(ctx, c.recentQuery("", days), maxResults)
}

// RecentInCategory is Recent restricted to one arXiv category. An empty
// category is equivalent to Recent.
func (c *Client) RecentInCategory(ctx context.Context, category string, days, maxResults int) ([]Paper, error) {
	return c.Search(ctx, c.recentQuery(category, days), maxResults)
}

// ByCategory returns the latest papers in an arXiv category (e.g., "cs.AI").
func (c *Client) ByCategory(ctx context.Context, category string, maxResults int) ([]Paper, error) {
	return c.Search(ctx, "cat:"+category, maxResults)
}

// ByKeyword returns the latest papers matching a free-text keyword.
func (c *Client) ByKeyword(ctx context.Context, keyword string, maxResults int) ([]Paper, error) {
	return c.Search(ctx, "all:"+keyword, maxResults)
}

// Metadata fetches a single paper's full record by arXiv identifier.
func (c *Client) Metadata(ctx context.Context, id string) (*Paper, error) {
	u := fmt.Sprintf("%s?id_list=%s", c.baseURL, url.QueryEscape(id))

	feed, err := c.getFeed(ctx, u)
	if err != nil {
		return nil, errs.E(errs.KindFetch, "arxiv.metadata", err)
	}
	if len(feed.Entries) == 0 {
		return nil, errs.Errorf(errs.KindFetch, "arxiv.metadata", "paper not found: %s", id)
	}

	p := parseEntry(feed.Entries[0])
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

func (c *Client) recentQuery(category string, days int) string {
	now := c.now().UTC()
	start := now.AddDate(0, 0, -days)
	q := fmt.Sprintf("submittedDate:[%s TO %s]",
		start.Format("200601021504"), now.Format("200601021504"))
	if category != "" {
		q = "cat:" + category + " AND " + q
	}
	return q
}
