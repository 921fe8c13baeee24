// Package googlenews is the news adapter backed by the Google News RSS search feed.
package googlenews

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/amityadav/marketwatch/internal/search"
)

const (
	defaultEndpoint = "https://news.google.com/rss/search"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 marketwatch/1.0"
)

// Client queries the feed-search endpoint and normalizes entries into news records.
type Client struct {
	client     *http.Client
	endpoint   string
	maxResults int
	now        func() time.Time
}

// NewClient creates a news adapter with an explicit per-request timeout.
func NewClient(timeout time.Duration, maxResults int) *Client {
	return &Client{
		client:     &http.Client{Timeout: timeout},
		endpoint:   defaultEndpoint,
		maxResults: maxResults,
		now:        time.Now,
	}
}

// WithEndpoint points the client at another feed endpoint (tests, mirrors).
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return "googlenews"
}

// Fetch implements search.Adapter.
func (c *Client) Fetch(ctx context.Context, req search.Request) search.Result {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(req), nil)
	if err != nil {
		return search.Failed("build request: %v", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return search.Failed("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return search.Failed("google news rss http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return search.Failed("parse feed: %v", err)
	}

	retrievedAt := c.now()
	var cutoff time.Time
	if d := req.Window.Duration(); d > 0 {
		cutoff = retrievedAt.Add(-d)
	}

	out := make([]search.ResultRecord, 0, len(feed.Items))
	for _, it := range feed.Items {
		if len(out) >= c.maxResults {
			break
		}
		link := strings.TrimSpace(it.Link)
		title, source := splitPublisher(strings.TrimSpace(it.Title))
		if link == "" || title == "" {
			continue
		}
		pub := publishedAt(it, retrievedAt)
		if !cutoff.IsZero() && pub.Before(cutoff) {
			continue
		}
		if source == "" {
			source = search.SourceFromLink(link)
		}
		out = append(out, search.ResultRecord{
			Type:        search.TypeNews,
			PublishedAt: pub,
			Title:       title,
			Source:      source,
			Link:        link,
		})
	}
	return search.Succeeded(out)
}

func (c *Client) searchURL(req search.Request) string {
	q := req.Query
	if op := whenOperator(req.Window); op != "" {
		q += " " + op
	}
	return fmt.Sprintf("%s?q=%s&hl=%s&gl=%s&ceid=%s",
		c.endpoint,
		url.QueryEscape(q),
		url.QueryEscape(req.Locale.HL),
		url.QueryEscape(req.Locale.GL),
		url.QueryEscape(req.Locale.CEID),
	)
}

// whenOperator narrows the feed server-side; entries are still filtered locally.
func whenOperator(w search.TimeWindow) string {
	switch w {
	case search.WindowDay:
		return "when:1d"
	case search.WindowWeek:
		return "when:7d"
	case search.WindowMonth:
		return "when:30d"
	}
	return ""
}

// publishedAt falls back to the retrieval time when the entry has no usable date.
func publishedAt(it *gofeed.Item, retrievedAt time.Time) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return *it.PublishedParsed
	case it.UpdatedParsed != nil:
		return *it.UpdatedParsed
	}
	if it.Published != "" {
		if t, err := dateparse.ParseAny(it.Published); err == nil {
			return t
		}
	}
	return retrievedAt
}

// splitPublisher separates the "Headline - Publisher" suffix the feed appends to titles.
func splitPublisher(title string) (string, string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}
