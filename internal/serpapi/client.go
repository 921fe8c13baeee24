package serpapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	g "github.com/serpapi/google-search-results-golang"

	"github.com/amityadav/marketwatch/internal/search"
)

// searchFunc runs one SerpApi query and returns the decoded JSON document.
type searchFunc func(engine string, parameter map[string]string) (map[string]interface{}, error)

func librarySearch(apiKey string) searchFunc {
	return func(engine string, parameter map[string]string) (map[string]interface{}, error) {
		s := g.NewGoogleSearch(parameter, apiKey)
		s.Engine = engine
		return s.GetJSON()
	}
}

// runWithTimeout bounds a blocking library call; the library takes no context.
func runWithTimeout(ctx context.Context, timeout time.Duration, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		doc map[string]interface{}
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		doc, err := fn()
		done <- outcome{doc, err}
	}()

	select {
	case o := <-done:
		return o.doc, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("serpapi: %w", ctx.Err())
	}
}

// Client is a wrapper around the SerpApi Google search service. In news mode
// it queries the news tab and yields news records; otherwise organic web results.
type Client struct {
	search     searchFunc
	timeout    time.Duration
	maxResults int
	news       bool
	now        func() time.Time
}

// NewWebClient creates a web adapter over Google organic results.
func NewWebClient(apiKey string, timeout time.Duration, maxResults int) *Client {
	return &Client{
		search:     librarySearch(apiKey),
		timeout:    timeout,
		maxResults: maxResults,
		now:        time.Now,
	}
}

// NewNewsClient creates a news adapter over the Google News tab.
func NewNewsClient(apiKey string, timeout time.Duration, maxResults int) *Client {
	c := NewWebClient(apiKey, timeout, maxResults)
	c.news = true
	return c
}

// Name returns the provider identifier
func (c *Client) Name() string {
	if c.news {
		return "serpapi-news"
	}
	return "serpapi"
}

// Fetch implements search.Adapter.
func (c *Client) Fetch(ctx context.Context, req search.Request) search.Result {
	parameter := map[string]string{
		"q":             req.Query,
		"google_domain": "google.com",
		"num":           strconv.Itoa(c.maxResults),
	}
	if hl := language(req.Locale.HL); hl != "" {
		parameter["hl"] = hl
	}
	if req.Locale.GL != "" && !req.Locale.Widened {
		parameter["gl"] = strings.ToLower(req.Locale.GL)
	}
	if tbs := dateRestrict(req.Window); tbs != "" {
		parameter["tbs"] = tbs
	}
	node := "organic_results"
	if c.news {
		parameter["tbm"] = "nws"
		node = "news_results"
	}

	doc, err := runWithTimeout(ctx, c.timeout, func() (map[string]interface{}, error) {
		return c.search("google", parameter)
	})
	if err != nil {
		return search.Failed("serpapi search failed: %v", err)
	}
	if msg, ok := doc["error"].(string); ok && msg != "" {
		return search.Failed("serpapi error: %s", msg)
	}

	items, _ := doc[node].([]interface{})
	retrievedAt := c.now()
	out := make([]search.ResultRecord, 0, len(items))
	for _, item := range items {
		if len(out) >= c.maxResults {
			break
		}
		res, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		title, _ := res["title"].(string)
		link, _ := res["link"].(string)
		if title == "" || link == "" {
			continue
		}

		rec := search.ResultRecord{
			Type:        search.Classify(link),
			PublishedAt: retrievedAt,
			Title:       strings.TrimSpace(title),
			Source:      search.SourceFromLink(link),
			Link:        link,
		}
		if c.news {
			rec.Type = search.TypeNews
			if src, ok := res["source"].(string); ok && src != "" {
				rec.Source = src
			}
		}
		if date, ok := res["date"].(string); ok {
			if t, err := dateparse.ParseAny(date); err == nil {
				rec.PublishedAt = t
			}
		}
		out = append(out, rec)
	}
	return search.Succeeded(out)
}

// dateRestrict maps the window onto Google's qdr granularity.
func dateRestrict(w search.TimeWindow) string {
	switch w {
	case search.WindowDay:
		return "qdr:d"
	case search.WindowWeek:
		return "qdr:w"
	case search.WindowMonth:
		return "qdr:m"
	case search.WindowYear:
		return "qdr:y"
	}
	return ""
}

func language(hl string) string {
	if i := strings.Index(hl, "-"); i > 0 && !strings.HasPrefix(strings.ToLower(hl), "zh") {
		return strings.ToLower(hl[:i])
	}
	return hl
}
