// Package duckduckgo is the default web adapter. It scrapes the HTML results page,
// which needs no API key.
package duckduckgo

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amityadav/marketwatch/internal/search"
)

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// Client scrapes web results for a query.
type Client struct {
	client     *http.Client
	endpoint   string
	maxResults int
	now        func() time.Time
}

// NewClient creates a web adapter that truncates to maxResults.
func NewClient(timeout time.Duration, maxResults int) *Client {
	return &Client{
		client:     &http.Client{Timeout: timeout},
		endpoint:   defaultEndpoint,
		maxResults: maxResults,
		now:        time.Now,
	}
}

// WithEndpoint points the client at another results page (tests).
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

func (c *Client) Name() string {
	return "duckduckgo"
}

// Fetch implements search.Adapter.
func (c *Client) Fetch(ctx context.Context, req search.Request) search.Result {
	params := url.Values{}
	params.Set("q", req.Query)
	if req.Locale.WebRegion != "" {
		params.Set("kl", req.Locale.WebRegion)
	}
	if df := timeLimit(req.Window); df != "" {
		params.Set("df", df)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return search.Failed("build request: %v", err)
	}

	// Browser-like headers; the HTML endpoint rejects obvious bots.
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return search.Failed("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return search.Failed("status code error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return search.Failed("parse html: %v", err)
	}

	retrievedAt := c.now()
	out := make([]search.ResultRecord, 0, c.maxResults)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(out) >= c.maxResults {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}
		a := s.Find("a.result__a").First()
		title := strings.TrimSpace(a.Text())
		href, ok := a.Attr("href")
		if !ok || title == "" {
			return true
		}
		link := unwrapRedirect(href)
		if link == "" {
			return true
		}
		out = append(out, search.ResultRecord{
			Type:        search.Classify(link),
			PublishedAt: retrievedAt,
			Title:       title,
			Source:      search.SourceFromLink(link),
			Link:        link,
		})
		return true
	})

	return search.Succeeded(out)
}

// timeLimit maps the window onto the provider's d/w/m/y granularity.
func timeLimit(w search.TimeWindow) string {
	switch w {
	case search.WindowDay:
		return "d"
	case search.WindowWeek:
		return "w"
	case search.WindowMonth:
		return "m"
	case search.WindowYear:
		return "y"
	}
	return ""
}

// unwrapRedirect returns the target of a "/l/?uddg=" redirect, or href itself when absolute.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
