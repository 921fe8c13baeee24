package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/amityadav/marketwatch/internal/search"
)

const apiURL = "https://api.tavily.com/search"

// Client is a Tavily Search API client
type Client struct {
	apiKey     string
	endpoint   string
	client     *http.Client
	maxResults int
	news       bool
	now        func() time.Time
}

// NewClient creates a Tavily web adapter.
func NewClient(apiKey string, timeout time.Duration, maxResults int) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   apiURL,
		client:     &http.Client{Timeout: timeout},
		maxResults: maxResults,
		now:        time.Now,
	}
}

// NewNewsClient creates a Tavily adapter restricted to the news topic.
func NewNewsClient(apiKey string, timeout time.Duration, maxResults int) *Client {
	c := NewClient(apiKey, timeout, maxResults)
	c.news = true
	return c
}

// WithEndpoint points the client at another base URL.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// SearchRequest represents the Tavily search request payload
type SearchRequest struct {
	Query       string `json:"query"`
	APIKey      string `json:"api_key"`
	SearchDepth string `json:"search_depth,omitempty"` // "basic" or "advanced"
	Topic       string `json:"topic,omitempty"`        // "general" or "news"
	TimeRange   string `json:"time_range,omitempty"`   // day, week, month, year
	Country     string `json:"country,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// SearchResult represents a single search result from Tavily
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// SearchResponse represents the Tavily search response
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

// Name returns the provider identifier
func (c *Client) Name() string {
	if c.news {
		return "tavily-news"
	}
	return "tavily"
}

// Fetch implements search.Adapter.
func (c *Client) Fetch(ctx context.Context, req search.Request) search.Result {
	body := SearchRequest{
		Query:       req.Query,
		APIKey:      c.apiKey,
		SearchDepth: "basic",
		TimeRange:   timeRange(req.Window),
		MaxResults:  c.maxResults,
	}
	if c.news {
		body.Topic = "news"
	}
	if country := countryName(req.Locale.GL); country != "" && !req.Locale.Widened && !c.news {
		body.Country = country
	}

	resp, err := c.search(ctx, body)
	if err != nil {
		return search.Failed("tavily search failed: %v", err)
	}

	retrievedAt := c.now()
	out := make([]search.ResultRecord, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(out) >= c.maxResults {
			break
		}
		if r.Title == "" || r.URL == "" {
			continue
		}
		rec := search.ResultRecord{
			Type:        search.Classify(r.URL),
			PublishedAt: retrievedAt,
			Title:       strings.TrimSpace(r.Title),
			Source:      search.SourceFromLink(r.URL),
			Link:        r.URL,
		}
		if c.news {
			rec.Type = search.TypeNews
		}
		if r.PublishedDate != "" {
			if t, err := dateparse.ParseAny(r.PublishedDate); err == nil {
				rec.PublishedAt = t
			}
		}
		out = append(out, rec)
	}
	return search.Succeeded(out)
}

func (c *Client) search(ctx context.Context, body SearchRequest) (*SearchResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("api error: %d %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &searchResp, nil
}

func timeRange(w search.TimeWindow) string {
	switch w {
	case search.WindowDay, search.WindowWeek, search.WindowMonth, search.WindowYear:
		return string(w)
	}
	return ""
}

func countryName(gl string) string {
	switch strings.ToUpper(gl) {
	case "US":
		return "united states"
	case "CA":
		return "canada"
	case "HK":
		return "hong kong"
	}
	return ""
}
