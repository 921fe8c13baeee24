package serpapi

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Time range presets accepted by the trends engine.
const (
	RangePastWeek      = "now 7-d"
	RangePastMonth     = "today 1-m"
	RangePastQuarter   = "today 3-m"
	RangePastYear      = "today 12-m"
	RangePastFiveYears = "today 5-y"
)

// maxTrendKeywords is the comparison limit of the trends engine.
const maxTrendKeywords = 5

// TrendPoint is one timestamp of the interest-over-time series.
type TrendPoint struct {
	Date   string         `json:"date"`
	Time   time.Time      `json:"time"`
	Values map[string]int `json:"values"`
}

// RelatedQuery is a row of the related-queries table.
type RelatedQuery struct {
	Keyword string `json:"keyword"`
	Query   string `json:"query"`
	Value   string `json:"value"`
	Rising  bool   `json:"rising"`
}

// TrendsReport is the combined output for one trends request.
type TrendsReport struct {
	Keywords         []string       `json:"keywords"`
	Geo              string         `json:"geo"`
	Range            string         `json:"range"`
	InterestOverTime []TrendPoint   `json:"interest_over_time"`
	RelatedQueries   []RelatedQuery `json:"related_queries"`
}

// TrendsClient queries the Google Trends engine through SerpApi.
type TrendsClient struct {
	search  searchFunc
	timeout time.Duration
}

// NewTrendsClient creates a trends client.
func NewTrendsClient(apiKey string, timeout time.Duration) *TrendsClient {
	return &TrendsClient{search: librarySearch(apiKey), timeout: timeout}
}

// NormalizeRange maps dashboard shorthands onto engine presets; unknown values default to a quarter.
func NormalizeRange(r string) string {
	switch strings.ToLower(strings.TrimSpace(r)) {
	case "7d", "week", RangePastWeek:
		return RangePastWeek
	case "1m", "month", RangePastMonth:
		return RangePastMonth
	case "12m", "1y", "year", RangePastYear:
		return RangePastYear
	case "5y", RangePastFiveYears:
		return RangePastFiveYears
	default:
		return RangePastQuarter
	}
}

// Report fetches interest over time for up to five keywords and the related
// queries of each keyword.
func (c *TrendsClient) Report(ctx context.Context, keywords []string, geo, timeRange string) (*TrendsReport, error) {
	keywords = cleanKeywords(keywords)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("at least one keyword is required")
	}
	timeRange = NormalizeRange(timeRange)
	geo = strings.ToUpper(strings.TrimSpace(geo))

	report := &TrendsReport{
		Keywords:         keywords,
		Geo:              geo,
		Range:            timeRange,
		InterestOverTime: []TrendPoint{},
		RelatedQueries:   []RelatedQuery{},
	}

	doc, err := c.run(ctx, map[string]string{
		"q":         strings.Join(keywords, ","),
		"geo":       geo,
		"date":      timeRange,
		"data_type": "TIMESERIES",
	})
	if err != nil {
		return nil, fmt.Errorf("interest over time: %w", err)
	}
	report.InterestOverTime = parseTimeline(doc)

	for _, kw := range keywords {
		doc, err := c.run(ctx, map[string]string{
			"q":         kw,
			"geo":       geo,
			"date":      timeRange,
			"data_type": "RELATED_QUERIES",
		})
		if err != nil {
			return nil, fmt.Errorf("related queries for %q: %w", kw, err)
		}
		report.RelatedQueries = append(report.RelatedQueries, parseRelated(kw, doc)...)
	}
	return report, nil
}

func (c *TrendsClient) run(ctx context.Context, parameter map[string]string) (map[string]interface{}, error) {
	doc, err := runWithTimeout(ctx, c.timeout, func() (map[string]interface{}, error) {
		return c.search("google_trends", parameter)
	})
	if err != nil {
		return nil, err
	}
	if msg, ok := doc["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("serpapi error: %s", msg)
	}
	return doc, nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, kw)
		if len(out) == maxTrendKeywords {
			break
		}
	}
	return out
}

func parseTimeline(doc map[string]interface{}) []TrendPoint {
	iot, _ := doc["interest_over_time"].(map[string]interface{})
	rows, _ := iot["timeline_data"].([]interface{})
	points := make([]TrendPoint, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		p := TrendPoint{Values: map[string]int{}}
		p.Date, _ = m["date"].(string)
		if ts, ok := m["timestamp"].(string); ok {
			var sec int64
			if _, err := fmt.Sscan(ts, &sec); err == nil {
				p.Time = time.Unix(sec, 0).UTC()
			}
		}
		values, _ := m["values"].([]interface{})
		for _, v := range values {
			vm, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			q, _ := vm["query"].(string)
			if n, ok := vm["extracted_value"].(float64); ok {
				p.Values[q] = int(n)
			}
		}
		points = append(points, p)
	}
	return points
}

func parseRelated(keyword string, doc map[string]interface{}) []RelatedQuery {
	rq, _ := doc["related_queries"].(map[string]interface{})
	var out []RelatedQuery
	for _, bucket := range []string{"top", "rising"} {
		rows, _ := rq[bucket].([]interface{})
		for _, row := range rows {
			m, ok := row.(map[string]interface{})
			if !ok {
				continue
			}
			q, _ := m["query"].(string)
			if q == "" {
				continue
			}
			out = append(out, RelatedQuery{
				Keyword: keyword,
				Query:   q,
				Value:   fmt.Sprint(m["value"]),
				Rising:  bucket == "rising",
			})
		}
	}
	return out
}
