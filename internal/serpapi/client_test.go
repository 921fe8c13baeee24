package serpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amityadav/marketwatch/internal/search"
)

func fakeSearch(doc map[string]interface{}, err error, seen *map[string]string) searchFunc {
	return func(engine string, parameter map[string]string) (map[string]interface{}, error) {
		if seen != nil {
			*seen = parameter
		}
		return doc, err
	}
}

func TestWebClient_Fetch(t *testing.T) {
	doc := map[string]interface{}{
		"organic_results": []interface{}{
			map[string]interface{}{"title": "Range review", "link": "https://www.example.com/range", "date": "2026-10-01"},
			map[string]interface{}{"title": "Community thread", "link": "https://community.example.org/t/1"},
			map[string]interface{}{"title": "", "link": "https://skip.example.com"},
		},
	}
	var params map[string]string
	c := NewWebClient("key", time.Second, 10)
	c.search = fakeSearch(doc, nil, &params)

	res := c.Fetch(context.Background(), search.Request{
		Query:  "range hood",
		Locale: search.Locale{HL: "en-US", GL: "US"},
		Window: search.WindowWeek,
	})

	require.True(t, res.OK, res.Diagnostic)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "example.com", res.Records[0].Source)
	assert.Equal(t, search.TypeWeb, res.Records[0].Type)
	assert.Equal(t, 2026, res.Records[0].PublishedAt.Year())
	assert.Equal(t, search.TypeForum, res.Records[1].Type)

	assert.Equal(t, "qdr:w", params["tbs"])
	assert.Equal(t, "us", params["gl"])
	assert.Equal(t, "en", params["hl"])
}

func TestWebClient_WidenedOmitsCountry(t *testing.T) {
	var params map[string]string
	c := NewWebClient("key", time.Second, 10)
	c.search = fakeSearch(map[string]interface{}{}, nil, &params)

	res := c.Fetch(context.Background(), search.Request{
		Query:  "方太",
		Locale: search.Locale{HL: "zh-TW", GL: "US", Widened: true},
		Window: search.WindowAll,
	})

	require.True(t, res.OK)
	assert.Empty(t, res.Records)
	assert.NotNil(t, res.Records)
	_, hasGL := params["gl"]
	assert.False(t, hasGL)
	_, hasTBS := params["tbs"]
	assert.False(t, hasTBS)
	assert.Equal(t, "zh-TW", params["hl"])
}

func TestNewsClient_UsesPublisher(t *testing.T) {
	doc := map[string]interface{}{
		"news_results": []interface{}{
			map[string]interface{}{"title": "Launch", "link": "https://news.example.com/a", "source": "Example Daily"},
		},
	}
	var params map[string]string
	c := NewNewsClient("key", time.Second, 10)
	c.search = fakeSearch(doc, nil, &params)

	res := c.Fetch(context.Background(), search.Request{Query: "GE", Window: search.WindowDay})

	require.True(t, res.OK)
	require.Len(t, res.Records, 1)
	assert.Equal(t, search.TypeNews, res.Records[0].Type)
	assert.Equal(t, "Example Daily", res.Records[0].Source)
	assert.Equal(t, "nws", params["tbm"])
	assert.Equal(t, "serpapi-news", c.Name())
}

func TestWebClient_Failures(t *testing.T) {
	c := NewWebClient("key", time.Second, 10)

	c.search = fakeSearch(nil, errors.New("boom"), nil)
	res := c.Fetch(context.Background(), search.Request{Query: "x"})
	assert.False(t, res.OK)
	assert.Empty(t, res.Records)
	assert.Contains(t, res.Diagnostic, "boom")

	c.search = fakeSearch(map[string]interface{}{"error": "Invalid API key"}, nil, nil)
	res = c.Fetch(context.Background(), search.Request{Query: "x"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Diagnostic, "Invalid API key")
}

func TestWebClient_Timeout(t *testing.T) {
	c := NewWebClient("key", 20*time.Millisecond, 10)
	c.search = func(string, map[string]string) (map[string]interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		return map[string]interface{}{}, nil
	}

	res := c.Fetch(context.Background(), search.Request{Query: "x"})
	assert.False(t, res.OK)
	assert.NotNil(t, res.Records)
}

func TestTrendsClient_Report(t *testing.T) {
	c := NewTrendsClient("key", time.Second)
	var calls []map[string]string
	c.search = func(engine string, parameter map[string]string) (map[string]interface{}, error) {
		assert.Equal(t, "google_trends", engine)
		calls = append(calls, parameter)
		if parameter["data_type"] == "TIMESERIES" {
			return map[string]interface{}{
				"interest_over_time": map[string]interface{}{
					"timeline_data": []interface{}{
						map[string]interface{}{
							"date":      "Oct 5 – 11, 2026",
							"timestamp": "1791158400",
							"values": []interface{}{
								map[string]interface{}{"query": "GE", "extracted_value": float64(70)},
								map[string]interface{}{"query": "Bosch", "extracted_value": float64(35)},
							},
						},
					},
				},
			}, nil
		}
		return map[string]interface{}{
			"related_queries": map[string]interface{}{
				"top":    []interface{}{map[string]interface{}{"query": parameter["q"] + " oven", "value": float64(100)}},
				"rising": []interface{}{map[string]interface{}{"query": parameter["q"] + " recall", "value": "Breakout"}},
			},
		}, nil
	}

	report, err := c.Report(context.Background(), []string{" GE ", "", "Bosch"}, "us", "1y")
	require.NoError(t, err)

	assert.Equal(t, []string{"GE", "Bosch"}, report.Keywords)
	assert.Equal(t, "US", report.Geo)
	assert.Equal(t, RangePastYear, report.Range)
	require.Len(t, report.InterestOverTime, 1)
	assert.Equal(t, 70, report.InterestOverTime[0].Values["GE"])
	assert.Equal(t, int64(1791158400), report.InterestOverTime[0].Time.Unix())
	require.Len(t, report.RelatedQueries, 4)
	assert.True(t, report.RelatedQueries[1].Rising)
	assert.Equal(t, "Breakout", report.RelatedQueries[1].Value)

	require.Len(t, calls, 3)
	assert.Equal(t, "GE,Bosch", calls[0]["q"])
}

func TestTrendsClient_NoKeywords(t *testing.T) {
	c := NewTrendsClient("key", time.Second)
	_, err := c.Report(context.Background(), []string{" "}, "US", "")
	require.Error(t, err)
}

func TestNormalizeRange(t *testing.T) {
	assert.Equal(t, RangePastWeek, NormalizeRange("7d"))
	assert.Equal(t, RangePastQuarter, NormalizeRange(""))
	assert.Equal(t, RangePastFiveYears, NormalizeRange("today 5-y"))
}
