package aggregator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amityadav/marketwatch/internal/aggregator"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
	"github.com/amityadav/marketwatch/internal/query"
	"github.com/amityadav/marketwatch/internal/search"
)

type stubAdapter struct {
	name  string
	links []string
	fail  bool
	delay time.Duration

	mu       sync.Mutex
	requests []search.Request
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(_ context.Context, req search.Request) search.Result {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	time.Sleep(s.delay)
	if s.fail {
		return search.Failed("%s unavailable", s.name)
	}
	out := make([]search.ResultRecord, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, search.ResultRecord{
			Type:   search.Classify(l),
			Title:  s.name + " " + l,
			Source: search.SourceFromLink(l),
			Link:   l,
		})
	}
	return search.Succeeded(out)
}

func (s *stubAdapter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newAggregator(entries ...search.Entry) *aggregator.Aggregator {
	reg := search.NewRegistry()
	for _, e := range entries {
		reg.Register(e.Category, e.Adapter)
	}
	return aggregator.New(reg, logger.NewNop(), metrics.New())
}

func links(records []search.ResultRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Link
	}
	return out
}

func TestAggregate_MergesInRegistrationOrder(t *testing.T) {
	news := &stubAdapter{name: "news", links: []string{"https://a.example.com/1", "https://b.example.com/2"}, delay: 30 * time.Millisecond}
	web := &stubAdapter{name: "web", links: []string{"https://b.example.com/2", "https://c.example.com/3"}}
	agg := newAggregator(
		search.Entry{Category: search.PlatformNews, Adapter: news},
		search.Entry{Category: search.PlatformWeb, Adapter: web},
	)

	resp, err := agg.Aggregate(context.Background(), aggregator.Request{
		Keyword: "induction range",
		Region:  search.RegionUS,
		Sources: []search.Platform{search.PlatformWeb, search.PlatformNews},
		Window:  search.WindowWeek,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com/1", "https://b.example.com/2", "https://c.example.com/3"}, links(resp.Records))
	assert.Equal(t, search.TypeNews, resp.Records[1].Type)
	assert.Equal(t, "news https://b.example.com/2", resp.Records[1].Title)
	assert.Equal(t, "induction range", resp.Records[2].Keyword)
	assert.Empty(t, resp.Notices)
}

func TestAggregate_DayWindowSkipsPinboard(t *testing.T) {
	news := &stubAdapter{name: "news", links: []string{"https://a.example.com/1"}}
	pins := &stubAdapter{name: "pins", links: []string{"https://pinterest.com/pin/1"}}
	agg := newAggregator(
		search.Entry{Category: search.PlatformNews, Adapter: news},
		search.Entry{Category: search.PlatformPinboard, Adapter: pins},
	)

	resp, err := agg.Aggregate(context.Background(), aggregator.Request{
		Keyword: "kitchen",
		Region:  search.RegionUS,
		Sources: []search.Platform{search.PlatformNews, search.PlatformPinboard},
		Window:  search.WindowDay,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, pins.calls())
	require.Len(t, resp.Records, 1)
	require.Len(t, resp.Notices, 1)
	assert.Contains(t, resp.Notices[0], "pinboard")
}

func TestAggregate_EmptyKeywordMakesNoCalls(t *testing.T) {
	news := &stubAdapter{name: "news"}
	agg := newAggregator(search.Entry{Category: search.PlatformNews, Adapter: news})

	_, err := agg.Aggregate(context.Background(), aggregator.Request{Keyword: "   ", Region: search.RegionUS})

	require.ErrorIs(t, err, query.ErrEmptyKeyword)
	assert.Equal(t, 0, news.calls())
}

func TestAggregate_FailedAdapterDoesNotSinkSearch(t *testing.T) {
	news := &stubAdapter{name: "news", fail: true}
	web := &stubAdapter{name: "web", links: []string{"https://c.example.com/3"}}
	agg := newAggregator(
		search.Entry{Category: search.PlatformNews, Adapter: news},
		search.Entry{Category: search.PlatformWeb, Adapter: web},
	)

	resp, err := agg.Aggregate(context.Background(), aggregator.Request{Keyword: "GE", Region: search.RegionUS})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c.example.com/3"}, links(resp.Records))
}

func TestAggregate_NothingFoundIsEmptyNotNil(t *testing.T) {
	news := &stubAdapter{name: "news", fail: true}
	agg := newAggregator(search.Entry{Category: search.PlatformNews, Adapter: news})

	resp, err := agg.Aggregate(context.Background(), aggregator.Request{Keyword: "GE", Region: search.RegionUS})
	require.NoError(t, err)
	assert.NotNil(t, resp.Records)
	assert.Empty(t, resp.Records)
	assert.Contains(t, resp.Notices, aggregator.NoResultsNotice)
}

func TestAggregate_NewsFansOutOverLocales(t *testing.T) {
	news := &stubAdapter{name: "news"}
	web := &stubAdapter{name: "web"}
	agg := newAggregator(
		search.Entry{Category: search.PlatformNews, Adapter: news},
		search.Entry{Category: search.PlatformWeb, Adapter: web},
	)

	_, err := agg.Aggregate(context.Background(), aggregator.Request{Keyword: "方太", Region: search.RegionCA})
	require.NoError(t, err)

	assert.Equal(t, 3, news.calls())
	assert.Equal(t, 1, web.calls())
	var hls []string
	for _, r := range news.requests {
		hls = append(hls, r.Locale.HL)
	}
	assert.ElementsMatch(t, []string{"zh-TW", "en-CA", "fr-CA"}, hls)
	assert.True(t, web.requests[0].Locale.Widened)
	assert.Contains(t, web.requests[0].Query, `"Canada"`)
}

func TestAggregate_LockedCategoryTypesRecords(t *testing.T) {
	forum := &stubAdapter{name: "web", links: []string{"https://www.reddit.com/r/appliances/1"}}
	shop := &stubAdapter{name: "web", links: []string{"https://store.example.com/p/1"}}
	agg := newAggregator(
		search.Entry{Category: search.PlatformForum, Adapter: forum},
		search.Entry{Category: search.PlatformShopping, Adapter: shop},
	)

	resp, err := agg.Aggregate(context.Background(), aggregator.Request{
		Keyword: "dishwasher",
		Region:  search.RegionUS,
		Sources: []search.Platform{search.PlatformForum, search.PlatformShopping},
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, search.TypeReddit, resp.Records[0].Type)
	assert.Equal(t, search.TypeShopping, resp.Records[1].Type)
	assert.Equal(t, "dishwasher site:reddit.com", forum.requests[0].Query)
}

func TestAggregate_UnconfiguredCategoryNotice(t *testing.T) {
	news := &stubAdapter{name: "news", links: []string{"https://a.example.com/1"}}
	agg := newAggregator(search.Entry{Category: search.PlatformNews, Adapter: news})

	resp, err := agg.Aggregate(context.Background(), aggregator.Request{
		Keyword: "GE",
		Region:  search.RegionUS,
		Sources: []search.Platform{search.PlatformNews, search.PlatformShopping},
	})
	require.NoError(t, err)
	require.Len(t, resp.Notices, 1)
	assert.Contains(t, resp.Notices[0], "shopping")
}

func TestAggregateMany_FirstKeywordWins(t *testing.T) {
	news := &stubAdapter{name: "news", links: []string{"https://a.example.com/1", "https://b.example.com/2"}}
	agg := newAggregator(search.Entry{Category: search.PlatformNews, Adapter: news})

	resp, err := agg.AggregateMany(context.Background(), []string{"GE", "", "Bosch"}, aggregator.Request{Region: search.RegionUS})
	require.NoError(t, err)

	require.Len(t, resp.Records, 2)
	assert.Equal(t, "GE", resp.Records[0].Keyword)
	assert.Equal(t, "GE", resp.Records[1].Keyword)
	assert.Equal(t, 2, news.calls())
}

func TestAggregateMany_AllBlank(t *testing.T) {
	agg := newAggregator()
	_, err := agg.AggregateMany(context.Background(), []string{" ", ""}, aggregator.Request{})
	require.ErrorIs(t, err, query.ErrEmptyKeyword)
}
