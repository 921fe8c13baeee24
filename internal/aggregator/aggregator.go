// Package aggregator runs a search across every enabled source category and
// merges the answers into one deduplicated result list.
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
	"github.com/amityadav/marketwatch/internal/query"
	"github.com/amityadav/marketwatch/internal/search"
)

// defaultParallelism bounds concurrent adapter calls for one search.
const defaultParallelism = 6

// NoResultsNotice is attached to a response that came back empty.
const NoResultsNotice = "No results found. Try a broader time window or a different keyword."

// DefaultSources is used when a request names no category.
var DefaultSources = []search.Platform{search.PlatformNews, search.PlatformWeb}

// Request describes one search.
type Request struct {
	Keyword      string
	Region       search.Region
	Sources      []search.Platform
	Window       search.TimeWindow
	LanguageHint string
}

// Response is the merged, deduplicated output. Records is never nil.
type Response struct {
	Records []search.ResultRecord `json:"records"`
	Notices []string              `json:"notices"`
}

// Aggregator fans a request out to the registered adapters.
type Aggregator struct {
	registry    *search.Registry
	log         logger.Logger
	metrics     *metrics.Metrics
	parallelism int
}

// New creates an aggregator over a registry.
func New(registry *search.Registry, log logger.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		registry:    registry,
		log:         log,
		metrics:     m,
		parallelism: defaultParallelism,
	}
}

// task is one adapter call with one locale.
type task struct {
	category search.Platform
	adapter  search.Adapter
	request  search.Request
}

// Aggregate runs the request against every enabled category. Outputs are merged
// in registration order and deduplicated by link, first occurrence winning, so
// the result is the same as if the adapters had run one after another.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Response, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return Response{}, query.ErrEmptyKeyword
	}
	window := req.Window
	if window == "" {
		window = search.WindowAll
	}

	resp := Response{Records: []search.ResultRecord{}, Notices: []string{}}
	enabled := map[search.Platform]bool{}
	queries := map[search.Platform]query.Query{}

	for _, category := range normalizeSources(req.Sources) {
		if !category.Supports(window) {
			resp.Notices = append(resp.Notices,
				fmt.Sprintf("%s skipped: the %s window is not available for this source", category, window))
			continue
		}
		if len(a.registry.For(category)) == 0 {
			resp.Notices = append(resp.Notices, fmt.Sprintf("%s skipped: no provider configured", category))
			continue
		}
		q, err := query.Build(keyword, req.Region, category, req.LanguageHint)
		if err != nil {
			return Response{}, err
		}
		enabled[category] = true
		queries[category] = q
	}

	var tasks []task
	for _, entry := range a.registry.Entries() {
		if !enabled[entry.Category] {
			continue
		}
		q := queries[entry.Category]
		locales := q.Locales
		if entry.Category != search.PlatformNews && len(locales) > 1 {
			locales = locales[:1]
		}
		for _, locale := range locales {
			tasks = append(tasks, task{
				category: entry.Category,
				adapter:  entry.Adapter,
				request:  search.Request{Query: q.Text, Locale: locale, Window: window},
			})
		}
	}

	results := make([]search.Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = a.fetch(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	var merged []search.ResultRecord
	for i, res := range results {
		for _, rec := range res.Records {
			merged = append(merged, stamp(rec, tasks[i].category, keyword))
		}
	}
	resp.Records = search.Dedupe(merged)

	a.metrics.ObserveSearch(len(resp.Records))
	if len(resp.Records) == 0 {
		resp.Notices = append(resp.Notices, NoResultsNotice)
	}
	a.log.Info("Search completed",
		logger.String("keyword", keyword),
		logger.String("region", string(req.Region)),
		logger.String("window", string(window)),
		logger.Int("calls", len(tasks)),
		logger.Int("records", len(resp.Records)),
	)
	return resp, nil
}

// AggregateMany runs Aggregate for each keyword and merges the answers. Records
// keep the keyword that found them; a link found by several keywords is kept
// once, under the first.
func (a *Aggregator) AggregateMany(ctx context.Context, keywords []string, req Request) (Response, error) {
	var cleaned []string
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if len(cleaned) == 0 {
		return Response{}, query.ErrEmptyKeyword
	}

	out := Response{Records: []search.ResultRecord{}, Notices: []string{}}
	seenNotice := map[string]bool{}
	var merged []search.ResultRecord
	for _, kw := range cleaned {
		r := req
		r.Keyword = kw
		resp, err := a.Aggregate(ctx, r)
		if err != nil {
			return Response{}, err
		}
		merged = append(merged, resp.Records...)
		for _, n := range resp.Notices {
			if n == NoResultsNotice || seenNotice[n] {
				continue
			}
			seenNotice[n] = true
			out.Notices = append(out.Notices, n)
		}
	}
	out.Records = search.Dedupe(merged)
	if len(out.Records) == 0 {
		out.Notices = append(out.Notices, NoResultsNotice)
	}
	return out, nil
}

func (a *Aggregator) fetch(ctx context.Context, t task) search.Result {
	start := time.Now()
	res := t.adapter.Fetch(ctx, t.request)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case !res.OK:
		outcome = metrics.OutcomeFailed
	case res.Cached:
		outcome = metrics.OutcomeCached
	}
	a.metrics.ObserveFetch(t.adapter.Name(), string(t.category), outcome, elapsed)

	fields := []logger.Field{
		logger.String("adapter", t.adapter.Name()),
		logger.String("category", string(t.category)),
		logger.String("locale", t.request.Locale.HL),
		logger.Bool("ok", res.OK),
		logger.Int("count", len(res.Records)),
		logger.Duration("duration", elapsed),
	}
	if res.OK {
		a.log.Debug("Adapter fetch", fields...)
	} else {
		a.log.Warn("Adapter fetch failed", append(fields, logger.String("diagnostic", res.Diagnostic))...)
	}
	return res
}

// stamp applies the category's record type and the originating keyword.
func stamp(rec search.ResultRecord, category search.Platform, keyword string) search.ResultRecord {
	rec.Selected = false
	rec.Keyword = keyword
	switch {
	case category == search.PlatformNews:
		rec.Type = search.TypeNews
	case category.Locked():
		rec.Type = category.RecordType()
	case rec.Type == "":
		rec.Type = search.Classify(rec.Link)
	}
	if rec.Source == "" {
		rec.Source = search.SourceFromLink(rec.Link)
	}
	return rec
}

// normalizeSources removes duplicates and puts categories in canonical order.
func normalizeSources(sources []search.Platform) []search.Platform {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	want := map[search.Platform]bool{}
	for _, s := range sources {
		want[s] = true
	}
	var out []search.Platform
	for _, p := range search.AllPlatforms() {
		if want[p] {
			out = append(out, p)
		}
	}
	return out
}
