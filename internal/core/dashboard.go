package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amityadav/marketwatch/internal/aggregator"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/search"
	"github.com/amityadav/marketwatch/internal/serpapi"
	"github.com/amityadav/marketwatch/internal/session"
)

// ErrInvalidInput marks request values that could not be parsed.
var ErrInvalidInput = errors.New("invalid input")

// SearchInput is the dashboard's search form.
type SearchInput struct {
	Keyword      string   `json:"keyword"`
	Keywords     []string `json:"keywords"`
	Region       string   `json:"region"`
	Sources      []string `json:"sources"`
	TimeWindow   string   `json:"time_window"`
	LanguageHint string   `json:"language_hint"`
}

// TrendsInput is the trends comparison form.
type TrendsInput struct {
	Keywords []string `json:"keywords"`
	Geo      string   `json:"geo"`
	Range    string   `json:"range"`
}

// TrendsProvider is satisfied by serpapi.TrendsClient.
type TrendsProvider interface {
	Report(ctx context.Context, keywords []string, geo, timeRange string) (*serpapi.TrendsReport, error)
}

// DashboardCore handles the business logic behind the dashboard
type DashboardCore struct {
	aggregator *aggregator.Aggregator
	trends     TrendsProvider
	log        logger.Logger
}

// NewDashboardCore creates a new DashboardCore. trends may be nil.
func NewDashboardCore(agg *aggregator.Aggregator, trends TrendsProvider, log logger.Logger) *DashboardCore {
	return &DashboardCore{aggregator: agg, trends: trends, log: log}
}

// Search validates the form, runs the aggregated search and remembers the
// result on the session.
func (c *DashboardCore) Search(ctx context.Context, s *session.Session, in SearchInput) (aggregator.Response, error) {
	req, err := parseSearch(in)
	if err != nil {
		return aggregator.Response{}, err
	}

	var resp aggregator.Response
	if len(in.Keywords) > 0 {
		keywords := in.Keywords
		if strings.TrimSpace(in.Keyword) != "" {
			keywords = append([]string{in.Keyword}, keywords...)
		}
		resp, err = c.aggregator.AggregateMany(ctx, keywords, req)
	} else {
		resp, err = c.aggregator.Aggregate(ctx, req)
	}
	if err != nil {
		return aggregator.Response{}, err
	}

	s.SetLastResult(resp)
	return resp, nil
}

// TrendsEnabled reports whether a trends provider is configured.
func (c *DashboardCore) TrendsEnabled() bool {
	return c.trends != nil
}

// Trends compares keyword interest. Without a provider it returns an empty report.
func (c *DashboardCore) Trends(ctx context.Context, in TrendsInput) (*serpapi.TrendsReport, error) {
	if c.trends == nil {
		return &serpapi.TrendsReport{
			Keywords:         in.Keywords,
			Geo:              in.Geo,
			Range:            serpapi.NormalizeRange(in.Range),
			InterestOverTime: []serpapi.TrendPoint{},
			RelatedQueries:   []serpapi.RelatedQuery{},
		}, nil
	}
	geo := in.Geo
	if geo == "" {
		geo = string(search.RegionUS)
	}
	report, err := c.trends.Report(ctx, in.Keywords, geo, in.Range)
	if err != nil {
		c.log.Warn("Trends request failed", logger.Strings("keywords", in.Keywords), logger.Error(err))
		return nil, err
	}
	return report, nil
}

func parseSearch(in SearchInput) (aggregator.Request, error) {
	req := aggregator.Request{
		Keyword:      in.Keyword,
		Region:       search.RegionUS,
		Window:       search.WindowAll,
		LanguageHint: strings.TrimSpace(in.LanguageHint),
	}
	if strings.TrimSpace(in.Region) != "" {
		r, err := search.ParseRegion(in.Region)
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		req.Region = r
	}
	w, err := search.ParseTimeWindow(in.TimeWindow)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req.Window = w
	for _, src := range in.Sources {
		p, err := search.ParsePlatform(src)
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		req.Sources = append(req.Sources, p)
	}
	return req, nil
}
