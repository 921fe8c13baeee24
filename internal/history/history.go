// Package history loads the published intelligence spreadsheet and serves
// filtered views of it.
package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
)

// ErrSourceUnavailable means the dataset could not be fetched or did not parse.
var ErrSourceUnavailable = errors.New("history source unreachable")

// AllCategories selects every row.
const AllCategories = "all"

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{"Category", "Date", "Title", "Source", "Link"}

// Row is one line of the dataset.
type Row struct {
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Source   string    `json:"source"`
	Link     string    `json:"link"`
}

// View is a filtered slice of the dataset.
type View struct {
	Category   string    `json:"category"`
	Count      int       `json:"count"`
	Categories []string  `json:"categories"`
	Rows       []Row     `json:"rows"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// DailyCount is the number of rows dated on one day.
type DailyCount struct {
	Day      string `json:"day"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type dataset struct {
	rows       []Row
	categories []string
	loadedAt   time.Time
}

// Service caches the last good dataset.
type Service struct {
	url     string
	client  *http.Client
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	current *dataset
}

// NewService creates a history service for a published CSV URL.
func NewService(url string, timeout time.Duration, log logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		url:     strings.TrimSpace(url),
		client:  &http.Client{Timeout: timeout},
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Configured reports whether a source URL is set.
func (s *Service) Configured() bool {
	return s.url != ""
}

// Refresh downloads and parses the dataset. A failed refresh keeps serving the
// previous dataset, if any.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.Configured() {
		return fmt.Errorf("%w: HISTORY_CSV_URL is not set", ErrSourceUnavailable)
	}
	rows, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("History refresh failed", logger.Error(err))
		return err
	}

	ds := &dataset{rows: rows, categories: categories(rows), loadedAt: s.now()}
	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.HistoryRows.Set(float64(len(rows)))
	}
	s.log.Info("History loaded", logger.Int("rows", len(rows)), logger.Int("categories", len(ds.categories)))
	return nil
}

func (s *Service) fetch(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", ErrSourceUnavailable, resp.StatusCode)
	}
	return Parse(resp.Body)
}

func (s *Service) snapshot(ctx context.Context) (*dataset, error) {
	s.mu.RLock()
	ds := s.current
	s.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// View returns the rows of one category, or of all of them.
func (s *Service) View(ctx context.Context, category string) (View, error) {
	ds, err := s.snapshot(ctx)
	if err != nil {
		return View{}, err
	}
	category = normalizeCategory(category)
	rows := filter(ds.rows, category)
	return View{
		Category:   category,
		Count:      len(rows),
		Categories: append([]string(nil), ds.categories...),
		Rows:       rows,
		LoadedAt:   ds.loadedAt,
	}, nil
}

// DailyCounts returns per-day row counts for each category, oldest first.
func (s *Service) DailyCounts(ctx context.Context, category string) ([]DailyCount, error) {
	ds, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	type key struct{ day, category string }
	counts := map[key]int{}
	for _, r := range filter(ds.rows, normalizeCategory(category)) {
		counts[key{r.Date.Format("2006-01-02"), r.Category}]++
	}

	out := make([]DailyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, DailyCount{Day: k.day, Category: k.category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Parse reads the dataset. Any short row, blank link or unparseable date
// fails the whole load so a partial dataset is never shown as complete.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrSourceUnavailable, err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make([]int, len(RequiredColumns))
	for i, name := range RequiredColumns {
		j, ok := col[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSourceUnavailable, name)
		}
		idx[i] = j
	}

	rows := []Row{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSourceUnavailable, line, err)
		}
		if blank(rec) {
			continue
		}
		field := func(i int) (string, error) {
			if idx[i] >= len(rec) {
				return "", fmt.Errorf("%w: line %d: missing %s", ErrSourceUnavailable, line, RequiredColumns[i])
			}
			return strings.TrimSpace(rec[idx[i]]), nil
		}

		var values [5]string
		for i := range RequiredColumns {
			v, err := field(i)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		date, err := dateparse.ParseAny(values[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", ErrSourceUnavailable, line, values[1])
		}
		if values[4] == "" {
			return nil, fmt.Errorf("%w: line %d: empty link", ErrSourceUnavailable, line)
		}
		rows = append(rows, Row{
			Category: values[0],
			Date:     date,
			Title:    values[2],
			Source:   values[3],
			Link:     values[4],
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func normalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" || strings.EqualFold(c, AllCategories) || c == "全部" {
		return AllCategories
	}
	return c
}

func filter(rows []Row, category string) []Row {
	if category == AllCategories {
		return append([]Row{}, rows...)
	}
	out := []Row{}
	for _, r := range rows {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// categories lists distinct categories in order of first appearance.
func categories(rows []Row) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}
