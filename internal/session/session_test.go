package session

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amityadav/marketwatch/internal/aggregator"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
	"github.com/amityadav/marketwatch/internal/search"
)

func link(name string) string {
	return "https://news.example.com/" + name
}

func result(names ...string) aggregator.Response {
	resp := aggregator.Response{Records: []search.ResultRecord{}, Notices: []string{}}
	for _, n := range names {
		resp.Records = append(resp.Records, search.ResultRecord{Type: search.TypeNews, Title: n, Link: link(n)})
	}
	return resp
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, time.Hour, logger.NewNop(), metrics.New())
	alice, bob := m.Create(), m.Create()
	require.NotEqual(t, alice.ID, bob.ID)

	alice.SetLastResult(result("a", "b"))
	_, err := alice.CurateSelected(ctx, []string{link("b")}, "Mine")
	require.NoError(t, err)

	assert.Len(t, alice.Curation.List("Mine"), 1)
	assert.Empty(t, bob.Curation.List("Mine"))
	assert.Empty(t, bob.LastResult().Records)
}

func TestCurateSelected_IgnoresUnknownLinks(t *testing.T) {
	m := NewManager(nil, time.Hour, logger.NewNop(), nil)
	s := m.Create()
	s.SetLastResult(result("a", "b", "c"))

	n, err := s.CurateSelected(context.Background(), []string{link("c"), link("zzz"), link("a")}, "Picks")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	picks := s.Curation.List("Picks")
	assert.Equal(t, link("a"), picks[0].Link)
	assert.False(t, picks[0].Selected)
}

func TestLastResultIsACopy(t *testing.T) {
	m := NewManager(nil, time.Hour, logger.NewNop(), nil)
	s := m.Create()
	s.SetLastResult(result("a"))

	got := s.LastResult()
	got.Records[0].Title = "changed"
	assert.Equal(t, "a", s.LastResult().Records[0].Title)
}

func TestManager_GetAndEvict(t *testing.T) {
	met := metrics.New()
	m := NewManager(nil, time.Minute, logger.NewNop(), met)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	stale := m.Create()
	now = now.Add(50 * time.Second)
	fresh := m.Create()

	_, ok := m.Get(context.Background(), "missing")
	assert.False(t, ok)

	now = now.Add(30 * time.Second)
	got, ok := m.Get(context.Background(), fresh.ID)
	require.True(t, ok)
	assert.Same(t, fresh, got)

	assert.Equal(t, 1, m.EvictIdle())
	_, ok = m.Get(context.Background(), stale.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Count())
	assert.InDelta(t, 1, testutil.ToFloat64(met.SessionsActive), 0)
}

type stubBackend struct {
	folders []string
	records []search.ResultRecord
}

func (b *stubBackend) CreateFolder(context.Context, string, string) error { return nil }
func (b *stubBackend) SaveRecords(context.Context, string, []search.ResultRecord) error {
	return nil
}
func (b *stubBackend) PurgeFolder(context.Context, string, string) error { return nil }
func (b *stubBackend) Load(context.Context, string) ([]string, []search.ResultRecord, error) {
	return b.folders, b.records, nil
}

func TestManager_RestoresFromBackend(t *testing.T) {
	backend := &stubBackend{
		folders: []string{"Saved"},
		records: []search.ResultRecord{{Type: search.TypeWeb, Link: "https://a.example.com", Folder: "Saved"}},
	}
	m := NewManager(backend, time.Hour, logger.NewNop(), nil)

	s, ok := m.Get(context.Background(), "0b8f1a52-8d0c-4a7e-9a51-3c8f5f1f7b21")
	require.True(t, ok)
	assert.Len(t, s.Curation.List("Saved"), 1)

	_, ok = m.Get(context.Background(), "not-a-uuid")
	assert.False(t, ok)
}
