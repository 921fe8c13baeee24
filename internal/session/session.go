// Package session holds per-user application state: the curation store and the
// last search result. Nothing here is global; the server resolves a Session for
// every request and passes it down.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/amityadav/marketwatch/internal/aggregator"
	"github.com/amityadav/marketwatch/internal/curation"
	"github.com/amityadav/marketwatch/internal/search"
)

// Session is one user's workspace.
type Session struct {
	ID       string
	Curation *curation.Store

	mu         sync.RWMutex
	lastResult aggregator.Response
	lastSeen   time.Time
}

func newSession(id string, backend curation.Backend, now time.Time) *Session {
	return &Session{
		ID:       id,
		Curation: curation.NewStore(id, backend),
		lastResult: aggregator.Response{
			Records: []search.ResultRecord{},
			Notices: []string{},
		},
		lastSeen: now,
	}
}

// SetLastResult remembers the latest search so rows can be curated from it.
func (s *Session) SetLastResult(resp aggregator.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = resp
}

// LastResult returns a copy of the latest search result.
func (s *Session) LastResult() aggregator.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := aggregator.Response{
		Records: make([]search.ResultRecord, len(s.lastResult.Records)),
		Notices: make([]string, len(s.lastResult.Notices)),
	}
	copy(out.Records, s.lastResult.Records)
	copy(out.Notices, s.lastResult.Notices)
	return out
}

// CurateSelected files the rows of the last result whose links are given.
// Unknown links are ignored.
func (s *Session) CurateSelected(ctx context.Context, links []string, folder string) (int, error) {
	want := make(map[string]bool, len(links))
	for _, l := range links {
		want[l] = true
	}
	var picked []search.ResultRecord
	for _, r := range s.LastResult().Records {
		if want[r.Link] {
			r.Selected = true
			picked = append(picked, r)
		}
	}
	return s.Curation.Curate(ctx, picked, folder)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
