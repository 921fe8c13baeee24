package search

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// UnknownSource is shown when a record's origin cannot be derived from its link.
const UnknownSource = "Unknown"

// ResultRecord is one discovered item. Link is its natural key.
type ResultRecord struct {
	Selected    bool       `json:"selected"`
	Type        RecordType `json:"type"`
	PublishedAt time.Time  `json:"published_at"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	Link        string     `json:"link"`
	Keyword     string     `json:"keyword,omitempty"`
	Folder      string     `json:"folder,omitempty"`
}

// ErrInvalidRecord is returned for a record that cannot be filed.
var ErrInvalidRecord = errors.New("invalid record")

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case TypeNews, TypeForum, TypeReddit, TypePinterest, TypeShopping, TypeWeb:
		return true
	}
	return false
}

// Normalize checks a record that did not come from an adapter and fills in
// what an adapter would have set: an unknown type is classified from the
// link, a missing date becomes now and a missing source comes from the host.
// A blank title or a link that is not an absolute http(s) URL is rejected.
func (r ResultRecord) Normalize(now time.Time) (ResultRecord, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Link = strings.TrimSpace(r.Link)
	if r.Title == "" {
		return r, fmt.Errorf("%w: title is required for %q", ErrInvalidRecord, r.Link)
	}
	u, err := url.Parse(r.Link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return r, fmt.Errorf("%w: link %q is not an absolute http(s) URL", ErrInvalidRecord, r.Link)
	}
	if !r.Type.Valid() {
		r.Type = Classify(r.Link)
	}
	if r.PublishedAt.IsZero() {
		r.PublishedAt = now
	}
	if strings.TrimSpace(r.Source) == "" {
		r.Source = SourceFromLink(r.Link)
	}
	return r, nil
}

// Dedupe keeps the first record for every link, preserving order.
// The result is never nil.
func Dedupe(records []ResultRecord) []ResultRecord {
	out := make([]ResultRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.Link]; ok {
			continue
		}
		seen[r.Link] = struct{}{}
		out = append(out, r)
	}
	return out
}

// SourceFromLink derives a display source from the link's host.
func SourceFromLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Hostname() == "" {
		return UnknownSource
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

var forumMarkers = []string{"forum", "community", "discussion", "boards"}

// Classify types a web result by where it lives.
func Classify(link string) RecordType {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return TypeWeb
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "reddit.com" || strings.HasSuffix(host, ".reddit.com"):
		return TypeReddit
	case strings.Contains(host, "pinterest."):
		return TypePinterest
	}
	target := host + strings.ToLower(u.Path)
	for _, m := range forumMarkers {
		if strings.Contains(target, m) {
			return TypeForum
		}
	}
	return TypeWeb
}
