// Package curation keeps the records a user has filed into folders.
package curation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amityadav/marketwatch/internal/search"
)

// ErrEmptyFolder is returned when a folder name is blank.
var ErrEmptyFolder = errors.New("folder name is required")

// ErrNotPersisted wraps backend failures. The change it reports is already
// applied to the in-memory store.
var ErrNotPersisted = errors.New("curation change not persisted")

// Backend persists curation writes. Implementations key records by (owner, link).
type Backend interface {
	CreateFolder(ctx context.Context, owner, folder string) error
	SaveRecords(ctx context.Context, owner string, records []search.ResultRecord) error
	PurgeFolder(ctx context.Context, owner, folder string) error
	Load(ctx context.Context, owner string) (folders []string, records []search.ResultRecord, err error)
}

// Folder is a folder name with the number of records filed in it.
type Folder struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Store holds curated records keyed by link. A link lives in exactly one
// folder; curating it again files it under the newly chosen folder.
type Store struct {
	mu      sync.RWMutex
	folders []string
	records []search.ResultRecord
	index   map[string]int

	owner   string
	backend Backend
	now     func() time.Time
}

// NewStore creates an empty store. backend may be nil.
func NewStore(owner string, backend Backend) *Store {
	return &Store{
		index:   map[string]int{},
		owner:   owner,
		backend: backend,
		now:     time.Now,
	}
}

// Restore replaces the in-memory state with what the backend holds.
func (s *Store) Restore(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	folders, records, err := s.backend.Load(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("restore curation for %s: %w", s.owner, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = nil
	s.records = nil
	s.index = map[string]int{}
	for _, f := range folders {
		s.addFolderLocked(f)
	}
	for _, r := range records {
		s.putLocked(r)
	}
	return nil
}

// CreateFolder adds an empty folder. Creating an existing folder is a no-op.
func (s *Store) CreateFolder(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyFolder
	}
	s.mu.Lock()
	added := s.addFolderLocked(name)
	s.mu.Unlock()

	if added && s.backend != nil {
		if err := s.backend.CreateFolder(ctx, s.owner, name); err != nil {
			return fmt.Errorf("%w: folder %q: %w", ErrNotPersisted, name, err)
		}
	}
	return nil
}

// Curate files records under folder and returns how many were stored.
// Records are unioned by link, so repeating a call changes nothing. Records
// without a link are skipped; any other invalid record rejects the whole
// batch before anything is stored.
func (s *Store) Curate(ctx context.Context, records []search.ResultRecord, folder string) (int, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return 0, ErrEmptyFolder
	}

	now := s.now()
	batch := make([]search.ResultRecord, 0, len(records))
	for _, in := range records {
		if strings.TrimSpace(in.Link) == "" {
			continue
		}
		r, err := in.Normalize(now)
		if err != nil {
			return 0, err
		}
		r.Selected = false
		r.Folder = folder
		batch = append(batch, r)
	}
	batch = search.Dedupe(batch)

	s.mu.Lock()
	added := s.addFolderLocked(folder)
	for _, r := range batch {
		s.putLocked(r)
	}
	s.mu.Unlock()

	if s.backend != nil {
		if added {
			if err := s.backend.CreateFolder(ctx, s.owner, folder); err != nil {
				return len(batch), fmt.Errorf("%w: folder %q: %w", ErrNotPersisted, folder, err)
			}
		}
		if err := s.backend.SaveRecords(ctx, s.owner, batch); err != nil {
			return len(batch), fmt.Errorf("%w: records: %w", ErrNotPersisted, err)
		}
	}
	return len(batch), nil
}

// List returns the folder's records in the order they were filed.
func (s *Store) List(folder string) []search.ResultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []search.ResultRecord{}
	for _, r := range s.records {
		if r.Folder == folder {
			out = append(out, r)
		}
	}
	return out
}

// Purge removes every record in folder, leaving the folder itself and all
// other folders untouched. It returns the number of records removed.
func (s *Store) Purge(ctx context.Context, folder string) (int, error) {
	s.mu.Lock()
	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if r.Folder == folder {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	s.reindexLocked()
	s.mu.Unlock()

	if s.backend != nil && removed > 0 {
		if err := s.backend.PurgeFolder(ctx, s.owner, folder); err != nil {
			return removed, fmt.Errorf("%w: purge of %q: %w", ErrNotPersisted, folder, err)
		}
	}
	return removed, nil
}

// Folders lists folders in creation order with their record counts.
func (s *Store) Folders() []Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.folders))
	for _, r := range s.records {
		counts[r.Folder]++
	}
	out := make([]Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, Folder{Name: f, Count: counts[f]})
	}
	return out
}

// HasFolder reports whether the folder exists.
func (s *Store) HasFolder(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.folders {
		if f == name {
			return true
		}
	}
	return false
}

// Len is the number of curated records across all folders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) addFolderLocked(name string) bool {
	for _, f := range s.folders {
		if f == name {
			return false
		}
	}
	s.folders = append(s.folders, name)
	return true
}

// putLocked inserts or refiles a record. Refiling within the same folder keeps
// its position; moving to another folder appends it there.
func (s *Store) putLocked(r search.ResultRecord) {
	s.addFolderLocked(r.Folder)
	i, ok := s.index[r.Link]
	if !ok {
		s.index[r.Link] = len(s.records)
		s.records = append(s.records, r)
		return
	}
	if s.records[i].Folder == r.Folder {
		s.records[i] = r
		return
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.records = append(s.records, r)
	s.reindexLocked()
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.Link] = i
	}
}
