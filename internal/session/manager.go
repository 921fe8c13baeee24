package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amityadav/marketwatch/internal/curation"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
)

// Manager creates, resolves and evicts sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	backend curation.Backend
	ttl     time.Duration
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewManager creates a session manager. backend may be nil, in which case
// curated folders live only as long as the session.
func NewManager(backend curation.Backend, ttl time.Duration, log logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		sessions: map[string]*Session{},
		backend:  backend,
		ttl:      ttl,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.backend, m.now())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.updateGaugeLocked()
	m.mu.Unlock()

	m.log.Debug("Session created", logger.String("session_id", s.ID))
	return s
}

// Get resolves a session id. An id that is no longer in memory is rebuilt from
// the curation backend when one is configured. The bool is false when the id
// is unknown.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch(m.now())
		return s, true
	}

	if m.backend == nil {
		return nil, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	s = newSession(id, m.backend, m.now())
	if err := s.Curation.Restore(ctx); err != nil {
		m.log.Warn("Session restore failed", logger.String("session_id", id), logger.Error(err))
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, true
	}
	m.sessions[id] = s
	m.updateGaugeLocked()
	m.log.Info("Session restored", logger.String("session_id", id), logger.Int("records", s.Curation.Len()))
	return s, true
}

// EvictIdle drops sessions not seen within the TTL and returns how many went.
// Durable curation stays in the backend.
func (m *Manager) EvictIdle() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	m.updateGaugeLocked()
	return evicted
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) updateGaugeLocked() {
	if m.metrics != nil {
		m.metrics.SessionsActive.Set(float64(len(m.sessions)))
	}
}
