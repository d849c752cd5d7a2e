package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"survivalist/internal/ai"
	"survivalist/internal/errors"
)

// Session is one client's orchestrator plus bookkeeping
type Session struct {
	ID           string
	Orchestrator *Orchestrator
	CreatedAt    time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store keeps sessions in memory and drops those idle for longer than the TTL
type Store struct {
	analyzer ai.Analyzer
	logger   *errors.Logger
	ttl      time.Duration
	opts     []Option
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a session store. A zero ttl keeps sessions until deleted.
func NewStore(analyzer ai.Analyzer, ttl time.Duration, logger *errors.Logger, opts ...Option) *Store {
	return &Store{
		analyzer: analyzer,
		logger:   logger,
		ttl:      ttl,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new idle session
func (s *Store) Create() *Session {
	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		Orchestrator: NewOrchestrator(s.analyzer, s.logger, s.opts...),
		CreatedAt:    now,
		lastSeen:     now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("Session created", "session_id", sess.ID)
	return sess
}

// Get returns the session with id and marks it as used
func (s *Store) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	sess.touch(s.now())
	return sess, true
}

// GetOrCreate returns the session with id, or a fresh one when id is unknown
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Delete removes a session and abandons its call in flight
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.Orchestrator.Cancel()
		s.logger.Debug("Session deleted", "session_id", id)
	}
	return ok
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StatusCounts returns how many sessions are in each status
func (s *Store) StatusCounts() map[Status]int {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	counts := map[Status]int{}
	for _, sess := range sessions {
		counts[sess.Orchestrator.State().Status]++
	}
	return counts
}

// Evict drops sessions idle for longer than the TTL and returns how many went
func (s *Store) Evict() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Orchestrator.Cancel()
	}
	if len(expired) > 0 {
		s.logger.Info("Evicted idle sessions", "count", len(expired), "remaining", s.Len())
	}
	return len(expired)
}

// RunJanitor evicts idle sessions every interval until ctx is done
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = s.ttl / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-ctx.Done():
			return
		}
	}
}
