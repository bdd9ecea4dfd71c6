// Package history keeps a bounded conversation transcript per session.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docuchat/internal/models"
)

// DefaultCapacity holds five user/assistant pairs.
const DefaultCapacity = 10

type session struct {
	mu       sync.Mutex
	entries  []models.Message
	lastSeen time.Time
}

// Store maps session ids to bounded transcripts. The map lock only guards
// lookup and creation; each session serializes its own mutations.
type Store struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type Option func(*Store)

// WithTTL evicts sessions idle for longer than ttl when Run or Sweep is used.
// Zero keeps sessions for the lifetime of the process.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(capacity int, opts ...Option) (*Store, error) {
	if capacity <= 0 {
		return nil, models.NewOpError("history", models.ErrInvalidConfig,
			fmt.Errorf("capacity must be positive, got %d", capacity))
	}
	s := &Store{
		capacity: capacity,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{entries: make([]models.Message, 0, s.capacity), lastSeen: s.now()}
		s.sessions[id] = sess
	}
	return sess
}

// Get returns a copy of the session transcript, oldest first.
func (s *Store) Get(sessionID string) []models.Message {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	out := make([]models.Message, len(sess.entries))
	copy(out, sess.entries)
	return out
}

// Peek returns a copy of a known session's transcript without creating the
// session or refreshing its idle time. Unknown ids yield nil.
func (s *Store) Peek(sessionID string) []models.Message {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]models.Message, len(sess.entries))
	copy(out, sess.entries)
	return out
}

// Append records one exchange, dropping the oldest entries beyond capacity.
func (s *Store) Append(sessionID, userMessage, assistantMessage string) {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	sess.entries = append(sess.entries,
		models.Message{Role: models.RoleUser, Content: userMessage},
		models.Message{Role: models.RoleAssistant, Content: assistantMessage},
	)
	if over := len(sess.entries) - s.capacity; over > 0 {
		sess.entries = append(sess.entries[:0], sess.entries[over:]...)
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle since before now-ttl and returns how many went.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle sessions until ctx is done. It returns immediately when no TTL is set.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				log.Debug().Int("evicted", n).Int("remaining", s.Len()).Msg("Swept idle sessions")
			}
		}
	}
}
