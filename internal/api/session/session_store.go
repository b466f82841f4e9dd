package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Store = (*InMemoryStore)(nil)

// Store owns conversation sessions. Get refreshes the inactivity clock and
// returns a detached copy; expired sessions behave exactly like missing
// ones.
type Store interface {
	Create(ctx context.Context) *types.Session
	Get(ctx context.Context, id string) (*types.Session, error)
	Delete(ctx context.Context, id string)

	// Update runs fn with exclusive access to the session. Everything a turn
	// changes on a session goes through here.
	Update(ctx context.Context, id string, fn func(*types.Session) error) error
}

// InMemoryStore keeps sessions in a mutex-guarded map. A background sweep is
// unnecessary: expiry is checked on access and stale entries are evicted
// then.
type InMemoryStore struct {
	logger *slog.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*types.Session
}

// NewInMemoryStore creates the store.
func NewInMemoryStore(ttl time.Duration, logger *slog.Logger) *InMemoryStore {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &InMemoryStore{
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]*types.Session),
	}
}

// Create mints a session with a fresh UUID.
func (s *InMemoryStore) Create(ctx context.Context) *types.Session {
	now := time.Now()
	sess := &types.Session{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		LastActivityAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Session created", slog.String("session_id", sess.ID))
	return sess.Clone()
}

// Get refreshes the session's activity timestamp and returns a detached
// copy, so callers can read it without racing concurrent updates.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.sessions[id]
	if !found {
		return nil, types.ErrSessionNotFound(id)
	}
	if sess.Expired(s.ttl) {
		delete(s.sessions, id)
		s.logger.DebugContext(ctx, "Session expired on access", slog.String("session_id", id))
		return nil, types.ErrSessionNotFound(id)
	}
	sess.LastActivityAt = time.Now()
	return sess.Clone(), nil
}

// Delete removes a session; deleting a missing session is a no-op.
func (s *InMemoryStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "Session deleted", slog.String("session_id", id))
}

// Update implements the exclusive mutation path. The store lock is held for
// the duration of fn, which keeps concurrent turns on the same session
// serialized.
func (s *InMemoryStore) Update(ctx context.Context, id string, fn func(*types.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.sessions[id]
	if !found || sess.Expired(s.ttl) {
		delete(s.sessions, id)
		return types.ErrSessionNotFound(id)
	}
	sess.LastActivityAt = time.Now()
	return fn(sess)
}

// Len reports the number of live sessions, expired ones included until their
// next access.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
