package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/observability"
	"github.com/prefeitura-rio/app-identidade/internal/redisclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionStore holds at most one pending session per user
type SessionStore interface {
	// Begin stores session under session.UserID, replacing any previous one
	Begin(ctx context.Context, session *models.PendingSession) error
	// Get returns models.ErrNoSession when the user has no live session
	Get(ctx context.Context, userID string) (*models.PendingSession, error)
	// Update applies fn to the stored session and saves the result
	Update(ctx context.Context, userID string, fn func(*models.PendingSession) error) error
	// End removes the user's session. Ending a missing session is not an error.
	End(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.PendingSession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates an in-memory session store. A zero ttl keeps
// sessions until they are ended.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*models.PendingSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func copySession(s *models.PendingSession) *models.PendingSession {
	c := *s
	if s.Photo != nil {
		c.Photo = append([]byte(nil), s.Photo...)
	}
	return &c
}

// Begin stores a copy of session
func (m *MemorySessionStore) Begin(ctx context.Context, session *models.PendingSession) error {
	if err := session.Mode.Validate(); err != nil {
		return err
	}
	stored := copySession(session)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.now()
	}

	m.mu.Lock()
	m.sessions[session.UserID] = stored
	observability.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the user's live session
func (m *MemorySessionStore) Get(ctx context.Context, userID string) (*models.PendingSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[userID]
	m.mu.RUnlock()

	if !ok {
		return nil, models.ErrNoSession
	}
	if session.Expired(m.now(), m.ttl) {
		m.mu.Lock()
		if m.sessions[userID] == session {
			delete(m.sessions, userID)
			observability.ActiveSessions.Set(float64(len(m.sessions)))
		}
		m.mu.Unlock()
		return nil, models.ErrNoSession
	}
	return copySession(session), nil
}

// Update applies fn under the store lock
func (m *MemorySessionStore) Update(ctx context.Context, userID string, fn func(*models.PendingSession) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok || session.Expired(m.now(), m.ttl) {
		return models.ErrNoSession
	}

	updated := copySession(session)
	if err := fn(updated); err != nil {
		return err
	}
	if err := updated.Mode.Validate(); err != nil {
		return err
	}
	m.sessions[userID] = updated
	return nil
}

// End removes the user's session
func (m *MemorySessionStore) End(ctx context.Context, userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	observability.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return nil
}

// Count returns the number of live sessions, dropping expired ones
func (m *MemorySessionStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for userID, session := range m.sessions {
		if session.Expired(now, m.ttl) {
			delete(m.sessions, userID)
		}
	}
	observability.ActiveSessions.Set(float64(len(m.sessions)))
	return len(m.sessions), nil
}

// sessionKeyPrefix namespaces session keys in Redis
const sessionKeyPrefix = "identidade:session:"

// RedisSessionStore keeps sessions as JSON values in Redis so they survive restarts
type RedisSessionStore struct {
	redis  *redisclient.Client
	ttl    time.Duration
	now    func() time.Time
	logger *logging.SafeLogger
}

// NewRedisSessionStore creates a Redis-backed session store. A zero ttl
// stores keys without expiry.
func NewRedisSessionStore(client *redisclient.Client, ttl time.Duration, logger *logging.SafeLogger) *RedisSessionStore {
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

func (r *RedisSessionStore) save(ctx context.Context, session *models.PendingSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.redis.Set(ctx, sessionKey(session.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: save session: %v", models.ErrStore, err)
	}
	return nil
}

// Begin stores session with the configured ttl
func (r *RedisSessionStore) Begin(ctx context.Context, session *models.PendingSession) error {
	if err := session.Mode.Validate(); err != nil {
		return err
	}
	stored := copySession(session)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	if err := r.save(ctx, stored, r.ttl); err != nil {
		return err
	}
	r.refreshGauge(ctx)
	return nil
}

// Get loads and decodes the user's session
func (r *RedisSessionStore) Get(ctx context.Context, userID string) (*models.PendingSession, error) {
	data, err := r.redis.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", models.ErrStore, err)
	}

	var session models.PendingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		r.logger.Warn("dropping undecodable session",
			zap.String("user_id", userID),
			zap.Error(err))
		_ = r.End(ctx, userID)
		return nil, models.ErrNoSession
	}
	if session.Expired(r.now(), r.ttl) {
		_ = r.End(ctx, userID)
		return nil, models.ErrNoSession
	}
	return &session, nil
}

// Update rewrites the session keeping its remaining ttl
func (r *RedisSessionStore) Update(ctx context.Context, userID string, fn func(*models.PendingSession) error) error {
	session, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		return err
	}
	if err := session.Mode.Validate(); err != nil {
		return err
	}

	ttl, err := r.remainingTTL(ctx, userID)
	if err != nil {
		return err
	}
	return r.save(ctx, session, ttl)
}

// remainingTTL reads the expiry left on the user's key. Keys without expiry
// report zero.
func (r *RedisSessionStore) remainingTTL(ctx context.Context, userID string) (time.Duration, error) {
	ttl, err := r.redis.TTL(ctx, sessionKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: read session ttl: %v", models.ErrStore, err)
	}
	switch {
	case ttl == -2:
		// key expired between Get and TTL
		return 0, models.ErrNoSession
	case ttl < 0:
		return 0, nil
	case ttl == 0 && r.ttl > 0:
		return 0, models.ErrNoSession
	}
	return ttl, nil
}

// End deletes the session key
func (r *RedisSessionStore) End(ctx context.Context, userID string) error {
	if err := r.redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: end session: %v", models.ErrStore, err)
	}
	r.refreshGauge(ctx)
	return nil
}

// Count returns the number of stored session keys
func (r *RedisSessionStore) Count(ctx context.Context) (int, error) {
	keys, err := r.redis.Keys(ctx, sessionKeyPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: count sessions: %v", models.ErrStore, err)
	}
	return len(keys), nil
}

func (r *RedisSessionStore) refreshGauge(ctx context.Context) {
	n, err := r.Count(ctx)
	if err != nil {
		r.logger.Debug("failed to count sessions", zap.Error(err))
		return
	}
	observability.ActiveSessions.Set(float64(n))
}
