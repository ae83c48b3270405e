package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mlima/intake-backend/pkg/logging"
)

const sessionKeyPrefix = "intake_session:"

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session: not found")

// Store persists conversation sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions in Redis with an in-process mirror. Every save
// writes the mirror first, so an active conversation survives a Redis outage
// within the same process. Reads fall back to the mirror when Redis is
// unavailable.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
	tracer trace.Tracer

	mu     sync.RWMutex
	mirror map[string]*Session
}

// NewRedisStore creates a session store over the given Redis client.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
		tracer: otel.Tracer("intake.internal.session"),
		mirror: make(map[string]*Session),
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("session: id required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := s.tracer.Start(ctx, "session.get",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, sessionKey(id)).Result()
		switch {
		case err == nil:
			var sess Session
			if uerr := json.Unmarshal([]byte(raw), &sess); uerr != nil {
				span.RecordError(uerr)
				s.logger.Warn("session: corrupt record, dropping", "session_id", id, "error", uerr)
				break
			}
			s.remember(&sess)
			return &sess, nil
		case errors.Is(err, redis.Nil):
			// fall through to mirror; a mirror hit means Redis expired or
			// lost the key after we last wrote it
		default:
			span.RecordError(err)
			s.logger.Warn("session: redis get failed, using mirror", "session_id", id, "error", err)
		}
	}

	s.mu.RLock()
	sess, ok := s.mirror[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session: session with id required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sess.Touch()
	s.remember(sess)

	if s.redis == nil {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "session.save",
		trace.WithAttributes(attribute.String("session.id", sess.ID)))
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("session: redis save failed, mirror only", "session_id", sess.ID, "error", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("session: id required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := s.tracer.Start(ctx, "session.delete",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	s.mu.Lock()
	delete(s.mirror, id)
	s.mu.Unlock()

	if s.redis == nil {
		return nil
	}
	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("session: redis delete failed", "session_id", id, "error", err)
	}
	return nil
}

func (s *RedisStore) remember(sess *Session) {
	s.mu.Lock()
	s.mirror[sess.ID] = cloneSession(sess)
	s.mu.Unlock()
}

func cloneSession(sess *Session) *Session {
	cp := *sess
	cp.LeadData = make(map[string]string, len(sess.LeadData))
	for k, v := range sess.LeadData {
		cp.LeadData[k] = v
	}
	cp.ValidationAttempts = make(map[int]int, len(sess.ValidationAttempts))
	for k, v := range sess.ValidationAttempts {
		cp.ValidationAttempts[k] = v
	}
	return &cp
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session: session with id required")
	}
	sess.Touch()
	m.mu.Lock()
	m.sessions[sess.ID] = cloneSession(sess)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
