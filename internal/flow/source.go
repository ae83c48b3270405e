package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mlima/intake-backend/pkg/logging"
)

// Source supplies the active conversation flow.
type Source interface {
	Flow(ctx context.Context) (*Flow, error)
}

// StaticSource always returns the same flow. Used in tests and when no
// document store is configured.
type StaticSource struct {
	flow *Flow
}

// NewStaticSource wraps a fixed flow; nil falls back to the default flow.
func NewStaticSource(f *Flow) *StaticSource {
	if f == nil {
		f = Default()
	}
	f.Normalize()
	return &StaticSource{flow: f}
}

func (s *StaticSource) Flow(context.Context) (*Flow, error) {
	return s.flow, nil
}

const flowDocumentKey = "conversation_flows:law_firm_intake"

// RedisSource reads the flow document from Redis. When the document is
// missing, the default flow is written back and returned, so the first boot
// seeds the store.
type RedisSource struct {
	rdb    *redis.Client
	logger *logging.Logger
}

// NewRedisSource creates a store-backed flow source.
func NewRedisSource(rdb *redis.Client, logger *logging.Logger) *RedisSource {
	if rdb == nil {
		panic("flow: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisSource{rdb: rdb, logger: logger}
}

func (s *RedisSource) Flow(ctx context.Context) (*Flow, error) {
	data, err := s.rdb.Get(ctx, flowDocumentKey).Bytes()
	if err == redis.Nil {
		return s.seedDefault(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("flow: failed to load flow document: %w", err)
	}

	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("flow: failed to decode flow document: %w", err)
	}
	if len(f.Steps) == 0 {
		return s.seedDefault(ctx)
	}
	f.Normalize()
	return &f, nil
}

func (s *RedisSource) seedDefault(ctx context.Context) (*Flow, error) {
	f := Default()
	f.Normalize()
	data, err := json.Marshal(f)
	if err != nil {
		return f, nil
	}
	if err := s.rdb.Set(ctx, flowDocumentKey, data, 0).Err(); err != nil {
		s.logger.Warn("flow: failed to seed default flow document", "error", err)
	} else {
		s.logger.Info("flow: seeded default flow document")
	}
	return f, nil
}

// CachedSource wraps another source with a short TTL cache so every turn does
// not hit the document store.
type CachedSource struct {
	src Source
	ttl time.Duration

	mu        sync.Mutex
	cached    *Flow
	fetchedAt time.Time
}

// NewCachedSource caches flows from src for ttl.
func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSource{src: src, ttl: ttl}
}

func (c *CachedSource) Flow(ctx context.Context) (*Flow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.cached, nil
	}

	f, err := c.src.Flow(ctx)
	if err != nil {
		// Serve the stale copy rather than failing the turn.
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, err
	}
	c.cached = f
	c.fetchedAt = time.Now()
	return f, nil
}

// Invalidate drops the cached flow so the next read refetches.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
