package flow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mlima/intake-backend/pkg/logging"
)

func TestDefaultFlowShape(t *testing.T) {
	f := Default()

	if len(f.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(f.Steps))
	}
	for i, s := range f.Steps {
		if s.ID != i+1 {
			t.Errorf("step %d has id %d; ids must be contiguous from 1", i, s.ID)
		}
		if s.Field == "" {
			t.Errorf("step %d missing field", s.ID)
		}
		if s.ErrorMessage == "" {
			t.Errorf("step %d missing error message", s.ID)
		}
	}
	if f.CompletionMessage == "" {
		t.Error("flow missing completion message")
	}
}

func TestNormalizeRewritesGappyIDs(t *testing.T) {
	f := &Flow{Steps: []Step{{ID: 2}, {ID: 7}, {ID: 9}}}
	f.Normalize()

	for i, s := range f.Steps {
		if s.ID != i+1 {
			t.Fatalf("expected contiguous ids, got %v", f.Steps)
		}
	}
	if f.CompletionMessage == "" {
		t.Error("Normalize must fill in a completion message")
	}
}

func TestRedisSourceSeedsDefault(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := NewRedisSource(rdb, logging.Default())

	f, err := src.Flow(context.Background())
	if err != nil {
		t.Fatalf("Flow returned error: %v", err)
	}
	if len(f.Steps) != 4 {
		t.Fatalf("expected seeded default flow, got %d steps", len(f.Steps))
	}

	// The document must now exist in the store.
	if !mr.Exists(flowDocumentKey) {
		t.Fatal("expected flow document to be seeded in redis")
	}
}

func TestRedisSourceReadsStoredDocument(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	custom := &Flow{
		Steps:             []Step{{ID: 1, Field: "identification", Question: "Nome?"}},
		CompletionMessage: "Obrigado!",
		Version:           "2.0",
	}
	data, _ := json.Marshal(custom)
	mr.Set(flowDocumentKey, string(data))

	src := NewRedisSource(rdb, logging.Default())
	f, err := src.Flow(context.Background())
	if err != nil {
		t.Fatalf("Flow returned error: %v", err)
	}
	if f.Version != "2.0" || len(f.Steps) != 1 {
		t.Fatalf("expected stored document, got %+v", f)
	}
}

type countingSource struct {
	calls int
	fail  bool
}

func (c *countingSource) Flow(context.Context) (*Flow, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("store down")
	}
	return Default(), nil
}

func TestCachedSourceCachesWithinTTL(t *testing.T) {
	src := &countingSource{}
	cached := NewCachedSource(src, time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := cached.Flow(context.Background()); err != nil {
			t.Fatalf("Flow returned error: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 upstream fetch, got %d", src.calls)
	}

	cached.Invalidate()
	if _, err := cached.Flow(context.Background()); err != nil {
		t.Fatalf("Flow returned error: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", src.calls)
	}
}

func TestCachedSourceServesStaleOnError(t *testing.T) {
	src := &countingSource{}
	cached := NewCachedSource(src, time.Nanosecond)

	if _, err := cached.Flow(context.Background()); err != nil {
		t.Fatalf("Flow returned error: %v", err)
	}

	src.fail = true
	time.Sleep(time.Millisecond)
	f, err := cached.Flow(context.Background())
	if err != nil {
		t.Fatalf("expected stale flow on upstream error, got %v", err)
	}
	if f == nil || len(f.Steps) == 0 {
		t.Fatal("expected stale flow content")
	}
}
