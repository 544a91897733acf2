package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// fakeRedis is an in-memory stand-in for the SETNX/EXISTS subset of a Redis client
type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisTracker_TryMarkVisited(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	tr := NewRedisTracker(client, "product-scraper:visited", "s1", time.Hour, 0, testLogger())

	added, err := tr.TryMarkVisited(ctx, "https://shop.test/a")
	if err != nil || !added {
		t.Fatalf("first TryMarkVisited = (%v, %v), want (true, nil)", added, err)
	}
	added, err = tr.TryMarkVisited(ctx, "https://shop.test/a")
	if err != nil || added {
		t.Errorf("second TryMarkVisited = (%v, %v), want (false, nil)", added, err)
	}
	if tr.Count() != 1 {
		t.Errorf("Count() = %d, want 1", tr.Count())
	}

	wantKey := "product-scraper:visited:s1:" + utils.HashURL("https://shop.test/a")
	ttl, ok := client.keys[wantKey]
	if !ok {
		t.Fatalf("key %q not written; keys = %v", wantKey, client.keys)
	}
	if ttl != time.Hour {
		t.Errorf("key TTL = %v, want 1h", ttl)
	}
}

func TestRedisTracker_SessionNamespaces(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	a := NewRedisTracker(client, "p", "s1", time.Hour, 0, testLogger())
	b := NewRedisTracker(client, "p", "s2", time.Hour, 0, testLogger())

	_, _ = a.TryMarkVisited(ctx, "https://shop.test/")
	added, err := b.TryMarkVisited(ctx, "https://shop.test/")
	if err != nil || !added {
		t.Errorf("other session TryMarkVisited = (%v, %v), want (true, nil)", added, err)
	}
	for k := range client.keys {
		if !strings.HasPrefix(k, "p:s1:") && !strings.HasPrefix(k, "p:s2:") {
			t.Errorf("unexpected key %q", k)
		}
	}
}

func TestRedisTracker_Capacity(t *testing.T) {
	ctx := context.Background()
	tr := NewRedisTracker(newFakeRedis(), "p", "s1", time.Hour, 1, testLogger())

	_, _ = tr.TryMarkVisited(ctx, "a")

	if _, err := tr.TryMarkVisited(ctx, "b"); !errors.Is(err, utils.ErrVisitedLimit) {
		t.Errorf("TryMarkVisited past cap error = %v, want ErrVisitedLimit", err)
	}
	added, err := tr.TryMarkVisited(ctx, "a")
	if err != nil || added {
		t.Errorf("TryMarkVisited(known) at cap = (%v, %v), want (false, nil)", added, err)
	}
	if tr.Count() != 1 {
		t.Errorf("Count() = %d, want 1", tr.Count())
	}
}

func TestRedisTracker_Errors(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	client.err = errors.New("connection reset")
	tr := NewRedisTracker(client, "p", "s1", time.Hour, 0, testLogger())

	if _, err := tr.TryMarkVisited(ctx, "a"); !errors.Is(err, utils.ErrDatabase) {
		t.Errorf("TryMarkVisited error = %v, want ErrDatabase", err)
	}
	if _, err := tr.IsVisited(ctx, "a"); !errors.Is(err, utils.ErrDatabase) {
		t.Errorf("IsVisited error = %v, want ErrDatabase", err)
	}
	if tr.Count() != 0 {
		t.Errorf("Count() after failures = %d, want 0", tr.Count())
	}
}
