package storage

import (
	"context"
	"sync"

	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// MemoryTracker keeps claimed URLs in a process-local set
type MemoryTracker struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	capacity int // 0 = unbounded
}

// NewMemoryTracker creates an empty tracker holding at most capacity URLs (0 = unbounded)
func NewMemoryTracker(capacity int) *MemoryTracker {
	return &MemoryTracker{
		seen:     make(map[string]struct{}),
		capacity: capacity,
	}
}

// TryMarkVisited implements VisitedTracker
func (m *MemoryTracker) TryMarkVisited(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[url]; ok {
		return false, nil
	}
	if m.capacity > 0 && len(m.seen) >= m.capacity {
		return false, utils.ErrVisitedLimit
	}
	m.seen[url] = struct{}{}
	return true, nil
}

// IsVisited implements VisitedTracker
func (m *MemoryTracker) IsVisited(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[url]
	return ok, nil
}

// Count implements VisitedTracker
func (m *MemoryTracker) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}
