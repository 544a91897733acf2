package storage

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// VisitedTracker records which URLs a crawl session has claimed
type VisitedTracker interface {
	// TryMarkVisited atomically claims url.
	// Returns true if this call added it, false if it was already present.
	// Returns utils.ErrVisitedLimit when url is new but the tracker is full.
	TryMarkVisited(ctx context.Context, url string) (bool, error)

	// IsVisited reports whether url has been claimed, without claiming it
	IsVisited(ctx context.Context, url string) (bool, error)

	// Count returns the number of URLs claimed through this tracker
	Count() int64
}

// Releaser is implemented by trackers that hold shared resources after their session ends
type Releaser interface {
	Release() error
}

// TrackerFactory creates an independent tracker for one crawl session
type TrackerFactory func(sessionID string) (VisitedTracker, error)

// NewTrackerFactory returns a factory for the configured backend.
// db is required for the badger backend and client for the redis backend; each is ignored otherwise.
func NewTrackerFactory(cfg config.TrackerConfig, capacity int, db *badger.DB, client RedisClient, logger *logrus.Entry) (TrackerFactory, error) {
	switch cfg.Backend {
	case "", "badger":
		if db == nil {
			return nil, fmt.Errorf("%w: badger tracker backend requires an open database", utils.ErrConfigValidation)
		}
		return func(sessionID string) (VisitedTracker, error) {
			return NewBadgerTracker(db, sessionID, capacity, logger.WithField("session_id", sessionID)), nil
		}, nil
	case "memory":
		return func(sessionID string) (VisitedTracker, error) {
			return NewMemoryTracker(capacity), nil
		}, nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("%w: redis tracker backend requires a client", utils.ErrConfigValidation)
		}
		return func(sessionID string) (VisitedTracker, error) {
			return NewRedisTracker(client, cfg.Redis.KeyPrefix, sessionID, cfg.Redis.KeyTTL, capacity,
				logger.WithField("session_id", sessionID)), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tracker backend '%s'", utils.ErrConfigValidation, cfg.Backend)
	}
}
