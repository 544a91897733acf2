package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/log"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

const (
	visitedKeyPrefix   = "visited:" // Prefix for session URL keys in DB
	maxConflictRetries = 10
)

// OpenBadger opens the in-memory database shared by every session's BadgerTracker.
// Nothing is written to disk; the caller closes it on shutdown.
func OpenBadger(logger *logrus.Entry) (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open in-memory badger database: %w", utils.ErrDatabase, err)
	}
	return db, nil
}

// BadgerTracker claims URLs with a check-and-insert transaction under a per-session key prefix
type BadgerTracker struct {
	db       *badger.DB
	prefix   string
	capacity int64 // 0 = unbounded
	count    atomic.Int64
	log      *logrus.Entry
}

// NewBadgerTracker creates a tracker whose keys live under "visited:<sessionID>:"
func NewBadgerTracker(db *badger.DB, sessionID string, capacity int, logger *logrus.Entry) *BadgerTracker {
	return &BadgerTracker{
		db:       db,
		prefix:   visitedKeyPrefix + sessionID + ":",
		capacity: int64(capacity),
		log:      logger,
	}
}

func (b *BadgerTracker) key(url string) []byte {
	return []byte(b.prefix + url)
}

// update wraps db.Update with a retry loop for transaction conflicts.
// Two claims of the same key conflict on commit; the retry sees the winner's write.
func (b *BadgerTracker) update(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// TryMarkVisited implements VisitedTracker
func (b *BadgerTracker) TryMarkVisited(ctx context.Context, url string) (bool, error) {
	// Reserve a slot first so concurrent claims cannot overshoot the cap
	if n := b.count.Add(1); b.capacity > 0 && n > b.capacity {
		b.count.Add(-1)
		visited, err := b.IsVisited(ctx, url)
		if err != nil {
			return false, err
		}
		if visited {
			return false, nil
		}
		b.log.Debugf("Visited limit %d reached, refusing %s", b.capacity, url)
		return false, utils.ErrVisitedLimit
	}

	key := b.key(url)
	added := false
	err := b.update(func(txn *badger.Txn) error {
		added = false
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			if errSet := txn.SetEntry(badger.NewEntry(key, []byte{})); errSet != nil {
				return errSet
			}
			added = true
			return nil
		}
		// Key already exists or another error occurred
		return errGet
	})

	if err != nil {
		b.count.Add(-1)
		b.log.WithField("key", string(key)).Errorf("DB Update error in TryMarkVisited: %v", err)
		return false, fmt.Errorf("%w: marking key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if !added {
		b.count.Add(-1)
	}
	return added, nil
}

// IsVisited implements VisitedTracker
func (b *BadgerTracker) IsVisited(_ context.Context, url string) (bool, error) {
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, errGet := txn.Get(b.key(url))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: reading key for %s: %w", utils.ErrDatabase, url, err)
	}
	return found, nil
}

// Count implements VisitedTracker
func (b *BadgerTracker) Count() int64 {
	return b.count.Load()
}

// Release implements Releaser by deleting every key of this session
func (b *BadgerTracker) Release() error {
	if b.db.IsClosed() {
		return nil
	}

	prefix := []byte(b.prefix)
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: scanning session keys '%s': %w", utils.ErrDatabase, b.prefix, err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("%w: deleting session keys '%s': %w", utils.ErrDatabase, b.prefix, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: deleting session keys '%s': %w", utils.ErrDatabase, b.prefix, err)
	}
	b.log.Debugf("Released %d visited keys", len(keys))
	return nil
}
