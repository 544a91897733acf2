package crawler

import (
	"context"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/parse"
	"github.com/Sriram-PR/product-scraper/pkg/storage"
)

// Session is the per-seed crawl context: domain scope, depth budget and its own visited set.
// Two sessions never share a tracker, even for the same domain.
type Session struct {
	ID       string
	RunID    string
	SeedURL  string
	MaxDepth int

	domain    string
	tracker   storage.VisitedTracker
	log       *logrus.Entry
	startedAt time.Time

	pagesProcessed  atomic.Int64
	pagesFailed     atomic.Int64
	productsFound   atomic.Int64
	jobsSkipped     atomic.Int64
	childrenDropped atomic.Int64
	lastActivity    atomic.Int64 // UnixNano of the last finished job
}

// NewSession creates a session for seed. The session domain is the seed's hostname.
func NewSession(id, runID string, seed *url.URL, maxDepth int, tracker storage.VisitedTracker, logger *logrus.Entry) *Session {
	domain := seed.Hostname()
	return &Session{
		ID:        id,
		RunID:     runID,
		SeedURL:   seed.String(),
		MaxDepth:  maxDepth,
		domain:    domain,
		tracker:   tracker,
		startedAt: time.Now(),
		log: logger.WithFields(logrus.Fields{
			"session_id": id,
			"domain":     domain,
		}),
	}
}

// Domain implements process.Scope
func (s *Session) Domain() string { return s.domain }

// Seen implements process.Scope. Tracker errors count as unseen; the claim at dispatch time decides.
func (s *Session) Seen(ctx context.Context, rawURL string) bool {
	visited, err := s.tracker.IsVisited(ctx, parse.NormalizeString(rawURL))
	if err != nil {
		s.log.Debugf("Visited lookup failed for %s: %v", rawURL, err)
		return false
	}
	return visited
}

// TryMarkVisited claims rawURL for this session. See storage.VisitedTracker.
func (s *Session) TryMarkVisited(ctx context.Context, rawURL string) (bool, error) {
	return s.tracker.TryMarkVisited(ctx, parse.NormalizeString(rawURL))
}

// Release frees tracker resources that outlive the session. Call it once the session's summary is taken.
func (s *Session) Release() {
	r, ok := s.tracker.(storage.Releaser)
	if !ok {
		return
	}
	if err := r.Release(); err != nil {
		s.log.Warnf("Failed to release visited tracker: %v", err)
	}
}

// SeedJob returns the first job of the session, carrying the full depth budget
func (s *Session) SeedJob() Job {
	return Job{URL: s.SeedURL, Depth: s.MaxDepth, Session: s}
}

// Log returns the session-scoped logger
func (s *Session) Log() *logrus.Entry { return s.log }

func (s *Session) touch() { s.lastActivity.Store(time.Now().UnixNano()) }

// Summary snapshots the session counters
func (s *Session) Summary() models.SiteSummary {
	end := time.Now()
	if last := s.lastActivity.Load(); last > 0 {
		end = time.Unix(0, last)
	}
	return models.SiteSummary{
		SessionID:       s.ID,
		SeedURL:         s.SeedURL,
		Domain:          s.domain,
		PagesProcessed:  s.pagesProcessed.Load(),
		PagesFailed:     s.pagesFailed.Load(),
		ProductsFound:   s.productsFound.Load(),
		JobsSkipped:     s.jobsSkipped.Load(),
		ChildrenDropped: s.childrenDropped.Load(),
		VisitedCount:    s.tracker.Count(),
		Duration:        end.Sub(s.startedAt),
	}
}
