package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/crawler"
	"github.com/Sriram-PR/product-scraper/pkg/metrics"
	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/parse"
	"github.com/Sriram-PR/product-scraper/pkg/process"
	"github.com/Sriram-PR/product-scraper/pkg/render"
	"github.com/Sriram-PR/product-scraper/pkg/sink"
	"github.com/Sriram-PR/product-scraper/pkg/storage"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// CrawlRequest describes one crawl invocation
type CrawlRequest struct {
	RunID       string   // Generated when empty
	Seeds       []string // Only the first crawl.max_sites are used
	ResetOutput bool     // Truncate resettable sinks before crawling
}

// Orchestrator turns seed lists into sessions and drives them through one shared dispatcher
type Orchestrator struct {
	cfg         config.CrawlConfig
	summaryFile string
	factory     render.HandleFactory
	trackers    storage.TrackerFactory
	sink        sink.Sink
	metrics     *metrics.Metrics
	classifier  *process.Classifier
	log         *logrus.Entry
}

// NewOrchestrator creates an orchestrator. appCfg must already be validated.
func NewOrchestrator(
	appCfg *config.AppConfig,
	factory render.HandleFactory,
	trackers storage.TrackerFactory,
	out sink.Sink,
	m *metrics.Metrics,
	log *logrus.Entry,
) *Orchestrator {
	return &Orchestrator{
		cfg:         appCfg.Crawl,
		summaryFile: appCfg.Sink.SummaryFile,
		factory:     factory,
		trackers:    trackers,
		sink:        out,
		metrics:     m,
		classifier:  process.NewClassifier(appCfg.Crawl.ProductPatterns, appCfg.Crawl.ExcludedPathPatterns),
		log:         log,
	}
}

// SelectSeeds keeps the first max seeds and returns the rest as dropped (max <= 0 keeps all)
func SelectSeeds(seeds []string, max int) (kept, dropped []string) {
	if max <= 0 || len(seeds) <= max {
		return seeds, nil
	}
	return seeds[:max], seeds[max:]
}

// StartCrawl runs one crawl to idle and returns its summary.
// A cancelled or timed-out crawl still returns a summary (status cancelled) together with the context error.
func (o *Orchestrator) StartCrawl(ctx context.Context, req CrawlRequest) (*models.RunSummary, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	runLog := o.log.WithField("run_id", req.RunID)

	summary := &models.RunSummary{
		RunID:     req.RunID,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
	}

	if req.ResetOutput {
		if r, ok := o.sink.(sink.Resetter); ok {
			if err := r.Reset(); err != nil {
				return o.finish(runLog, summary, nil, fmt.Errorf("%w: %w", utils.ErrOutputReset, err))
			}
		}
	}

	seeds, dropped := SelectSeeds(req.Seeds, o.cfg.MaxSites)
	if len(dropped) > 0 {
		summary.DroppedSeeds = append([]string(nil), dropped...)
		runLog.Infof("Accepting the first %d of %d seeds, dropped: %v", len(seeds), len(req.Seeds), dropped)
	}

	sessions, err := o.buildSessions(ctx, req.RunID, seeds, summary, runLog)
	if err != nil {
		return o.finish(runLog, summary, sessions, err)
	}
	if len(sessions) == 0 {
		runLog.Warn("No valid seeds, nothing to crawl")
		return o.finish(runLog, summary, nil, nil)
	}

	runCtx, cancel := o.runContext(ctx)
	defer cancel()

	processor := process.NewPageProcessor(o.cfg, o.classifier, runLog.WithField("component", "processor"))
	d := crawler.NewDispatcher(o.cfg, o.factory, processor, o.sink, o.metrics, runLog.WithField("component", "dispatcher"))
	if err := d.Start(runCtx); err != nil {
		return o.finish(runLog, summary, sessions, fmt.Errorf("failed to start dispatcher: %w", err))
	}

	runLog.Infof("Starting crawl of %d site(s) with depth %d and concurrency %d", len(sessions), o.cfg.MaxDepth, o.cfg.Concurrency)
	for _, s := range sessions {
		if err := d.Submit(s.SeedJob()); err != nil {
			s.Log().Warnf("Could not queue seed %s: %v", s.SeedURL, err)
		}
	}

	stopProgress := o.startProgress(runCtx, d, runLog)
	waitErr := d.RunUntilIdle(runCtx)
	stopProgress()

	// Unblocks in-flight navigations when the wait ended early
	cancel()
	if err := d.Shutdown(); err != nil {
		runLog.Warnf("Error closing render handles: %v", err)
	}

	return o.finish(runLog, summary, sessions, waitErr)
}

func (o *Orchestrator) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.GlobalCrawlTimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.GlobalCrawlTimeout)
	}
	return context.WithCancel(ctx)
}

// buildSessions creates one session per valid seed. Invalid seeds are recorded, not fatal.
func (o *Orchestrator) buildSessions(ctx context.Context, runID string, seeds []string, summary *models.RunSummary, runLog *logrus.Entry) ([]*crawler.Session, error) {
	sessions := make([]*crawler.Session, 0, len(seeds))
	for _, raw := range seeds {
		if err := ctx.Err(); err != nil {
			return sessions, err
		}

		seed, err := parse.ParseSeed(raw)
		if err != nil {
			summary.RejectedSeeds = append(summary.RejectedSeeds, models.RejectedSeed{URL: raw, Reason: err.Error()})
			runLog.Warnf("Rejected seed: %v", err)
			continue
		}

		sessionID := uuid.NewString()
		tracker, err := o.trackers(sessionID)
		if err != nil {
			return sessions, fmt.Errorf("failed to create visited tracker for %s: %w", seed, err)
		}
		sessions = append(sessions, crawler.NewSession(sessionID, runID, seed, o.cfg.MaxDepth, tracker, runLog))
	}
	return sessions, nil
}

// startProgress logs dispatcher progress periodically until the returned stop func is called
func (o *Orchestrator) startProgress(ctx context.Context, d *crawler.Dispatcher, runLog *logrus.Entry) func() {
	if o.cfg.ProgressInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(o.cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				st := d.Stats()
				runLog.WithFields(logrus.Fields{
					"queued":    st.Queued,
					"in_flight": st.InFlight,
					"processed": st.PagesProcessed,
					"failed":    st.PagesFailed,
					"products":  st.ProductsFound,
				}).Info("Crawl progress")
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// finish fills in per-site results and the final status, logs the banner and writes the summary file
func (o *Orchestrator) finish(runLog *logrus.Entry, summary *models.RunSummary, sessions []*crawler.Session, runErr error) (*models.RunSummary, error) {
	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)

	for _, s := range sessions {
		site := s.Summary()
		summary.Sites = append(summary.Sites, site)
		summary.PagesProcessed += site.PagesProcessed
		summary.PagesFailed += site.PagesFailed
		summary.ProductsFound += site.ProductsFound
		s.Release()
	}

	switch {
	case runErr == nil:
		summary.Status = models.RunStatusCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		summary.Status = models.RunStatusCancelled
		summary.Error = runErr.Error()
	default:
		summary.Status = models.RunStatusFailed
		summary.Error = runErr.Error()
	}

	o.logSummary(runLog, summary)

	if o.summaryFile != "" {
		if err := sink.WriteRunSummary(o.summaryFile, *summary); err != nil {
			runLog.Warnf("Failed to write run summary: %v", err)
		} else {
			runLog.Infof("Run summary written to %s", o.summaryFile)
		}
	}

	return summary, runErr
}

// logSummary logs a banner with per-site results
func (o *Orchestrator) logSummary(runLog *logrus.Entry, summary *models.RunSummary) {
	runLog.Info("============================================")
	runLog.Infof("Crawl %s in %v", strings.ToUpper(summary.Status.String()), summary.Duration.Truncate(time.Millisecond))
	if len(summary.Sites) > 0 {
		runLog.Info("Site Results:")
	}
	for _, s := range summary.Sites {
		runLog.Infof("  %s (%s): %d pages, %d failed, %d products, %d skipped in %v",
			s.Domain, s.SeedURL, s.PagesProcessed, s.PagesFailed, s.ProductsFound, s.JobsSkipped, s.Duration.Truncate(time.Millisecond))
		if s.ChildrenDropped > 0 {
			runLog.Infof("    Dropped %d child links (queue full)", s.ChildrenDropped)
		}
	}
	for _, r := range summary.RejectedSeeds {
		runLog.Infof("  Rejected seed %q: %s", r.URL, r.Reason)
	}
	if len(summary.DroppedSeeds) > 0 {
		runLog.Infof("  Dropped %d seed(s) over the site limit", len(summary.DroppedSeeds))
	}
	if summary.Error != "" {
		runLog.Infof("  Error: %s", summary.Error)
	}
	runLog.Info("--------------------------------------------")
	runLog.Infof("Total: %d sites, %d pages processed, %d failed, %d products found",
		len(summary.Sites), summary.PagesProcessed, summary.PagesFailed, summary.ProductsFound)
	runLog.Info("============================================")
}
