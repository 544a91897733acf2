package crawler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/metrics"
	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/process"
	"github.com/Sriram-PR/product-scraper/pkg/queue"
	"github.com/Sriram-PR/product-scraper/pkg/render"
	"github.com/Sriram-PR/product-scraper/pkg/sink"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// Dispatcher runs crawl jobs from every session on one shared pool of render handles.
// Each worker owns exactly one handle, so the pool size is the concurrency limit.
type Dispatcher struct {
	cfg       config.CrawlConfig
	factory   render.HandleFactory
	processor *process.PageProcessor
	sink      sink.Sink
	metrics   *metrics.Metrics
	log       *logrus.Entry

	queue   *queue.JobQueue[Job]
	handles []render.Handle
	group   *errgroup.Group

	mu      sync.Mutex
	started bool
	stopped bool

	// Tracking
	pagesProcessed  atomic.Int64
	pagesFailed     atomic.Int64
	productsFound   atomic.Int64
	jobsSkipped     atomic.Int64
	childrenDropped atomic.Int64
	sinkErrors      atomic.Int64
}

// Stats is a point-in-time view of dispatcher progress
type Stats struct {
	Queued          int
	InFlight        int
	PagesProcessed  int64
	PagesFailed     int64
	ProductsFound   int64
	JobsSkipped     int64
	ChildrenDropped int64
	SinkErrors      int64
}

// NewDispatcher creates a dispatcher. Call Start before Submit.
func NewDispatcher(
	cfg config.CrawlConfig,
	factory render.HandleFactory,
	processor *process.PageProcessor,
	out sink.Sink,
	m *metrics.Metrics,
	logger *logrus.Entry,
) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		factory:   factory,
		processor: processor,
		sink:      out,
		metrics:   m,
		log:       logger,
		queue:     queue.NewJobQueue[Job](cfg.MaxQueueLength, logger.WithField("component", "queue")),
	}
}

// Start opens one render handle per worker and launches the workers.
// If any handle fails to open, the ones already opened are closed and Start fails.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.New("dispatcher already started")
	}

	n := d.cfg.Concurrency
	if n <= 0 {
		n = 1
	}

	handles := make([]render.Handle, 0, n)
	for i := 0; i < n; i++ {
		h, err := d.factory.NewHandle(ctx)
		if err != nil {
			for _, opened := range handles {
				_ = opened.Close()
			}
			return fmt.Errorf("opening render handle %d of %d: %w", i+1, n, err)
		}
		handles = append(handles, h)
	}
	d.handles = handles

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		workerLog := d.log.WithField("worker_id", i+1)
		g.Go(func() error {
			d.worker(gctx, h, workerLog)
			return nil
		})
	}
	d.group = g
	d.started = true

	d.log.Infof("Dispatcher started with %d worker(s)", n)
	return nil
}

// Submit queues a job. It never blocks; a full or closed queue is reported as an error.
func (d *Dispatcher) Submit(job Job) error {
	if err := d.queue.Push(job); err != nil {
		return err
	}
	d.metrics.QueueLength.Set(float64(d.queue.Len()))
	return nil
}

// RunUntilIdle blocks until no job is queued or in flight, or ctx is done.
func (d *Dispatcher) RunUntilIdle(ctx context.Context) error {
	return d.queue.WaitIdle(ctx)
}

// Shutdown drops queued jobs, waits for in-flight jobs to finish and closes every handle.
// In-flight jobs finish promptly only if the context passed to Start has been cancelled.
func (d *Dispatcher) Shutdown() error {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	d.queue.Close()
	_ = d.group.Wait()

	var errs []error
	for _, h := range d.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.metrics.QueueLength.Set(0)
	d.metrics.JobsInFlight.Set(0)
	d.log.Info("Dispatcher stopped")
	return errors.Join(errs...)
}

// Stats returns current counters
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:          d.queue.Len(),
		InFlight:        d.queue.InFlight(),
		PagesProcessed:  d.pagesProcessed.Load(),
		PagesFailed:     d.pagesFailed.Load(),
		ProductsFound:   d.productsFound.Load(),
		JobsSkipped:     d.jobsSkipped.Load(),
		ChildrenDropped: d.childrenDropped.Load(),
		SinkErrors:      d.sinkErrors.Load(),
	}
}

func (d *Dispatcher) worker(ctx context.Context, h render.Handle, workerLog *logrus.Entry) {
	workerLog.Debug("Worker starting")
	defer workerLog.Debug("Worker finished")

	for {
		// Pop blocks until a job is available or the queue is closed
		job, ok := d.queue.Pop()
		if !ok {
			return
		}
		d.metrics.QueueLength.Set(float64(d.queue.Len()))
		d.metrics.JobsInFlight.Inc()
		d.processJob(ctx, h, job, workerLog)
		d.metrics.JobsInFlight.Dec()
	}
}

// processJob runs the per-job pipeline: depth check, claim, render, sink, children.
// Done is called last, after children are queued, so idle is never signalled mid-job.
func (d *Dispatcher) processJob(ctx context.Context, h render.Handle, job Job, workerLog *logrus.Entry) {
	defer d.queue.Done()

	s := job.Session
	taskLog := workerLog.WithFields(logrus.Fields{
		"session_id": s.ID,
		"domain":     s.Domain(),
		"url":        job.URL,
		"depth":      job.Depth,
	})

	start := time.Now()
	status := models.PageStatusUnset
	var skipReason models.SkipReason
	var jobErr error
	var products, children int

	// One outcome line per job
	defer func() {
		s.touch()
		logFields := logrus.Fields{
			"status":   status.String(),
			"duration": time.Since(start).String(),
		}
		switch status {
		case models.PageStatusSuccess:
			logFields["products"] = products
			logFields["children"] = children
			taskLog.WithFields(logFields).Info("Page processed")
		case models.PageStatusFailure:
			logFields["category"] = utils.CategorizeError(jobErr)
			taskLog.WithFields(logFields).Warnf("Page failed: %v", jobErr)
		case models.PageStatusSkipped:
			logFields["skip_reason"] = string(skipReason)
			taskLog.WithFields(logFields).Debug("Job skipped")
		default:
			taskLog.WithFields(logFields).Debug("Job abandoned, crawl is stopping")
		}
	}()

	// 1. Depth budget; checked before claiming so the URL stays available to shallower paths
	if job.Depth <= 0 {
		status, skipReason = models.PageStatusSkipped, models.SkipReasonDepth
		d.skip(s, skipReason)
		return
	}

	if ctx.Err() != nil {
		return
	}

	// 2. Atomic claim
	claimed, err := s.TryMarkVisited(ctx, job.URL)
	if errors.Is(err, utils.ErrVisitedLimit) {
		status, skipReason = models.PageStatusSkipped, models.SkipReasonLimit
		d.skip(s, skipReason)
		return
	}
	if err != nil {
		status, jobErr = models.PageStatusFailure, err
		d.fail(s)
		return
	}
	if !claimed {
		status, skipReason = models.PageStatusSkipped, models.SkipReasonVisited
		d.skip(s, skipReason)
		return
	}

	// 3. Render and classify
	result, err := d.runProcessor(ctx, h, job, taskLog)
	d.metrics.PageDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status, jobErr = models.PageStatusFailure, err
		d.fail(s)
		return
	}

	status = models.PageStatusSuccess
	d.pagesProcessed.Add(1)
	s.pagesProcessed.Add(1)
	d.metrics.PagesProcessed.WithLabelValues(string(models.PageStatusSuccess)).Inc()

	// 4. Products to the sink
	now := time.Now()
	for _, productURL := range result.Products {
		rec := models.ProductRecord{
			URL:          productURL,
			SourceURL:    job.URL,
			Domain:       s.Domain(),
			RunID:        s.RunID,
			SessionID:    s.ID,
			Depth:        job.Depth,
			DiscoveredAt: now,
		}
		products++
		d.productsFound.Add(1)
		s.productsFound.Add(1)
		d.metrics.ProductsFound.Inc()
		if err := d.sink.Append(ctx, rec); err != nil {
			d.sinkErrors.Add(1)
			d.metrics.SinkErrors.Inc()
			taskLog.WithField("category", utils.CategorizeError(err)).Errorf("Sink append failed for %s: %v", productURL, err)
		}
	}

	// 5. Children, before Done
	for _, childURL := range result.Children {
		if err := d.queue.Push(job.Child(childURL)); err != nil {
			reason := "closed"
			if errors.Is(err, utils.ErrQueueFull) {
				reason = "queue_full"
			}
			d.childrenDropped.Add(1)
			s.childrenDropped.Add(1)
			d.metrics.ChildrenDropped.WithLabelValues(reason).Inc()
			taskLog.Debugf("Dropped child %s: %v", childURL, err)
			continue
		}
		children++
	}
	d.metrics.QueueLength.Set(float64(d.queue.Len()))
}

// runProcessor isolates a panicking page so it fails alone
func (d *Dispatcher) runProcessor(ctx context.Context, h render.Handle, job Job, taskLog *logrus.Entry) (result *process.PageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			taskLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"stage":       "PanicRecovery",
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered while processing page")
		}
	}()
	return d.processor.Process(ctx, h, job.URL, job.Session)
}

func (d *Dispatcher) skip(s *Session, reason models.SkipReason) {
	d.jobsSkipped.Add(1)
	s.jobsSkipped.Add(1)
	d.metrics.JobsSkipped.WithLabelValues(string(reason)).Inc()
}

func (d *Dispatcher) fail(s *Session) {
	d.pagesFailed.Add(1)
	s.pagesFailed.Add(1)
	d.metrics.PagesProcessed.WithLabelValues(string(models.PageStatusFailure)).Inc()
}
