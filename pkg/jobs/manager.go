// Package jobs tracks crawl runs started from the HTTP and MCP surfaces
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/product-scraper/pkg/metrics"
	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/orchestrate"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// Runner executes one crawl; satisfied by *orchestrate.Orchestrator
type Runner interface {
	StartCrawl(ctx context.Context, req orchestrate.CrawlRequest) (*models.RunSummary, error)
}

// Run is a snapshot of one crawl run
type Run struct {
	ID           string             `json:"id"`
	Status       models.RunStatus   `json:"status"`
	Seeds        []string           `json:"seeds"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Summary      *models.RunSummary `json:"summary,omitempty"`

	// Err is the error StartCrawl returned, for errors.Is checks by callers
	Err error `json:"-"`
}

type runState struct {
	run             Run
	cancel          context.CancelFunc
	done            chan struct{}
	cancelRequested bool
}

// Manager runs at most one crawl at a time and keeps the history of past runs
type Manager struct {
	runner  Runner
	metrics *metrics.Metrics
	log     *logrus.Entry
	slot    *semaphore.Weighted

	mu     sync.RWMutex
	runs   map[string]*runState
	order  []string // Run IDs in submission order
	active string
}

// NewManager creates a run manager
func NewManager(runner Runner, m *metrics.Metrics, logger *logrus.Entry) *Manager {
	return &Manager{
		runner:  runner,
		metrics: m,
		log:     logger,
		slot:    semaphore.NewWeighted(1),
		runs:    make(map[string]*runState),
	}
}

// Submit starts a crawl of seeds in the background. Output sinks are reset first.
// The returned channel is closed when the run reaches a terminal status.
// Returns utils.ErrCrawlInProgress while another run is active.
func (m *Manager) Submit(seeds []string) (Run, <-chan struct{}, error) {
	if !m.slot.TryAcquire(1) {
		return Run{}, nil, utils.ErrCrawlInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &runState{
		run: Run{
			ID:        uuid.NewString(),
			Status:    models.RunStatusPending,
			Seeds:     append([]string(nil), seeds...),
			StartedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.runs[st.run.ID] = st
	m.order = append(m.order, st.run.ID)
	m.active = st.run.ID
	snapshot := st.snapshot()
	m.mu.Unlock()

	m.metrics.ActiveRuns.Inc()
	m.log.WithField("run_id", snapshot.ID).Infof("Crawl run submitted with %d seed(s)", len(seeds))

	go m.execute(ctx, st)
	return snapshot, st.done, nil
}

func (m *Manager) execute(ctx context.Context, st *runState) {
	runLog := m.log.WithField("run_id", st.run.ID)

	m.mu.Lock()
	st.run.Status = models.RunStatusRunning
	seeds := st.run.Seeds
	m.mu.Unlock()

	summary, err := m.runner.StartCrawl(ctx, orchestrate.CrawlRequest{
		RunID:       st.run.ID,
		Seeds:       seeds,
		ResetOutput: true,
	})

	m.mu.Lock()
	st.run.Summary = summary
	st.run.CompletedAt = time.Now()
	switch {
	case st.cancelRequested:
		st.run.Status = models.RunStatusCancelled
	case summary != nil && summary.Status.IsTerminal():
		st.run.Status = summary.Status
	case err != nil:
		st.run.Status = models.RunStatusFailed
	default:
		st.run.Status = models.RunStatusCompleted
	}
	if err != nil {
		st.run.Err = err
		st.run.ErrorMessage = err.Error()
	}
	if m.active == st.run.ID {
		m.active = ""
	}
	status := st.run.Status
	m.mu.Unlock()

	st.cancel()
	m.metrics.ActiveRuns.Dec()
	m.slot.Release(1)
	close(st.done)

	if err != nil {
		runLog.Warnf("Crawl run finished with status %s: %v", status, err)
		return
	}
	runLog.Infof("Crawl run finished with status %s", status)
}

// Get returns a snapshot of run id
func (m *Manager) Get(id string) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.runs[id]
	if !ok {
		return Run{}, utils.ErrRunNotFound
	}
	return st.snapshot(), nil
}

// Active returns the run currently holding the slot, if any
func (m *Manager) Active() (Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return Run{}, false
	}
	return m.runs[m.active].snapshot(), true
}

// List returns every run, oldest first
func (m *Manager) List() []Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := make([]Run, 0, len(m.order))
	for _, id := range m.order {
		runs = append(runs, m.runs[id].snapshot())
	}
	return runs
}

// Cancel asks run id to stop. Returns false if the run is unknown or already finished.
// The run reaches the cancelled status once in-flight pages have wound down.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.runs[id]
	if !ok || st.run.Status.IsTerminal() {
		return false
	}
	st.cancelRequested = true
	st.cancel()
	return true
}

// CancelAll cancels every unfinished run
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.runs {
		if !st.run.Status.IsTerminal() {
			st.cancelRequested = true
			st.cancel()
		}
	}
}

// Wait blocks until run id finishes or ctx is done
func (m *Manager) Wait(ctx context.Context, id string) (Run, error) {
	m.mu.RLock()
	st, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return Run{}, utils.ErrRunNotFound
	}

	select {
	case <-st.done:
	case <-ctx.Done():
		return Run{}, ctx.Err()
	}
	return m.Get(id)
}

// snapshot copies the run; callers hold m.mu
func (st *runState) snapshot() Run {
	r := st.run
	r.Seeds = append([]string(nil), st.run.Seeds...)
	return r
}
