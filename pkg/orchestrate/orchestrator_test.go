package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/metrics"
	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/render/rendertest"
	"github.com/Sriram-PR/product-scraper/pkg/storage"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testAppConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{
		Crawl: config.CrawlConfig{
			MaxSites:            10,
			MaxDepth:            2,
			Concurrency:         3,
			NavigationTimeout:   time.Second,
			ScrollSettleDelay:   time.Millisecond,
			MaxScrollIterations: 10,
			MaxScrollDuration:   time.Second,
			ProgressInterval:    time.Hour,
		},
		Sink: config.SinkConfig{FilePath: filepath.Join(t.TempDir(), "products.csv")},
	}
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

type memorySink struct {
	mu       sync.Mutex
	urls     []string
	resets   int
	resetErr error
}

func (m *memorySink) Append(_ context.Context, rec models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, rec.URL)
	return nil
}

func (m *memorySink) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	if m.resetErr != nil {
		return m.resetErr
	}
	m.urls = nil
	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.urls...)
	sort.Strings(out)
	return out
}

func memoryTrackers(capacity int) storage.TrackerFactory {
	return func(string) (storage.VisitedTracker, error) {
		return storage.NewMemoryTracker(capacity), nil
	}
}

func newTestOrchestrator(cfg *config.AppConfig, site *rendertest.Site, out *memorySink) *Orchestrator {
	return NewOrchestrator(cfg, site, memoryTrackers(0), out, metrics.New(prometheus.NewRegistry()), testLogger())
}

// multiSite serves n shops, each with one product on its home page
func multiSite(n int) (*rendertest.Site, []string) {
	site := rendertest.NewSite(nil)
	seeds := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		home := fmt.Sprintf("https://shop%d.test/", i)
		site.AddPage(home, &rendertest.Page{Links: []string{"/p/1"}})
		site.AddPage(home+"p/1", &rendertest.Page{})
		seeds = append(seeds, home)
	}
	return site, seeds
}

func TestSelectSeeds(t *testing.T) {
	tests := []struct {
		name        string
		seeds       []string
		max         int
		wantKept    []string
		wantDropped []string
	}{
		{"under limit", []string{"a", "b"}, 10, []string{"a", "b"}, nil},
		{"at limit", []string{"a", "b"}, 2, []string{"a", "b"}, nil},
		{"over limit keeps order", []string{"a", "b", "c"}, 2, []string{"a", "b"}, []string{"c"}},
		{"no limit", []string{"a", "b", "c"}, 0, []string{"a", "b", "c"}, nil},
		{"empty", nil, 10, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, dropped := SelectSeeds(tt.seeds, tt.max)
			assert.Equal(t, tt.wantKept, kept)
			assert.Equal(t, tt.wantDropped, dropped)
		})
	}
}

func TestStartCrawl_OnlyFirstTenSeedsAreScheduled(t *testing.T) {
	site, seeds := multiSite(15)
	out := &memorySink{}
	o := newTestOrchestrator(testAppConfig(t), site, out)

	summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: seeds})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, summary.Status)
	assert.Len(t, summary.Sites, 10)
	assert.Equal(t, seeds[10:], summary.DroppedSeeds)
	assert.Len(t, out.URLs(), 10)
	for _, dropped := range seeds[10:] {
		assert.Zero(t, site.NavigationCount(dropped), dropped)
	}
	assert.Equal(t, int64(10), summary.ProductsFound)
	assert.Equal(t, int64(20), summary.PagesProcessed)
	assert.NotEmpty(t, summary.RunID)
}

func TestStartCrawl_InvalidSeedsAreRejected(t *testing.T) {
	site, seeds := multiSite(1)
	out := &memorySink{}
	o := newTestOrchestrator(testAppConfig(t), site, out)

	summary, err := o.StartCrawl(context.Background(), CrawlRequest{
		RunID: "run-42",
		Seeds: []string{"ftp://files.test/", seeds[0], "not a url", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "run-42", summary.RunID)
	require.Len(t, summary.Sites, 1)
	assert.Equal(t, "shop1.test", summary.Sites[0].Domain)
	require.Len(t, summary.RejectedSeeds, 3)
	assert.Equal(t, "ftp://files.test/", summary.RejectedSeeds[0].URL)
	assert.Contains(t, summary.RejectedSeeds[0].Reason, "unsupported scheme")
	assert.Equal(t, []string{"https://shop1.test/p/1"}, out.URLs())
}

func TestStartCrawl_NoValidSeedsOpensNoHandles(t *testing.T) {
	site := rendertest.NewSite(nil)
	o := newTestOrchestrator(testAppConfig(t), site, &memorySink{})

	summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: []string{"mailto:shop@test"}})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, summary.Status)
	assert.Empty(t, summary.Sites)
	opened, _ := site.Handles()
	assert.Zero(t, opened)
}

func TestStartCrawl_ResetOutput(t *testing.T) {
	site, seeds := multiSite(1)
	out := &memorySink{urls: []string{"https://stale.test/p/old"}}
	o := newTestOrchestrator(testAppConfig(t), site, out)

	_, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: seeds, ResetOutput: true})
	require.NoError(t, err)

	assert.Equal(t, 1, out.resets)
	assert.Equal(t, []string{"https://shop1.test/p/1"}, out.URLs())
}

func TestStartCrawl_BadgerTrackersReleasedAfterRun(t *testing.T) {
	db, err := storage.OpenBadger(testLogger())
	require.NoError(t, err)
	defer db.Close()

	factory, err := storage.NewTrackerFactory(config.TrackerConfig{Backend: "badger"}, 0, db, nil, testLogger())
	require.NoError(t, err)

	site, seeds := multiSite(2)
	out := &memorySink{}
	o := NewOrchestrator(testAppConfig(t), site, factory, out, metrics.New(prometheus.NewRegistry()), testLogger())

	summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: seeds})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.ProductsFound)
	require.Len(t, summary.Sites, 2)
	for _, st := range summary.Sites {
		assert.Equal(t, int64(2), st.VisitedCount, st.Domain)
	}

	keys := 0
	require.NoError(t, db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys++
		}
		return nil
	}))
	assert.Zero(t, keys, "session keys outlived the run")
}

func TestStartCrawl_ResetFailureFailsRun(t *testing.T) {
	site, seeds := multiSite(1)
	out := &memorySink{resetErr: fmt.Errorf("%w: truncate denied", utils.ErrFilesystem)}
	o := newTestOrchestrator(testAppConfig(t), site, out)

	summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: seeds, ResetOutput: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrOutputReset)
	assert.ErrorIs(t, err, utils.ErrFilesystem)
	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Empty(t, out.URLs(), "no page is crawled when the output cannot be cleared")
	opened, _ := site.Handles()
	assert.Zero(t, opened)
}

func TestStartCrawl_GlobalTimeoutCancelsRun(t *testing.T) {
	site := rendertest.NewSite(map[string]*rendertest.Page{
		"https://slow.test/": {Delay: 5 * time.Second},
	})
	cfg := testAppConfig(t)
	cfg.Crawl.NavigationTimeout = 10 * time.Second
	cfg.Crawl.GlobalCrawlTimeout = 50 * time.Millisecond
	o := newTestOrchestrator(cfg, site, &memorySink{})

	start := time.Now()
	summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: []string{"https://slow.test/"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)

	require.NotNil(t, summary)
	assert.Equal(t, models.RunStatusCancelled, summary.Status)
	assert.NotEmpty(t, summary.Error)

	opened, closed := site.Handles()
	assert.Equal(t, opened, closed)
}

func TestStartCrawl_CallerCancellation(t *testing.T) {
	site := rendertest.NewSite(map[string]*rendertest.Page{
		"https://slow.test/": {Delay: 5 * time.Second},
	})
	cfg := testAppConfig(t)
	cfg.Crawl.NavigationTimeout = 10 * time.Second
	o := newTestOrchestrator(cfg, site, &memorySink{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	summary, err := o.StartCrawl(ctx, CrawlRequest{Seeds: []string{"https://slow.test/"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.RunStatusCancelled, summary.Status)
}

func TestStartCrawl_StartupFailures(t *testing.T) {
	t.Run("tracker factory", func(t *testing.T) {
		site, seeds := multiSite(1)
		failing := func(string) (storage.VisitedTracker, error) { return nil, errors.New("redis unavailable") }
		o := NewOrchestrator(testAppConfig(t), site, failing, &memorySink{}, metrics.New(prometheus.NewRegistry()), testLogger())

		summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: seeds})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis unavailable")
		assert.Equal(t, models.RunStatusFailed, summary.Status)
		assert.Empty(t, site.Navigations())
	})

	t.Run("render handles", func(t *testing.T) {
		site, seeds := multiSite(1)
		site.NewHandleErr = errors.New("chrome not found")
		o := newTestOrchestrator(testAppConfig(t), site, &memorySink{})

		summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: seeds})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start dispatcher")
		assert.Equal(t, models.RunStatusFailed, summary.Status)
		assert.Equal(t, "chrome not found", errors.Unwrap(errors.Unwrap(err)).Error())
	})
}

func TestStartCrawl_WritesSummaryFile(t *testing.T) {
	site, seeds := multiSite(2)
	cfg := testAppConfig(t)
	cfg.Sink.SummaryFile = filepath.Join(t.TempDir(), "runs", "last.yaml")
	o := newTestOrchestrator(cfg, site, &memorySink{})

	summary, err := o.StartCrawl(context.Background(), CrawlRequest{RunID: "run-7", Seeds: seeds})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Sink.SummaryFile)
	require.NoError(t, err)

	var onDisk models.RunSummary
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, "run-7", onDisk.RunID)
	assert.Equal(t, models.RunStatusCompleted, onDisk.Status)
	assert.Len(t, onDisk.Sites, 2)
	assert.Equal(t, summary.ProductsFound, onDisk.ProductsFound)
}

func TestStartCrawl_SameDomainSeedsCrawlIndependently(t *testing.T) {
	site, seeds := multiSite(1)
	out := &memorySink{}
	o := newTestOrchestrator(testAppConfig(t), site, out)

	summary, err := o.StartCrawl(context.Background(), CrawlRequest{Seeds: []string{seeds[0], seeds[0]}})
	require.NoError(t, err)

	assert.Len(t, summary.Sites, 2)
	assert.Equal(t, 2, site.NavigationCount(seeds[0]))
	assert.Len(t, out.URLs(), 2)
}
