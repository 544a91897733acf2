package main

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/jobs"
	"github.com/Sriram-PR/product-scraper/pkg/metrics"
	"github.com/Sriram-PR/product-scraper/pkg/orchestrate"
	"github.com/Sriram-PR/product-scraper/pkg/render"
	"github.com/Sriram-PR/product-scraper/pkg/sink"
	"github.com/Sriram-PR/product-scraper/pkg/storage"
)

// app holds the components shared by serve, crawl and mcp-server
type app struct {
	cfg          *config.AppConfig
	log          *logrus.Logger
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	browser      *render.Browser
	visitedDB    *badger.DB
	redis        *redis.Client
	output       *sink.FileSink
	sinks        *sink.Multi
	orchestrator *orchestrate.Orchestrator
	runs         *jobs.Manager
}

// newApp connects the backends and launches the browser. Call close when done.
func newApp(ctx context.Context, appCfg *config.AppConfig, log *logrus.Logger) (*app, error) {
	a := &app{
		cfg:      appCfg,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	var err error
	a.output, a.sinks, err = buildSinks(ctx, appCfg, log)
	if err != nil {
		return nil, err
	}

	trackers, err := a.buildTrackers(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.browser, err = render.NewBrowser(ctx, appCfg.Browser, log.WithField("component", "browser"))
	if err != nil {
		a.close()
		return nil, err
	}

	a.orchestrator = orchestrate.NewOrchestrator(appCfg, a.browser, trackers, a.sinks, a.metrics,
		log.WithField("component", "orchestrator"))
	a.runs = jobs.NewManager(a.orchestrator, a.metrics, log.WithField("component", "jobs"))
	return a, nil
}

// buildSinks always includes the CSV file; Postgres and Kafka join when configured
func buildSinks(ctx context.Context, appCfg *config.AppConfig, log *logrus.Logger) (*sink.FileSink, *sink.Multi, error) {
	fileSink, err := sink.NewFileSink(appCfg.Sink.FilePath, log.WithField("sink", "file"))
	if err != nil {
		return nil, nil, err
	}
	sinks := []sink.Sink{fileSink}

	if appCfg.Sink.PostgresEnabled() {
		pg, err := sink.NewPostgresSink(ctx, appCfg.Sink.Postgres, log.WithField("sink", "postgres"))
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
	}

	if appCfg.Sink.KafkaEnabled() {
		sinks = append(sinks, sink.NewKafkaSink(appCfg.Sink.Kafka, log.WithField("sink", "kafka")))
		log.Infof("Kafka sink enabled (topic %s)", appCfg.Sink.Kafka.Topic)
	}

	return fileSink, sink.NewMulti(sinks...), nil
}

// buildTrackers opens whatever the configured tracker backend needs
func (a *app) buildTrackers(ctx context.Context) (storage.TrackerFactory, error) {
	trackerLog := a.log.WithField("component", "tracker")
	var client storage.RedisClient
	switch a.cfg.Tracker.Backend {
	case "badger":
		db, err := storage.OpenBadger(trackerLog)
		if err != nil {
			return nil, err
		}
		a.visitedDB = db
		a.log.Info("In-memory badger visited tracker opened")
	case "redis":
		rc, err := storage.NewRedisClient(ctx, a.cfg.Tracker.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rc
		client = rc
		a.log.Infof("Redis visited tracker connected (%s)", a.cfg.Tracker.Redis.Addr)
	}
	return storage.NewTrackerFactory(a.cfg.Tracker, a.cfg.Crawl.MaxPagesPerSession, a.visitedDB, client, trackerLog)
}

// close releases everything newApp opened. Safe on a partially built app.
func (a *app) close() {
	var errs []error
	if a.runs != nil {
		a.runs.CancelAll()
	}
	if a.browser != nil {
		errs = append(errs, a.browser.Close())
	}
	if a.visitedDB != nil {
		errs = append(errs, a.visitedDB.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.sinks != nil {
		errs = append(errs, a.sinks.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warnf("Error during cleanup: %v", err)
	}
}
