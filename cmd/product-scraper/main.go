package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/product-scraper/pkg/config"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "crawl":
		runCrawl(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("product-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `product-scraper - Product URL crawler

Usage:
  product-scraper <command> [options]

Commands:
  serve       Start the HTTP API (POST /start-crawl, GET /download-data, ...)
  crawl       Run one crawl from the command line and print its summary
  mcp-server  Start MCP server for AI tool integration
  validate    Validate configuration file
  version     Show version info

Run 'product-scraper <command> -h' for command-specific help.`)
}

// loadConfig reads the YAML file and overlays environment overrides. It does not validate.
// A missing file is only an error when mustExist is set; otherwise defaults plus env are used.
func loadConfig(path string, mustExist bool) (*config.AppConfig, []string, error) {
	var cfg config.AppConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err) && !mustExist:
	default:
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	applied := config.ApplyEnvOverrides(&cfg)
	return &cfg, applied, nil
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: product-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, applied, err := loadConfig(configPath, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	for _, key := range applied {
		fmt.Fprintf(stdout, "ENV: %s overridden\n", key)
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: max_sites=%d max_depth=%d concurrency=%d tracker=%s\n",
		appCfg.Crawl.MaxSites, appCfg.Crawl.MaxDepth, appCfg.Crawl.Concurrency, appCfg.Tracker.Backend)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// setupLogger creates a configured logrus.Logger with the given log level.
// An empty level falls back to the config file's log_level (or info).
func setupLogger(logLevelStr string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	if logLevelStr == "" {
		return log
	}
	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// loadAndValidateConfig loads the config, validates it and logs warnings.
// A -loglevel flag wins over the config file.
func loadAndValidateConfig(configFile, logLevelFlag string, logOut io.Writer) (*config.AppConfig, *logrus.Logger, error) {
	appCfg, applied, err := loadConfig(configFile, false)
	if err != nil {
		return nil, nil, err
	}

	warnings, err := appCfg.Validate()
	level := appCfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	log := setupLogger(level, logOut)
	log.Infof("Loaded configuration from %s", configFile)
	if len(applied) > 0 {
		log.Infof("Environment overrides applied: %v", applied)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, nil, err
	}

	logAppConfig(appCfg, log)
	return appCfg, log, nil
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr != "" {
		go func() {
			log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Errorf("pprof server error: %v", err)
			}
		}()
	}
}

// notifyShutdown cancels the returned context on the first SIGINT/SIGTERM.
// A second signal, or grace elapsing after the first, forces exit.
func notifyShutdown(parent context.Context, grace time.Duration, log *logrus.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("PANIC in signal handler: %v", r)
			}
		}()
		var sig os.Signal
		select {
		case sig = <-sigChan:
		case <-ctx.Done():
			return
		}
		log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(grace):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	c := appCfg.Crawl
	log.Infof("Crawl Config: MaxSites:%d, MaxDepth:%d, Concurrency:%d, MaxPagesPerSession:%d, MaxQueueLength:%d",
		c.MaxSites, c.MaxDepth, c.Concurrency, c.MaxPagesPerSession, c.MaxQueueLength)
	log.Infof("Crawl Config Timeouts: Navigation:%v, ScrollSettle:%v, MaxScrollDuration:%v, MaxScrollIterations:%d, GlobalCrawl:%v",
		c.NavigationTimeout, c.ScrollSettleDelay, c.MaxScrollDuration, c.MaxScrollIterations, c.GlobalCrawlTimeout)
	log.Infof("Crawl Config Patterns: Product:%v, ExcludedPaths:%v", c.ProductPatterns, c.ExcludedPathPatterns)
	log.Infof("Browser Config: Headless:%t, ExecPath:'%s', NoSandbox:%t",
		config.GetEffectiveHeadless(appCfg.Browser), appCfg.Browser.ExecPath, appCfg.Browser.NoSandbox)
	log.Infof("Tracker Config: Backend:%s", appCfg.Tracker.Backend)
	log.Infof("Sink Config: File:%s, Summary:'%s', Postgres:%t, Kafka:%t",
		appCfg.Sink.FilePath, appCfg.Sink.SummaryFile, appCfg.Sink.PostgresEnabled(), appCfg.Sink.KafkaEnabled())
}
