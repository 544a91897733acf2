package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Sriram-PR/product-scraper/pkg/api"
)

// runServe handles the serve subcommand
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file (optional, defaults plus env are used when missing)")
	addr := fs.String("addr", "", "Listen address, overrides server.addr (e.g. ':3000')")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error), overrides log_level")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: product-scraper serve [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  product-scraper serve -config config.yaml\n")
		fmt.Fprintf(os.Stderr, "  PORT=8080 product-scraper serve\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(executeServe(*configFile, *addr, *logLevel, *pprofAddr))
}

func executeServe(configFile, addr, logLevel, pprofAddr string) int {
	appCfg, log, err := loadAndValidateConfig(configFile, logLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}
	if addr != "" {
		appCfg.Server.Addr = addr
	}
	startPprof(pprofAddr, log)

	ctx, stop := notifyShutdown(context.Background(), appCfg.Server.ShutdownTimeout, log)
	defer stop()

	a, err := newApp(ctx, appCfg, log)
	if err != nil {
		log.Errorf("Failed to initialize components: %v", err)
		return 1
	}
	defer a.close()

	srv := api.NewServer(appCfg.Server, a.runs, a.output, a.metrics, a.registry, log.WithField("component", "api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("HTTP server failed: %v", err)
			exitCode = 1
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	a.runs.CancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}
	if active, ok := a.runs.Active(); ok {
		if _, err := a.runs.Wait(shutdownCtx, active.ID); err != nil {
			log.Warnf("Run %s did not stop in time: %v", active.ID, err)
		}
	}

	log.Info("Server stopped.")
	return exitCode
}
