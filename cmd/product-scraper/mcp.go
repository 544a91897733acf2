package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Sriram-PR/product-scraper/pkg/mcp"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file (optional, defaults plus env are used when missing)")
	transport := fs.String("transport", "", "Transport type (stdio, sse), overrides mcp.transport")
	port := fs.Int("port", 0, "HTTP port for sse transport, overrides mcp.port")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error), overrides log_level")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: product-scraper mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport
  product-scraper mcp-server -config config.yaml

  # Start with SSE transport on port 8090
  product-scraper mcp-server -config config.yaml -transport sse -port 8090

Available MCP Tools:
  start_crawl        Crawl up to 10 websites for product URLs
  get_crawl_status   Status and summary of a crawl run
  list_product_urls  Product URLs found by the latest crawl
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doMcpServer(*configFile, *transport, *port, *logLevel, os.Stderr))
}

// doMcpServer runs the MCP server until the transport stops or a signal arrives
func doMcpServer(configPath, transport string, port int, logLevel string, stderr io.Writer) int {
	// MCP protocol uses stdout, logs go to stderr
	appCfg, log, err := loadAndValidateConfig(configPath, logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if transport != "" {
		appCfg.MCP.Transport = transport
	}
	if port > 0 {
		appCfg.MCP.Port = port
	}

	ctx, stop := notifyShutdown(context.Background(), appCfg.Server.ShutdownTimeout, log)
	defer stop()

	a, err := newApp(ctx, appCfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing components: %v\n", err)
		return 1
	}
	defer a.close()

	server, err := mcp.NewServer(&mcp.ServerConfig{
		Transport: appCfg.MCP.Transport,
		Port:      appCfg.MCP.Port,
		Runs:      a.runs,
		Output:    a.output,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	log.Infof("Starting MCP server (transport: %s)", appCfg.MCP.Transport)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(stderr, "MCP server error: %v\n", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("MCP server shutdown: %v", err)
	}
	return 0
}
