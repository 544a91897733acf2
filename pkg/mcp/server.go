// Package mcp exposes crawl control and results as MCP tools
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/jobs"
)

const (
	serverName    = "product-scraper"
	serverVersion = "1.0.0"
)

// RunManager is the subset of *jobs.Manager the tools use
type RunManager interface {
	Submit(seeds []string) (jobs.Run, <-chan struct{}, error)
	Get(id string) (jobs.Run, error)
	Active() (jobs.Run, bool)
	Wait(ctx context.Context, id string) (jobs.Run, error)
	CancelAll()
}

// Output reads back discovered product URLs
type Output interface {
	Entries() ([]string, error)
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Transport string // "stdio" or "sse"
	Port      int
	Runs      RunManager
	Output    Output
	Logger    *logrus.Logger
}

// Server wraps the MCP server with crawl tools
type Server struct {
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
	cfg       *ServerConfig
	log       *logrus.Entry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Runs == nil {
		return nil, fmt.Errorf("run manager is required")
	}
	if cfg.Output == nil {
		return nil, fmt.Errorf("output is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		cfg:       cfg,
		log:       cfg.Logger.WithField("component", "mcp"),
	}

	if cfg.Transport == "sse" {
		s.sseServer = server.NewSSEServer(mcpServer)
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	startCrawlTool := mcp.NewTool("start_crawl",
		mcp.WithDescription("Crawl up to 10 websites for product page URLs. Returns a run ID; set wait to block until the crawl finishes."),
		mcp.WithString("websites",
			mcp.Required(),
			mcp.Description("Seed URLs separated by commas or newlines (e.g. 'https://shop.example.com/')"),
		),
		mcp.WithBoolean("wait",
			mcp.Description("Wait for the crawl to finish before returning (default: false)"),
		),
	)
	s.mcpServer.AddTool(startCrawlTool, s.handleStartCrawl)

	statusTool := mcp.NewTool("get_crawl_status",
		mcp.WithDescription("Get the status and results summary of a crawl run"),
		mcp.WithString("run_id",
			mcp.Description("The run ID returned by start_crawl (defaults to the active run)"),
		),
	)
	s.mcpServer.AddTool(statusTool, s.handleGetCrawlStatus)

	listTool := mcp.NewTool("list_product_urls",
		mcp.WithDescription("List product URLs discovered by the most recent crawl"),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of URLs to return (default: %d, max: %d)", defaultListLimit, maxListLimit)),
		),
	)
	s.mcpServer.AddTool(listTool, s.handleListProductURLs)

	s.log.Infof("Registered %d MCP tools", 3)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		return s.sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels running crawls and stops the SSE listener if one is running
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.cfg.Runs.CancelAll()
	if s.sseServer != nil {
		return s.sseServer.Shutdown(ctx)
	}
	return nil
}
