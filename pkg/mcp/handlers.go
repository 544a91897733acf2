package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/product-scraper/pkg/jobs"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// handleStartCrawl handles the start_crawl tool
func (s *Server) handleStartCrawl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	websites := splitWebsites(request.GetString("websites", ""))
	if len(websites) == 0 {
		return mcp.NewToolResultError("websites parameter is required"), nil
	}
	wait := request.GetBool("wait", false)

	run, _, err := s.cfg.Runs.Submit(websites)
	if errors.Is(err, utils.ErrCrawlInProgress) {
		result := map[string]interface{}{
			"status":  "already_running",
			"message": "A crawl is already in progress",
		}
		if active, ok := s.cfg.Runs.Active(); ok {
			result["run_id"] = active.ID
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start crawl: %v", err)), nil
	}

	if !wait {
		result := map[string]interface{}{
			"status":   "started",
			"message":  "Crawl started successfully",
			"run_id":   run.ID,
			"websites": websites,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	finished, err := s.cfg.Runs.Wait(ctx, run.ID)
	if err != nil {
		// The tool call was cancelled; the run itself keeps going
		return mcp.NewToolResultError(fmt.Sprintf("stopped waiting for run '%s': %v", run.ID, err)), nil
	}
	return mcp.NewToolResultText(formatJSON(runResult(finished))), nil
}

// handleGetCrawlStatus handles the get_crawl_status tool
func (s *Server) handleGetCrawlStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		active, ok := s.cfg.Runs.Active()
		if !ok {
			return mcp.NewToolResultError("run_id parameter is required when no crawl is running"), nil
		}
		return mcp.NewToolResultText(formatJSON(runResult(active))), nil
	}

	run, err := s.cfg.Runs.Get(runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run '%s' not found", runID)), nil
	}
	return mcp.NewToolResultText(formatJSON(runResult(run))), nil
}

// handleListProductURLs handles the list_product_urls tool
func (s *Server) handleListProductURLs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	entries, err := s.cfg.Output.Entries()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read product URLs: %v", err)), nil
	}

	urls := entries
	if len(urls) > limit {
		urls = urls[:limit]
	}

	result := map[string]interface{}{
		"urls":      urls,
		"total":     len(entries),
		"returned":  len(urls),
		"truncated": len(urls) < len(entries),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

func runResult(run jobs.Run) map[string]interface{} {
	result := map[string]interface{}{
		"run_id":     run.ID,
		"status":     run.Status,
		"seeds":      run.Seeds,
		"started_at": run.StartedAt.Format(time.RFC3339),
	}

	if !run.CompletedAt.IsZero() {
		result["completed_at"] = run.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = run.CompletedAt.Sub(run.StartedAt).Seconds()
	}

	if run.ErrorMessage != "" {
		result["error_message"] = run.ErrorMessage
	}

	if sum := run.Summary; sum != nil {
		result["pages_processed"] = sum.PagesProcessed
		result["pages_failed"] = sum.PagesFailed
		result["products_found"] = sum.ProductsFound
		result["sites"] = len(sum.Sites)
		if len(sum.RejectedSeeds) > 0 {
			result["rejected_seeds"] = sum.RejectedSeeds
		}
		if len(sum.DroppedSeeds) > 0 {
			result["dropped_seeds"] = sum.DroppedSeeds
		}
	}

	return result
}

// splitWebsites accepts comma, newline or whitespace separated seeds
func splitWebsites(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
