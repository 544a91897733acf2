package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrNavigationTimeout = errors.New("navigation timed out before load condition") // Page did not reach the wait condition in time
	ErrNavigation        = errors.New("navigation failed")                          // Wraps browser error text or transport error
	ErrExtraction        = errors.New("link extraction failed")                     // DOM query / script evaluation failed
	ErrInvalidSeedURL    = errors.New("invalid seed URL")
	ErrVisitedLimit      = errors.New("session visited limit reached")
	ErrQueueFull         = errors.New("job queue is full")
	ErrQueueClosed       = errors.New("job queue is closed")
	ErrSink              = errors.New("sink write failed")
	ErrDatabase          = errors.New("database error") // Wraps redis/postgres errors
	ErrFilesystem        = errors.New("filesystem error")
	ErrOutputReset       = errors.New("output reset failed") // Sinks could not be cleared before a run
	ErrCrawlInProgress   = errors.New("a crawl is already in progress")
	ErrRunNotFound       = errors.New("crawl run not found")
	ErrConfigValidation  = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrNavigationTimeout):
		return "Navigation_Timeout"
	case errors.Is(err, ErrNavigation):
		// Browser error text is the most useful signal for navigation failures
		lowerErrMsg := strings.ToLower(err.Error())
		if strings.Contains(lowerErrMsg, "name_not_resolved") {
			return "Navigation_DNSLookup"
		}
		if strings.Contains(lowerErrMsg, "connection_refused") {
			return "Navigation_ConnectionRefused"
		}
		if strings.Contains(lowerErrMsg, "cert_") || strings.Contains(lowerErrMsg, "ssl") {
			return "Navigation_TLS"
		}
		if errors.Is(err, context.Canceled) {
			return "Navigation_Canceled"
		}
		return "Navigation_Other"
	case errors.Is(err, ErrExtraction):
		return "Extraction_Failure"
	case errors.Is(err, ErrInvalidSeedURL):
		return "Seed_Invalid"
	case errors.Is(err, ErrVisitedLimit):
		return "Policy_VisitedLimit"
	case errors.Is(err, ErrQueueFull):
		return "Policy_QueueFull"
	case errors.Is(err, ErrQueueClosed):
		return "Policy_QueueClosed"
	case errors.Is(err, ErrOutputReset):
		return "Output_Reset"
	case errors.Is(err, ErrSink):
		if errors.Is(err, ErrDatabase) {
			return "Sink_Database"
		}
		if errors.Is(err, ErrFilesystem) {
			return "Sink_Filesystem"
		}
		return "Sink_Write"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrCrawlInProgress):
		return "Run_InProgress"
	case errors.Is(err, ErrRunNotFound):
		return "Run_NotFound"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}

	return "Unknown"
}
