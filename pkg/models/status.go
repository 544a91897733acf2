package models

// PageStatus represents the outcome of a single crawl job
type PageStatus string

const (
	PageStatusUnset   PageStatus = ""        // Zero value = unset/unknown
	PageStatusSuccess PageStatus = "success" // Page rendered and links extracted
	PageStatusFailure PageStatus = "failure" // Navigation or extraction failed
	PageStatusSkipped PageStatus = "skipped" // Job discarded before navigation (depth, visited, limit)
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s PageStatus) IsValid() bool {
	switch s {
	case PageStatusSuccess, PageStatusFailure, PageStatusSkipped:
		return true
	}
	return false
}

// RunStatus represents the lifecycle state of a crawl run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// String implements fmt.Stringer for logging
func (s RunStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsTerminal returns true once a run can no longer change state
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// SkipReason explains why a job was discarded without navigation
type SkipReason string

const (
	SkipReasonDepth   SkipReason = "depth"   // Remaining depth is zero
	SkipReasonVisited SkipReason = "visited" // URL already claimed in this session
	SkipReasonLimit   SkipReason = "limit"   // Session visited cap reached
)
