package models

import "time"

// Category is the result of classifying a link. Product and Navigable are independent bits.
type Category uint8

const (
	CategoryIgnore    Category = 0
	CategoryProduct   Category = 1 << 0
	CategoryNavigable Category = 1 << 1
)

// IsProduct reports whether the link matched a product pattern
func (c Category) IsProduct() bool { return c&CategoryProduct != 0 }

// IsNavigable reports whether the link is eligible for further traversal
func (c Category) IsNavigable() bool { return c&CategoryNavigable != 0 }

// String implements fmt.Stringer for logging
func (c Category) String() string {
	switch {
	case c.IsProduct() && c.IsNavigable():
		return "product+navigable"
	case c.IsProduct():
		return "product"
	case c.IsNavigable():
		return "navigable"
	}
	return "ignore"
}

// ProductRecord is a single discovered product URL destined for the sinks
type ProductRecord struct {
	URL          string    `json:"url"`
	SourceURL    string    `json:"source_url"` // Page the link was found on
	Domain       string    `json:"domain"`     // Session domain, not the product's host
	RunID        string    `json:"run_id"`
	SessionID    string    `json:"session_id"`
	Depth        int       `json:"depth"` // Remaining depth of the page it was found on
	DiscoveredAt time.Time `json:"discovered_at"`
}

// RejectedSeed records a seed that could not be turned into a session
type RejectedSeed struct {
	URL    string `yaml:"url" json:"url"`
	Reason string `yaml:"reason" json:"reason"`
}

// SiteSummary holds per-session results of a crawl run
type SiteSummary struct {
	SessionID       string        `yaml:"session_id" json:"session_id"`
	SeedURL         string        `yaml:"seed_url" json:"seed_url"`
	Domain          string        `yaml:"domain" json:"domain"`
	PagesProcessed  int64         `yaml:"pages_processed" json:"pages_processed"`
	PagesFailed     int64         `yaml:"pages_failed" json:"pages_failed"`
	ProductsFound   int64         `yaml:"products_found" json:"products_found"`
	JobsSkipped     int64         `yaml:"jobs_skipped" json:"jobs_skipped"`
	ChildrenDropped int64         `yaml:"children_dropped,omitempty" json:"children_dropped,omitempty"`
	VisitedCount    int64         `yaml:"visited_count" json:"visited_count"`
	Duration        time.Duration `yaml:"duration" json:"duration"`
}

// RunSummary holds all results of a single crawl invocation.
type RunSummary struct {
	RunID          string         `yaml:"run_id" json:"run_id"`
	Status         RunStatus      `yaml:"status" json:"status"`
	StartedAt      time.Time      `yaml:"started_at" json:"started_at"`
	FinishedAt     time.Time      `yaml:"finished_at" json:"finished_at"`
	Duration       time.Duration  `yaml:"duration" json:"duration"`
	Sites          []SiteSummary  `yaml:"sites" json:"sites"`
	DroppedSeeds   []string       `yaml:"dropped_seeds,omitempty" json:"dropped_seeds,omitempty"`
	RejectedSeeds  []RejectedSeed `yaml:"rejected_seeds,omitempty" json:"rejected_seeds,omitempty"`
	PagesProcessed int64          `yaml:"pages_processed" json:"pages_processed"`
	PagesFailed    int64          `yaml:"pages_failed" json:"pages_failed"`
	ProductsFound  int64          `yaml:"products_found" json:"products_found"`
	Error          string         `yaml:"error,omitempty" json:"error,omitempty"`
}
