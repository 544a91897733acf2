package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	warnings = append(warnings, c.Crawl.validate()...)
	c.Browser.validate()

	trackerWarnings, err := c.Tracker.validate()
	warnings = append(warnings, trackerWarnings...)
	if err != nil {
		return warnings, err
	}

	sinkWarnings, err := c.Sink.validate()
	warnings = append(warnings, sinkWarnings...)
	if err != nil {
		return warnings, err
	}

	// Server
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	// MCP
	switch c.MCP.Transport {
	case "":
		c.MCP.Transport = "stdio"
	case "stdio", "sse":
	default:
		return warnings, fmt.Errorf("%w: mcp.transport must be 'stdio' or 'sse', got '%s'", utils.ErrConfigValidation, c.MCP.Transport)
	}
	if c.MCP.Port <= 0 {
		c.MCP.Port = 8090
	}

	return warnings, nil
}

// validate applies crawl defaults. Crawl settings never fail fatally.
func (c *CrawlConfig) validate() (warnings []string) {
	// MaxSites
	if c.MaxSites <= 0 {
		warnings = append(warnings, "crawl.max_sites should be > 0, defaulting to 10")
		c.MaxSites = 10
	}

	// MaxDepth
	if c.MaxDepth <= 0 {
		warnings = append(warnings, "crawl.max_depth should be > 0, defaulting to 2")
		c.MaxDepth = 2
	}

	// Concurrency
	if c.Concurrency <= 0 {
		warnings = append(warnings, "crawl.concurrency should be > 0, defaulting to 5")
		c.Concurrency = 5
	}

	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 60 * time.Second
	}
	if c.ScrollSettleDelay <= 0 {
		c.ScrollSettleDelay = 1 * time.Second
	}

	// Drain loop safety valves
	if c.MaxScrollIterations < 0 {
		warnings = append(warnings, "crawl.max_scroll_iterations cannot be negative, disabling the cap")
		c.MaxScrollIterations = 0
	} else if c.MaxScrollIterations == 0 && c.MaxScrollDuration == 0 {
		c.MaxScrollIterations = 50
	}
	if c.MaxScrollDuration < 0 {
		warnings = append(warnings, "crawl.max_scroll_duration cannot be negative, disabling the cap")
		c.MaxScrollDuration = 0
	} else if c.MaxScrollDuration == 0 {
		c.MaxScrollDuration = 2 * time.Minute
	}

	// Backpressure caps
	if c.MaxPagesPerSession < 0 {
		warnings = append(warnings, "crawl.max_pages_per_session cannot be negative, disabling the cap")
		c.MaxPagesPerSession = 0
	} else if c.MaxPagesPerSession == 0 {
		c.MaxPagesPerSession = 10000
	}
	if c.MaxQueueLength < 0 {
		warnings = append(warnings, "crawl.max_queue_length cannot be negative, disabling the cap")
		c.MaxQueueLength = 0
	} else if c.MaxQueueLength == 0 {
		c.MaxQueueLength = 100000
	}

	// GlobalCrawlTimeout
	if c.GlobalCrawlTimeout < 0 {
		warnings = append(warnings, "crawl.global_crawl_timeout cannot be negative, disabling timeout")
		c.GlobalCrawlTimeout = 0
	}

	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 30 * time.Second
	}

	if len(c.ProductPatterns) == 0 {
		c.ProductPatterns = append([]string(nil), DefaultProductPatterns...)
	} else {
		c.ProductPatterns = compactPatterns(c.ProductPatterns)
		if len(c.ProductPatterns) == 0 {
			warnings = append(warnings, "crawl.product_patterns contains only empty entries, using defaults")
			c.ProductPatterns = append([]string(nil), DefaultProductPatterns...)
		}
	}
	if c.ExcludedPathPatterns == nil {
		c.ExcludedPathPatterns = append([]string(nil), DefaultExcludedPathPatterns...)
	} else {
		c.ExcludedPathPatterns = compactPatterns(c.ExcludedPathPatterns)
	}

	return warnings
}

func (c *BrowserConfig) validate() {
	if c.Headless == nil {
		headless := true
		c.Headless = &headless
	}
}

func (c *TrackerConfig) validate() (warnings []string, err error) {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = "badger"
	case "badger", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return warnings, fmt.Errorf("%w: tracker.backend is 'redis' but tracker.redis.addr is empty", utils.ErrConfigValidation)
		}
	default:
		return warnings, fmt.Errorf("%w: unknown tracker.backend '%s' (supported: badger, memory, redis)", utils.ErrConfigValidation, c.Backend)
	}

	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "product-scraper:visited"
	}
	if c.Redis.KeyTTL < 0 {
		warnings = append(warnings, "tracker.redis.key_ttl cannot be negative, defaulting to 24h")
		c.Redis.KeyTTL = 24 * time.Hour
	} else if c.Redis.KeyTTL == 0 {
		c.Redis.KeyTTL = 24 * time.Hour
	}
	return warnings, nil
}

func (c *SinkConfig) validate() (warnings []string, err error) {
	if c.FilePath == "" {
		warnings = append(warnings, "sink.file_path is empty, defaulting to 'product_urls.csv'")
		c.FilePath = "product_urls.csv"
	}

	if c.PostgresEnabled() && c.Postgres.Table == "" {
		c.Postgres.Table = "product_urls"
	}
	if c.Postgres.Table != "" && !isSQLIdentifier(c.Postgres.Table) {
		return warnings, fmt.Errorf("%w: sink.postgres.table '%s' is not a valid identifier", utils.ErrConfigValidation, c.Postgres.Table)
	}

	c.Kafka.Brokers = compactPatterns(c.Kafka.Brokers)
	if c.KafkaEnabled() && c.Kafka.Topic == "" {
		return warnings, fmt.Errorf("%w: sink.kafka.brokers set but sink.kafka.topic is empty", utils.ErrConfigValidation)
	}
	if !c.KafkaEnabled() && c.Kafka.Topic != "" {
		warnings = append(warnings, "sink.kafka.topic is set without sink.kafka.brokers, Kafka sink disabled")
	}
	if c.Kafka.BatchTimeout <= 0 {
		c.Kafka.BatchTimeout = 50 * time.Millisecond
	}
	return warnings, nil
}

// compactPatterns trims entries and drops empty ones
func compactPatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isSQLIdentifier accepts plain (optionally schema-qualified) lower-case identifiers
func isSQLIdentifier(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			switch {
			case r >= 'a' && r <= 'z', r == '_':
			case r >= '0' && r <= '9' && i > 0:
			default:
				return false
			}
		}
	}
	return true
}
