package config

import "time"

// DefaultProductPatterns are the URL substrings that mark a link as a product page
var DefaultProductPatterns = []string{
	"/p/", "/dp/", "/product/", "/itm/", "/b/", "/ecommerce/product/", "/item/", "/en-in/",
}

// DefaultExcludedPathPatterns are substrings that make an otherwise same-origin link non-navigable
var DefaultExcludedPathPatterns = []string{"/search"}

// CrawlConfig holds the traversal limits shared by every session of a run
type CrawlConfig struct {
	MaxSites             int           `yaml:"max_sites"`
	MaxDepth             int           `yaml:"max_depth"`
	Concurrency          int           `yaml:"concurrency"`
	NavigationTimeout    time.Duration `yaml:"navigation_timeout"`
	ScrollSettleDelay    time.Duration `yaml:"scroll_settle_delay"`
	MaxScrollIterations  int           `yaml:"max_scroll_iterations"`             // 0 = unbounded
	MaxScrollDuration    time.Duration `yaml:"max_scroll_duration"`               // 0 = unbounded
	MaxPagesPerSession   int           `yaml:"max_pages_per_session"`             // Visited cap per session, 0 = unbounded
	MaxQueueLength       int           `yaml:"max_queue_length"`                  // Pending job cap, 0 = unbounded
	GlobalCrawlTimeout   time.Duration `yaml:"global_crawl_timeout,omitempty"`    // 0 = no deadline
	ProgressInterval     time.Duration `yaml:"progress_interval,omitempty"`       // Period of progress log lines
	ProductPatterns      []string      `yaml:"product_patterns,omitempty"`        // Substrings matched against the full URL
	ExcludedPathPatterns []string      `yaml:"excluded_path_patterns,omitempty"` // Substrings matched against the whole URL
}

// BrowserConfig holds settings for the headless browser backing the render handles
type BrowserConfig struct {
	Headless  *bool  `yaml:"headless,omitempty"` // nil = default (true)
	ExecPath  string `yaml:"exec_path,omitempty"`
	UserAgent string `yaml:"user_agent,omitempty"`
	NoSandbox bool   `yaml:"no_sandbox,omitempty"`
}

// RedisConfig holds connection settings for the Redis visited tracker
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db,omitempty"`
	KeyPrefix string        `yaml:"key_prefix,omitempty"`
	KeyTTL    time.Duration `yaml:"key_ttl,omitempty"`
}

// TrackerConfig selects the visited tracker backend
type TrackerConfig struct {
	Backend string      `yaml:"backend"` // "badger", "memory" or "redis"
	Redis   RedisConfig `yaml:"redis,omitempty"`
}

// PostgresConfig enables the Postgres sink when URL is set
type PostgresConfig struct {
	URL   string `yaml:"url,omitempty"`
	Table string `yaml:"table,omitempty"`
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers,omitempty"`
	Topic        string        `yaml:"topic,omitempty"`
	BatchTimeout time.Duration `yaml:"batch_timeout,omitempty"`
}

// SinkConfig holds output destinations for discovered product URLs
type SinkConfig struct {
	FilePath    string         `yaml:"file_path"`
	SummaryFile string         `yaml:"summary_file,omitempty"`
	Postgres    PostgresConfig `yaml:"postgres,omitempty"`
	Kafka       KafkaConfig    `yaml:"kafka,omitempty"`
}

// ServerConfig holds settings for the HTTP control surface
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout,omitempty"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// MCPConfig holds settings for the MCP tool server
type MCPConfig struct {
	Transport string `yaml:"transport"` // "stdio" or "sse"
	Port      int    `yaml:"port"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	LogLevel string        `yaml:"log_level,omitempty"`
	Crawl    CrawlConfig   `yaml:"crawl"`
	Browser  BrowserConfig `yaml:"browser,omitempty"`
	Tracker  TrackerConfig `yaml:"tracker,omitempty"`
	Sink     SinkConfig    `yaml:"sink"`
	Server   ServerConfig  `yaml:"server,omitempty"`
	MCP      MCPConfig     `yaml:"mcp,omitempty"`
}

// GetEffectiveHeadless determines whether the browser runs headless
func GetEffectiveHeadless(browserCfg BrowserConfig) bool {
	if browserCfg.Headless != nil {
		return *browserCfg.Headless
	}
	return true
}

// PostgresEnabled reports whether the Postgres sink is configured
func (c SinkConfig) PostgresEnabled() bool { return c.Postgres.URL != "" }

// KafkaEnabled reports whether the Kafka sink is configured
func (c SinkConfig) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }
