package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PRODUCT_SCRAPER_CRAWL_CONCURRENCY
const EnvPrefix = "PRODUCT_SCRAPER"

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Plain PORT is what most hosting platforms inject
	_ = v.BindEnv("server.port", "PORT")
	return v
}

// ApplyEnvOverrides overlays environment variables on cfg and returns the keys that were applied.
// Call before Validate so overridden values still get checked.
func ApplyEnvOverrides(cfg *AppConfig) []string {
	v := newEnvViper()
	var applied []string

	str := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
			applied = append(applied, key)
		}
	}
	integer := func(key string, dst *int) {
		if v.GetString(key) != "" {
			*dst = v.GetInt(key)
			applied = append(applied, key)
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v.GetString(key) != "" {
			*dst = v.GetDuration(key)
			applied = append(applied, key)
		}
	}
	list := func(key string, dst *[]string) {
		if s := v.GetString(key); s != "" {
			*dst = compactPatterns(strings.Split(s, ","))
			applied = append(applied, key)
		}
	}

	str("log_level", &cfg.LogLevel)

	integer("crawl.max_sites", &cfg.Crawl.MaxSites)
	integer("crawl.max_depth", &cfg.Crawl.MaxDepth)
	integer("crawl.concurrency", &cfg.Crawl.Concurrency)
	duration("crawl.navigation_timeout", &cfg.Crawl.NavigationTimeout)
	duration("crawl.scroll_settle_delay", &cfg.Crawl.ScrollSettleDelay)
	integer("crawl.max_scroll_iterations", &cfg.Crawl.MaxScrollIterations)
	duration("crawl.max_scroll_duration", &cfg.Crawl.MaxScrollDuration)
	integer("crawl.max_pages_per_session", &cfg.Crawl.MaxPagesPerSession)
	integer("crawl.max_queue_length", &cfg.Crawl.MaxQueueLength)
	duration("crawl.global_crawl_timeout", &cfg.Crawl.GlobalCrawlTimeout)
	list("crawl.product_patterns", &cfg.Crawl.ProductPatterns)

	str("browser.exec_path", &cfg.Browser.ExecPath)
	str("browser.user_agent", &cfg.Browser.UserAgent)
	if v.GetString("browser.headless") != "" {
		headless := v.GetBool("browser.headless")
		cfg.Browser.Headless = &headless
		applied = append(applied, "browser.headless")
	}
	if v.GetString("browser.no_sandbox") != "" {
		cfg.Browser.NoSandbox = v.GetBool("browser.no_sandbox")
		applied = append(applied, "browser.no_sandbox")
	}

	str("tracker.backend", &cfg.Tracker.Backend)
	str("tracker.redis.addr", &cfg.Tracker.Redis.Addr)
	str("tracker.redis.password", &cfg.Tracker.Redis.Password)
	integer("tracker.redis.db", &cfg.Tracker.Redis.DB)

	str("sink.file_path", &cfg.Sink.FilePath)
	str("sink.summary_file", &cfg.Sink.SummaryFile)
	str("sink.postgres.url", &cfg.Sink.Postgres.URL)
	list("sink.kafka.brokers", &cfg.Sink.Kafka.Brokers)
	str("sink.kafka.topic", &cfg.Sink.Kafka.Topic)

	// An explicit address wins over PORT
	str("server.addr", &cfg.Server.Addr)
	if port := v.GetString("server.port"); port != "" && v.GetString("server.addr") == "" {
		cfg.Server.Addr = ":" + port
		applied = append(applied, "server.port")
	}

	return applied
}
