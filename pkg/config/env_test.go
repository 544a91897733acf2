package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PRODUCT_SCRAPER_LOG_LEVEL", "debug")
	t.Setenv("PRODUCT_SCRAPER_CRAWL_CONCURRENCY", "12")
	t.Setenv("PRODUCT_SCRAPER_CRAWL_NAVIGATION_TIMEOUT", "15s")
	t.Setenv("PRODUCT_SCRAPER_CRAWL_PRODUCT_PATTERNS", "/p/, /shop/ ,")
	t.Setenv("PRODUCT_SCRAPER_BROWSER_HEADLESS", "false")
	t.Setenv("PRODUCT_SCRAPER_TRACKER_BACKEND", "redis")
	t.Setenv("PRODUCT_SCRAPER_TRACKER_REDIS_ADDR", "redis:6379")
	t.Setenv("PRODUCT_SCRAPER_SINK_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := AppConfig{Crawl: CrawlConfig{Concurrency: 2}}
	applied := ApplyEnvOverrides(&cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 12, cfg.Crawl.Concurrency)
	assert.Equal(t, 15*time.Second, cfg.Crawl.NavigationTimeout)
	assert.Equal(t, []string{"/p/", "/shop/"}, cfg.Crawl.ProductPatterns)
	require.NotNil(t, cfg.Browser.Headless)
	assert.False(t, *cfg.Browser.Headless)
	assert.Equal(t, "redis", cfg.Tracker.Backend)
	assert.Equal(t, "redis:6379", cfg.Tracker.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Sink.Kafka.Brokers)
	assert.Contains(t, applied, "crawl.concurrency")
	assert.Contains(t, applied, "browser.headless")
}

func TestApplyEnvOverrides_UnsetKeepsFileValues(t *testing.T) {
	t.Setenv("PORT", "")
	cfg := AppConfig{
		LogLevel: "warn",
		Crawl:    CrawlConfig{MaxDepth: 3},
		Server:   ServerConfig{Addr: ":8080"},
	}
	ApplyEnvOverrides(&cfg)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Crawl.MaxDepth)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Nil(t, cfg.Browser.Headless)
}

func TestApplyEnvOverrides_Port(t *testing.T) {
	t.Run("PORT sets listen address", func(t *testing.T) {
		t.Setenv("PORT", "4000")
		cfg := AppConfig{}
		ApplyEnvOverrides(&cfg)
		assert.Equal(t, ":4000", cfg.Server.Addr)
	})

	t.Run("explicit address wins over PORT", func(t *testing.T) {
		t.Setenv("PORT", "4000")
		t.Setenv("PRODUCT_SCRAPER_SERVER_ADDR", "127.0.0.1:5000")
		cfg := AppConfig{}
		ApplyEnvOverrides(&cfg)
		assert.Equal(t, "127.0.0.1:5000", cfg.Server.Addr)
	})
}
