package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/product-scraper/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

func TestLoadConfig_ValidFile(t *testing.T) {
	cfgPath := writeConfig(t, `
crawl:
  max_depth: 3
  concurrency: 4
sink:
  file_path: "./out/urls.csv"
`)
	t.Setenv("PORT", "")

	cfg, applied, err := loadConfig(cfgPath, true)

	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, 3, cfg.Crawl.MaxDepth)
	assert.Equal(t, 4, cfg.Crawl.Concurrency)
	assert.Equal(t, "./out/urls.csv", cfg.Sink.FilePath)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	cfgPath := writeConfig(t, "crawl:\n  max_depth: 3\n")
	t.Setenv("PRODUCT_SCRAPER_CRAWL_MAX_DEPTH", "5")

	cfg, applied, err := loadConfig(cfgPath, true)

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Crawl.MaxDepth)
	assert.Contains(t, applied, "crawl.max_depth")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, _, err := loadConfig("/nonexistent/path/config.yaml", true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_OptionalFileMissing(t *testing.T) {
	cfg, _, err := loadConfig("/nonexistent/path/config.yaml", false)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Zero(t, cfg.Crawl.MaxDepth, "defaults are applied by Validate, not loadConfig")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	cfgPath := writeConfig(t, "{{invalid yaml")

	_, _, err := loadConfig(cfgPath, true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestDoValidate_Valid(t *testing.T) {
	cfgPath := writeConfig(t, `
crawl:
  max_depth: 2
  concurrency: 3
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, &stdout, &stderr)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "OK: max_sites=10 max_depth=2 concurrency=3 tracker=badger")
	assert.Contains(t, stdout.String(), "Configuration valid")
	assert.Empty(t, stderr.String())
}

func TestDoValidate_Warnings(t *testing.T) {
	cfgPath := writeConfig(t, "crawl:\n  max_depth: 2\n")

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, &stdout, &stderr)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "WARN: sink.file_path is empty")
}

func TestDoValidate_InvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, `
tracker:
  backend: "etcd"
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "ERROR:")
	assert.Contains(t, stderr.String(), "etcd")
	assert.NotContains(t, stdout.String(), "Configuration valid")
}

func TestDoValidate_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	exitCode := doValidate("/nonexistent/config.yaml", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestPrintUsageTo(t *testing.T) {
	var buf bytes.Buffer
	printUsageTo(&buf)

	for _, cmd := range []string{"serve", "crawl", "mcp-server", "validate", "version"} {
		assert.Contains(t, buf.String(), cmd)
	}
}

func TestReadSeeds(t *testing.T) {
	seedsPath := filepath.Join(t.TempDir(), "seeds.txt")
	require.NoError(t, os.WriteFile(seedsPath, []byte(`
# shops
https://c.test/

  https://d.test/
`), 0644))

	tests := []struct {
		name string
		list string
		path string
		want []string
	}{
		{"list only", "https://a.test/, https://b.test/", "", []string{"https://a.test/", "https://b.test/"}},
		{"file only", "", seedsPath, []string{"https://c.test/", "https://d.test/"}},
		{"list then file", "https://a.test/", seedsPath, []string{"https://a.test/", "https://c.test/", "https://d.test/"}},
		{"empty", " , ", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readSeeds(tt.list, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := readSeeds("", "/nonexistent/seeds.txt")
	assert.Error(t, err)
}

func TestCrawlExitCode(t *testing.T) {
	assert.Equal(t, 0, crawlExitCode(&models.RunSummary{Status: models.RunStatusCompleted}, nil))
	assert.Equal(t, 1, crawlExitCode(&models.RunSummary{Status: models.RunStatusCancelled}, context.Canceled))
	assert.Equal(t, 1, crawlExitCode(&models.RunSummary{Status: models.RunStatusFailed}, nil))
	assert.Equal(t, 1, crawlExitCode(nil, errors.New("boom")))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, &models.RunSummary{
		RunID:         "run-1",
		Status:        models.RunStatusCompleted,
		ProductsFound: 4,
	}))

	assert.Contains(t, buf.String(), "run_id: run-1")
	assert.Contains(t, buf.String(), "status: completed")
	assert.Contains(t, buf.String(), "products_found: 4")
}

func TestBuildSinks_FileOnly(t *testing.T) {
	cfgPath := writeConfig(t, "")
	cfg, _, err := loadConfig(cfgPath, true)
	require.NoError(t, err)
	cfg.Sink.FilePath = filepath.Join(t.TempDir(), "out", "urls.csv")
	_, err = cfg.Validate()
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	fileSink, multi, err := buildSinks(context.Background(), cfg, log)
	require.NoError(t, err)
	defer multi.Close()

	assert.Equal(t, 1, multi.Len())
	assert.Equal(t, cfg.Sink.FilePath, fileSink.Path())
	assert.FileExists(t, cfg.Sink.FilePath)
}
