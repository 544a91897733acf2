package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/orchestrate"
)

// runCrawl handles the crawl subcommand
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file (optional, defaults plus env are used when missing)")
	seeds := fs.String("seeds", "", "Comma-separated seed URLs")
	seedsFile := fs.String("seeds-file", "", "File with one seed URL per line ('#' starts a comment)")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error), overrides log_level")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: product-scraper crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  product-scraper crawl -seeds https://shop.example.com/,https://store.example.org/\n")
		fmt.Fprintf(os.Stderr, "  product-scraper crawl -seeds-file seeds.txt -loglevel debug\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	seedList, err := readSeeds(*seeds, *seedsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(seedList) == 0 {
		fmt.Fprintln(os.Stderr, "Error: one of -seeds or -seeds-file is required")
		fs.Usage()
		os.Exit(1)
	}

	os.Exit(executeCrawl(*configFile, seedList, *logLevel, *pprofAddr, os.Stdout))
}

func executeCrawl(configFile string, seeds []string, logLevel, pprofAddr string, stdout io.Writer) int {
	appCfg, log, err := loadAndValidateConfig(configFile, logLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}
	startPprof(pprofAddr, log)

	ctx, stop := notifyShutdown(context.Background(), appCfg.Server.ShutdownTimeout, log)
	defer stop()

	a, err := newApp(ctx, appCfg, log)
	if err != nil {
		log.Errorf("Failed to initialize components: %v", err)
		return 1
	}
	defer a.close()

	summary, err := a.orchestrator.StartCrawl(ctx, orchestrate.CrawlRequest{Seeds: seeds, ResetOutput: true})
	if summary != nil {
		if werr := printSummary(stdout, summary); werr != nil {
			log.Warnf("Failed to print summary: %v", werr)
		}
	}
	return crawlExitCode(summary, err)
}

// crawlExitCode is 0 only for a completed run
func crawlExitCode(summary *models.RunSummary, err error) int {
	if err != nil || summary == nil || summary.Status != models.RunStatusCompleted {
		return 1
	}
	return 0
}

func printSummary(w io.Writer, summary *models.RunSummary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return err
	}
	return enc.Close()
}

// readSeeds merges the -seeds list with the lines of -seeds-file, in that order
func readSeeds(list, path string) ([]string, error) {
	var seeds []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	if path == "" {
		return seeds, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seeds file: %w", err)
	}
	return seeds, nil
}
