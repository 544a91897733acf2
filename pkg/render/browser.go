package render

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/log"
	"github.com/Sriram-PR/product-scraper/pkg/parse"
)

// Browser owns one Chrome process. Each handle is a tab in it.
type Browser struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logAdapter    *log.ChromedpAdapter
	log           *logrus.Entry
}

// NewBrowser launches Chrome with the configured flags and waits for it to come up
func NewBrowser(ctx context.Context, cfg config.BrowserConfig, logger *logrus.Entry) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.GetEffectiveHeadless(cfg)),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	adapter := log.NewChromedpAdapter(logger.WithField("component", "chromedp"))

	b := &Browser{logAdapter: adapter, log: logger}
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(adapter.Logf),
		chromedp.WithErrorf(adapter.Errorf),
	)

	// Run with no actions starts the browser process
	if err := chromedp.Run(b.browserCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info("Browser started")
	return b, nil
}

// NewHandle opens a new tab
func (b *Browser) NewHandle(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return &chromeHandle{tabCtx: tabCtx, cancel: cancel}, nil
}

// Close terminates the browser process. Safe to call more than once.
func (b *Browser) Close() error {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

type chromeHandle struct {
	tabCtx context.Context
	cancel context.CancelFunc
}

// runContext derives a context that carries the tab but is cancelled with ctx
func (h *chromeHandle) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(h.tabCtx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (h *chromeHandle) Goto(ctx context.Context, rawURL string, opts GotoOptions) error {
	runCtx, cancel := h.runContext(ctx)
	defer cancel()
	if opts.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, opts.Timeout)
		defer timeoutCancel()
	}

	loaded := make(chan struct{})
	var once sync.Once
	chromedp.ListenTarget(runCtx, func(ev any) {
		switch ev.(type) {
		case *page.EventDomContentEventFired:
			if opts.WaitUntil != WaitLoad {
				once.Do(func() { close(loaded) })
			}
		case *page.EventLoadEventFired:
			once.Do(func() { close(loaded) })
		}
	})

	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var res page.NavigateReturns
		if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(rawURL), &res); err != nil {
			return err
		}
		if res.ErrorText != "" {
			return fmt.Errorf("page load error %s", res.ErrorText)
		}
		return nil
	}))
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return fmt.Errorf("navigate %s: %w", rawURL, ctxErr)
		}
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}

	select {
	case <-loaded:
		return nil
	case <-runCtx.Done():
		return fmt.Errorf("navigate %s: waiting for %s: %w", rawURL, waitName(opts.WaitUntil), runCtx.Err())
	}
}

func (h *chromeHandle) Evaluate(ctx context.Context, script string, res any) error {
	runCtx, cancel := h.runContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(script, res))
}

func (h *chromeHandle) LinkHrefs(ctx context.Context) ([]string, error) {
	runCtx, cancel := h.runContext(ctx)
	defer cancel()

	var html, baseURI string
	err := chromedp.Run(runCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(BaseURIScript, &baseURI),
	)
	if err != nil {
		return nil, err
	}
	return ExtractHrefs(html, baseURI)
}

func (h *chromeHandle) Close() error {
	h.cancel()
	return nil
}

// ExtractHrefs parses an HTML document and resolves every a[href] against baseURI
func ExtractHrefs(html, baseURI string) ([]string, error) {
	base, err := url.Parse(baseURI)
	if err != nil {
		return nil, fmt.Errorf("invalid document base URI '%s': %w", baseURI, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if abs, ok := parse.ResolveHref(base, href); ok {
			hrefs = append(hrefs, abs)
		}
	})
	return hrefs, nil
}

func waitName(w WaitCondition) string {
	if w == "" {
		return string(WaitDOMContentLoaded)
	}
	return string(w)
}
