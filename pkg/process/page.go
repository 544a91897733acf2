package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/parse"
	"github.com/Sriram-PR/product-scraper/pkg/render"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// PageResult is what one rendered page yields
type PageResult struct {
	Products []string // Product links in document order, duplicates kept
	Children []string // Unseen same-site links, deduplicated within the page
	Scrolls  int      // Scroll-to-bottom calls made while draining
	Links    int      // Total resolved anchors on the page
}

// PageProcessor renders a page, drains lazily loaded content and classifies its links
type PageProcessor struct {
	classifier *Classifier
	cfg        config.CrawlConfig
	log        *logrus.Entry
}

// NewPageProcessor creates a processor using the navigation and drain settings from cfg
func NewPageProcessor(cfg config.CrawlConfig, classifier *Classifier, logger *logrus.Entry) *PageProcessor {
	return &PageProcessor{
		classifier: classifier,
		cfg:        cfg,
		log:        logger,
	}
}

// Process loads pageURL in h and returns its products and child links.
// Errors wrap utils.ErrNavigationTimeout, utils.ErrNavigation or utils.ErrExtraction.
func (p *PageProcessor) Process(ctx context.Context, h render.Handle, pageURL string, scope Scope) (*PageResult, error) {
	pageLog := p.log.WithField("url", pageURL)

	err := h.Goto(ctx, pageURL, render.GotoOptions{
		WaitUntil: render.WaitDOMContentLoaded,
		Timeout:   p.cfg.NavigationTimeout,
	})
	if err != nil {
		// A deadline from our own navigation timeout is a timeout; an outer deadline is not
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %v: %w", utils.ErrNavigationTimeout, p.cfg.NavigationTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", utils.ErrNavigation, err)
	}

	scrolls, err := p.drain(ctx, h, pageLog)
	if err != nil {
		return nil, fmt.Errorf("%w: draining %s: %w", utils.ErrExtraction, pageURL, err)
	}

	hrefs, err := h.LinkHrefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading links of %s: %w", utils.ErrExtraction, pageURL, err)
	}

	result := &PageResult{Scrolls: scrolls, Links: len(hrefs)}
	queued := make(map[string]struct{})
	for _, href := range hrefs {
		cat := p.classifier.Classify(ctx, href, scope)
		if cat.IsProduct() {
			result.Products = append(result.Products, href)
		}
		if cat.IsNavigable() {
			key := parse.NormalizeString(href)
			if _, dup := queued[key]; dup {
				continue
			}
			queued[key] = struct{}{}
			result.Children = append(result.Children, href)
		}
	}

	pageLog.Debugf("Page yielded %d links: %d products, %d children after %d scrolls",
		len(hrefs), len(result.Products), len(result.Children), scrolls)
	return result, nil
}

// drain scrolls to the bottom until the document height stops growing.
// Hitting the iteration or time cap is logged and treated as done.
func (p *PageProcessor) drain(ctx context.Context, h render.Handle, pageLog *logrus.Entry) (int, error) {
	start := time.Now()

	height, err := p.readHeight(ctx, h)
	if err != nil {
		return 0, err
	}

	for scrolls := 0; ; {
		if p.cfg.MaxScrollIterations > 0 && scrolls >= p.cfg.MaxScrollIterations {
			pageLog.Warnf("Scroll drain stopped after %d iterations, height still growing (%d)", scrolls, height)
			return scrolls, nil
		}
		if p.cfg.MaxScrollDuration > 0 && time.Since(start) >= p.cfg.MaxScrollDuration {
			pageLog.Warnf("Scroll drain stopped after %v, height still growing (%d)", time.Since(start).Truncate(time.Millisecond), height)
			return scrolls, nil
		}

		if err := h.Evaluate(ctx, render.ScrollToBottomScript, nil); err != nil {
			return scrolls, err
		}
		scrolls++

		if err := sleepCtx(ctx, p.cfg.ScrollSettleDelay); err != nil {
			return scrolls, err
		}

		next, err := p.readHeight(ctx, h)
		if err != nil {
			return scrolls, err
		}
		if next <= height {
			return scrolls, nil
		}
		height = next
	}
}

func (p *PageProcessor) readHeight(ctx context.Context, h render.Handle) (int64, error) {
	var height int64
	if err := h.Evaluate(ctx, render.ScrollHeightScript, &height); err != nil {
		return 0, err
	}
	return height, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
