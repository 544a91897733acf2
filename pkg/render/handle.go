// Package render drives a real browser for the crawler.
// The crawler only sees the Handle interface, so tests swap in the rendertest fake.
package render

import (
	"context"
	"time"
)

// WaitCondition is the page lifecycle event a navigation waits for
type WaitCondition string

const (
	WaitDOMContentLoaded WaitCondition = "domcontentloaded" // Document parsed, subresources may still load
	WaitLoad             WaitCondition = "load"
)

// Scripts evaluated by the page processor
const (
	ScrollHeightScript   = `document.body.scrollHeight`
	ScrollToBottomScript = `window.scrollTo(0, document.body.scrollHeight)`
	BaseURIScript        = `document.baseURI`
)

// GotoOptions controls a single navigation
type GotoOptions struct {
	WaitUntil WaitCondition
	Timeout   time.Duration // 0 = bounded only by ctx
}

// Handle is one browser tab. A Handle is used by one goroutine at a time.
type Handle interface {
	// Goto navigates and waits for opts.WaitUntil.
	// A navigation that outlives opts.Timeout fails with an error wrapping context.DeadlineExceeded.
	Goto(ctx context.Context, url string, opts GotoOptions) error

	// Evaluate runs script in the page and decodes the result into res. res may be nil.
	Evaluate(ctx context.Context, script string, res any) error

	// LinkHrefs returns every anchor href in the current document, resolved to absolute URLs
	LinkHrefs(ctx context.Context) ([]string, error)

	Close() error
}

// HandleFactory opens new tabs
type HandleFactory interface {
	NewHandle(ctx context.Context) (Handle, error)
}
