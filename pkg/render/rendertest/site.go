// Package rendertest provides an in-memory site graph that satisfies render.HandleFactory
package rendertest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Sriram-PR/product-scraper/pkg/parse"
	"github.com/Sriram-PR/product-scraper/pkg/render"
)

// Page describes how one URL behaves when rendered
type Page struct {
	Heights  []int64       // Successive scroll heights; the last value repeats once exhausted
	Links    []string      // Raw hrefs, resolved against the page URL
	NavErr   error         // Returned from Goto when set
	LinksErr error         // Returned from LinkHrefs when set
	Delay    time.Duration // Simulated load time
}

// Site is a fake browser over a fixed set of pages.
// Unknown URLs fail navigation like an unresolvable host.
type Site struct {
	NewHandleErr error

	mu          sync.Mutex
	pages       map[string]*Page
	navigations []string
	scrolls     map[string]int
	heightReads map[string]int
	opened      int
	closed      int
	active      int
	peakActive  int
}

// NewSite creates a site from url -> page
func NewSite(pages map[string]*Page) *Site {
	if pages == nil {
		pages = make(map[string]*Page)
	}
	return &Site{
		pages:       pages,
		scrolls:     make(map[string]int),
		heightReads: make(map[string]int),
	}
}

// AddPage registers or replaces a page
func (s *Site) AddPage(rawURL string, p *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[rawURL] = p
}

// NewHandle implements render.HandleFactory
func (s *Site) NewHandle(ctx context.Context) (render.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NewHandleErr != nil {
		return nil, s.NewHandleErr
	}
	s.opened++
	return &handle{site: s}, nil
}

// Navigations returns every URL passed to Goto, in call order
func (s *Site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// NavigationCount returns how many times url was navigated to
func (s *Site) NavigationCount(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.navigations {
		if u == rawURL {
			n++
		}
	}
	return n
}

// Scrolls returns the number of scroll-to-bottom calls made on url
func (s *Site) Scrolls(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolls[rawURL]
}

// HeightReads returns the number of scroll height reads made on url
func (s *Site) HeightReads(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heightReads[rawURL]
}

// Handles returns how many handles were opened and closed
func (s *Site) Handles() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

// PeakConcurrentNavigations returns the highest number of Goto calls in progress at once
func (s *Site) PeakConcurrentNavigations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakActive
}

type handle struct {
	site    *Site
	current string
	page    *Page
	scrolls int // Scrolls since the last navigation
	closed  bool
}

func (h *handle) Goto(ctx context.Context, rawURL string, opts render.GotoOptions) error {
	s := h.site
	s.mu.Lock()
	s.navigations = append(s.navigations, rawURL)
	p := s.pages[rawURL]
	s.active++
	if s.active > s.peakActive {
		s.peakActive = s.active
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	h.current, h.page, h.scrolls = rawURL, nil, 0

	if p == nil {
		return fmt.Errorf("navigate %s: page load error net::ERR_NAME_NOT_RESOLVED", rawURL)
	}

	if p.Delay > 0 {
		wait := p.Delay
		timedOut := opts.Timeout > 0 && opts.Timeout < wait
		if timedOut {
			wait = opts.Timeout
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("navigate %s: %w", rawURL, ctx.Err())
		case <-timer.C:
		}
		if timedOut {
			return fmt.Errorf("navigate %s: waiting for %s: %w", rawURL, opts.WaitUntil, context.DeadlineExceeded)
		}
	}

	if p.NavErr != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, p.NavErr)
	}
	h.page = p
	return nil
}

func (h *handle) Evaluate(ctx context.Context, script string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.page == nil {
		return errors.New("evaluate: no document loaded")
	}

	s := h.site
	switch script {
	case render.ScrollHeightScript:
		s.mu.Lock()
		s.heightReads[h.current]++
		s.mu.Unlock()
		return assignHeight(res, h.height())
	case render.ScrollToBottomScript:
		h.scrolls++
		s.mu.Lock()
		s.scrolls[h.current]++
		s.mu.Unlock()
		return nil
	case render.BaseURIScript:
		if sp, ok := res.(*string); ok {
			*sp = h.current
			return nil
		}
		return fmt.Errorf("evaluate: unsupported result type %T for base URI", res)
	default:
		return fmt.Errorf("evaluate: unsupported script %q", script)
	}
}

func (h *handle) height() int64 {
	if len(h.page.Heights) == 0 {
		return 0
	}
	if h.scrolls < len(h.page.Heights) {
		return h.page.Heights[h.scrolls]
	}
	return h.page.Heights[len(h.page.Heights)-1]
}

func assignHeight(res any, v int64) error {
	switch r := res.(type) {
	case nil:
		return nil
	case *int64:
		*r = v
	case *int:
		*r = int(v)
	case *float64:
		*r = float64(v)
	default:
		return fmt.Errorf("evaluate: unsupported result type %T for scroll height", res)
	}
	return nil
}

func (h *handle) LinkHrefs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h.page == nil {
		return nil, errors.New("link hrefs: no document loaded")
	}
	if h.page.LinksErr != nil {
		return nil, h.page.LinksErr
	}

	base, err := url.Parse(h.current)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, href := range h.page.Links {
		if abs, ok := parse.ResolveHref(base, href); ok {
			out = append(out, abs)
		}
	}
	return out, nil
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.site.mu.Lock()
	h.site.closed++
	h.site.mu.Unlock()
	return nil
}
