package process

import (
	"context"
	"net/url"
	"strings"

	"github.com/Sriram-PR/product-scraper/pkg/models"
)

// Scope is the crawl session a link is classified against
type Scope interface {
	// Domain is the session's hostname; only https links on exactly this host are navigable
	Domain() string
	// Seen reports whether the session has already claimed url
	Seen(ctx context.Context, url string) bool
}

// Classifier decides whether a link is a product page, a same-site page worth following, both, or neither
type Classifier struct {
	productPatterns      []string
	excludedPathPatterns []string
}

// NewClassifier creates a classifier. Patterns are plain substrings, matched case-sensitively.
func NewClassifier(productPatterns, excludedPathPatterns []string) *Classifier {
	return &Classifier{
		productPatterns:      productPatterns,
		excludedPathPatterns: excludedPathPatterns,
	}
}

// Classify categorises an absolute URL for scope. Product and navigable are independent checks.
func (c *Classifier) Classify(ctx context.Context, rawURL string, scope Scope) models.Category {
	cat := models.CategoryIgnore
	if c.IsProduct(rawURL) {
		cat |= models.CategoryProduct
	}
	if c.isNavigable(ctx, rawURL, scope) {
		cat |= models.CategoryNavigable
	}
	return cat
}

// IsProduct reports whether any product pattern occurs anywhere in rawURL
func (c *Classifier) IsProduct(rawURL string) bool {
	for _, p := range c.productPatterns {
		if strings.Contains(rawURL, p) {
			return true
		}
	}
	return false
}

func (c *Classifier) isNavigable(ctx context.Context, rawURL string, scope Scope) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !IsSameOrigin(u, scope.Domain()) {
		return false
	}
	// Exclusions apply to the whole URL, so "/search" in a query or fragment also excludes it
	for _, p := range c.excludedPathPatterns {
		if strings.Contains(rawURL, p) {
			return false
		}
	}
	return !scope.Seen(ctx, rawURL)
}

// IsSameOrigin reports whether u is an https URL on exactly domain.
// Host comparison is case-insensitive and ignores the port.
func IsSameOrigin(u *url.URL, domain string) bool {
	if u.Scheme != "https" {
		return false
	}
	return u.Hostname() != "" && strings.EqualFold(u.Hostname(), domain)
}
