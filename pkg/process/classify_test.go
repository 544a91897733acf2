package process

import (
	"context"
	"net/url"
	"testing"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/models"
)

// fakeScope is a session with a fixed domain and a static seen set
type fakeScope struct {
	domain string
	seen   map[string]bool
}

func (s *fakeScope) Domain() string { return s.domain }

func (s *fakeScope) Seen(_ context.Context, u string) bool { return s.seen[u] }

func newTestClassifier() *Classifier {
	return NewClassifier(config.DefaultProductPatterns, config.DefaultExcludedPathPatterns)
}

func TestClassifier_Classify(t *testing.T) {
	scope := &fakeScope{
		domain: "shop.test",
		seen:   map[string]bool{"https://shop.test/visited": true},
	}

	tests := []struct {
		name string
		url  string
		want models.Category
	}{
		{"same-site product", "https://shop.test/dp/123", models.CategoryProduct | models.CategoryNavigable},
		{"search page is not navigable", "https://shop.test/search?q=x", models.CategoryIgnore},
		{"cross-domain product", "https://other.test/p/9", models.CategoryProduct},
		{"plain same-site page", "https://shop.test/category/men", models.CategoryNavigable},
		{"http scheme rejected", "http://shop.test/category/men", models.CategoryIgnore},
		{"http product still product", "http://shop.test/item/5", models.CategoryProduct},
		{"already visited", "https://shop.test/visited", models.CategoryIgnore},
		{"host case-insensitive", "https://SHOP.test/about", models.CategoryNavigable},
		{"lookalike host", "https://shop.test.evil.com/about", models.CategoryIgnore},
		{"subdomain is another origin", "https://m.shop.test/about", models.CategoryIgnore},
		{"explicit port same host", "https://shop.test:443/about", models.CategoryNavigable},
		{"pattern in query counts for product", "https://other.test/r?next=/product/1", models.CategoryProduct},
		{"pattern match is case-sensitive", "https://other.test/DP/1", models.CategoryIgnore},
		{"search in query", "https://shop.test/list?from=/search", models.CategoryIgnore},
		{"search in fragment", "https://shop.test/a#/search", models.CategoryIgnore},
		{"searchlight path segment", "https://shop.test/searchlight", models.CategoryIgnore},
		{"search without slash in query", "https://shop.test/list?q=search", models.CategoryNavigable},
		{"nested search path", "https://shop.test/en/search/shoes", models.CategoryIgnore},
		{"every default pattern: /itm/", "https://x.test/itm/1", models.CategoryProduct},
		{"every default pattern: /b/", "https://x.test/b/1", models.CategoryProduct},
		{"every default pattern: /ecommerce/product/", "https://x.test/ecommerce/product/1", models.CategoryProduct},
		{"every default pattern: /en-in/", "https://x.test/en-in/shoe", models.CategoryProduct},
		{"unparseable", "https://shop.test/%zz", models.CategoryIgnore},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), tt.url, scope)
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassifier_CustomPatterns(t *testing.T) {
	c := NewClassifier([]string{"/shop/"}, nil)
	scope := &fakeScope{domain: "a.test"}

	if got := c.Classify(context.Background(), "https://a.test/shop/1", scope); got != models.CategoryProduct|models.CategoryNavigable {
		t.Errorf("Classify() = %v, want product+navigable", got)
	}
	// No exclusions configured
	if got := c.Classify(context.Background(), "https://a.test/search", scope); got != models.CategoryNavigable {
		t.Errorf("Classify() = %v, want navigable", got)
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		raw    string
		domain string
		want   bool
	}{
		{"https://shop.test/", "shop.test", true},
		{"https://shop.test/", "SHOP.TEST", true},
		{"http://shop.test/", "shop.test", false},
		{"ftp://shop.test/", "shop.test", false},
		{"https:///path", "", false},
		{"https://shop.test:8443/", "shop.test", true},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatalf("url.Parse(%q) error = %v", tt.raw, err)
		}
		if got := IsSameOrigin(u, tt.domain); got != tt.want {
			t.Errorf("IsSameOrigin(%q, %q) = %v, want %v", tt.raw, tt.domain, got, tt.want)
		}
	}
}
