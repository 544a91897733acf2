package parse

import (
	"errors"
	"net/url"
	"testing"

	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

func TestNormalizeURL_NilInput(t *testing.T) {
	result := NormalizeURL(nil)
	if result != "" {
		t.Errorf("NormalizeURL(nil) = %q, want empty string", result)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"UppercaseScheme", "HTTP://example.com/path", "http://example.com/path"},
		{"UppercaseHost", "https://SHOP.TEST/path", "https://shop.test/path"},
		{"PathCasePreserved", "HTTPS://Shop.TEST/Path", "https://shop.test/Path"},
		{"HTTPPort80Removed", "http://example.com:80/path", "http://example.com/path"},
		{"HTTPSPort443Removed", "https://example.com:443/path", "https://example.com/path"},
		{"NonDefaultPortKept", "https://example.com:8443/path", "https://example.com:8443/path"},
		{"MismatchedDefaultPortKept", "https://example.com:80/path", "https://example.com:80/path"},
		{"EmptyPathBecomesRoot", "https://shop.test", "https://shop.test/"},
		{"RootUnchanged", "https://shop.test/", "https://shop.test/"},
		{"TrailingSlashRemoved", "https://shop.test/category/", "https://shop.test/category"},
		{"FragmentRemoved", "https://shop.test/page#section", "https://shop.test/page"},
		{"RootFragmentRemoved", "https://shop.test/#top", "https://shop.test/"},
		{"QueryKept", "https://shop.test/list?page=2", "https://shop.test/list?page=2"},
		{"QueryKeptFragmentRemoved", "https://shop.test/list?page=2#grid", "https://shop.test/list?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.Parse(tt.input)
			if err != nil {
				t.Fatalf("url.Parse(%q) error: %v", tt.input, err)
			}
			result := NormalizeURL(parsed)
			if result != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_DoesNotModifyInput(t *testing.T) {
	original := "HTTPS://Shop.Test:443/path/?q=1#frag"
	parsed, _ := url.Parse(original)
	_ = NormalizeURL(parsed)
	if parsed.String() != "https://Shop.Test:443/path/?q=1#frag" {
		t.Errorf("NormalizeURL modified its input: %q", parsed.String())
	}
}

func TestNormalizeString(t *testing.T) {
	if got := NormalizeString("https://Shop.test/a/#x"); got != "https://shop.test/a" {
		t.Errorf("NormalizeString() = %q", got)
	}
	bad := "https://shop.test/%zz"
	if got := NormalizeString(bad); got != bad {
		t.Errorf("NormalizeString(unparseable) = %q, want input unchanged", got)
	}
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantHost string
		wantErr  bool
	}{
		{"HTTPS", "https://shop.test/", "shop.test", false},
		{"HTTP", "http://shop.test", "shop.test", false},
		{"Whitespace", "  https://shop.test/deals  ", "shop.test", false},
		{"PortKept", "https://shop.test:8443/", "shop.test", false},
		{"Fragment", "https://shop.test/deals#top", "shop.test", false},
		{"Empty", "", "", true},
		{"Blank", "   ", "", true},
		{"NoScheme", "shop.test", "", true},
		{"FTP", "ftp://shop.test/", "", true},
		{"NoHost", "https:///path", "", true},
		{"Garbage", "::::", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseSeed(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSeed(%q) expected error", tt.input)
				}
				if !errors.Is(err, utils.ErrInvalidSeedURL) {
					t.Errorf("ParseSeed(%q) error = %v, want ErrInvalidSeedURL", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSeed(%q) unexpected error: %v", tt.input, err)
			}
			if parsed.Hostname() != tt.wantHost {
				t.Errorf("ParseSeed(%q) host = %q, want %q", tt.input, parsed.Hostname(), tt.wantHost)
			}
		})
	}
}
