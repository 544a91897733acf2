package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// NormalizeURL standardizes a URL for visited-set keys
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https), removes trailing slashes from paths (unless root "/"), ensures empty path becomes "/", and removes fragments
// The query string is kept: listing pages are commonly distinguished only by it (?page=2)
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	// Work on a copy
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
		normalized.RawPath = ""
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = normalized.Path[:len(normalized.Path)-1]
		normalized.RawPath = ""
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""
	normalized.ForceQuery = false

	return normalized.String()
}

// NormalizeString parses rawURL and normalizes it; unparseable input is returned unchanged
// so that it still acts as a stable (if unnormalized) key
func NormalizeString(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return NormalizeURL(parsed)
}

// ParseSeed validates a seed URL: it must parse, use http or https, and carry a host.
// Errors wrap utils.ErrInvalidSeedURL.
func ParseSeed(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty URL", utils.ErrInvalidSeedURL)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", utils.ErrInvalidSeedURL, raw, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q: unsupported scheme %q", utils.ErrInvalidSeedURL, raw, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q: missing host", utils.ErrInvalidSeedURL, raw)
	}
	return parsed, nil
}
