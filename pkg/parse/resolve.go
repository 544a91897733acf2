package parse

import (
	"net/url"
	"strings"
)

// skippedHrefPrefixes are hrefs that never lead to another document
var skippedHrefPrefixes = []string{"javascript:", "mailto:", "tel:", "data:"}

// ResolveHref resolves an anchor href against the document base URL, the way a browser
// computes HTMLAnchorElement.href. Returns false for empty, fragment-only, non-document
// or unparseable hrefs.
func ResolveHref(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range skippedHrefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	var resolved *url.URL
	var err error
	if base != nil {
		resolved, err = base.Parse(href)
	} else {
		resolved, err = url.Parse(href)
	}
	if err != nil || !resolved.IsAbs() {
		return "", false
	}
	return resolved.String(), true
}
