package extract

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a cited URL. It returns "" for anything that
// is not an absolute http(s) URL.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	// Markdown citations often leave trailing punctuation behind
	raw = strings.TrimRight(raw, ".,;:)]>\"'")
	raw = strings.TrimLeft(raw, "<([\"'")

	if raw == "" || strings.HasPrefix(raw, "#") {
		return ""
	}

	// Skip javascript: and mailto: links
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	return parsed.String()
}

// dedupeURLs normalizes and removes duplicate URLs, keeping first occurrence
func dedupeURLs(urls []string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, raw := range urls {
		u := NormalizeURL(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}

	return unique
}
