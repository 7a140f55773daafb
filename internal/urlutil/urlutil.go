// Package urlutil joins service base URLs with request paths.
package urlutil

import (
	"net/url"
	"strings"
)

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}

// BuildAbsolute builds an absolute URL from a base and a path, appending
// query when it is non-empty. Absolute paths are returned unchanged.
func BuildAbsolute(base, path string, query url.Values) string {
	var out string
	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		out = path
	case path == "":
		out = NormalizeBaseURL(base)
	case strings.HasPrefix(path, "/"):
		out = NormalizeBaseURL(base) + path
	default:
		out = NormalizeBaseURL(base) + "/" + path
	}
	if len(query) > 0 {
		out += "?" + query.Encode()
	}
	return out
}
