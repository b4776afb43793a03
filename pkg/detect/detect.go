// Package detect tells JSON API responses apart from HTML error pages.
package detect

import "strings"

// IsHTML reports whether text looks like an HTML document rather than a JSON payload.
// JSON bodies that happen to contain "<title" or "<body" are reported as HTML.
func IsHTML(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.HasPrefix(trimmed, "<!doctype"):
		return true
	case strings.HasPrefix(trimmed, "<html"):
		return true
	case strings.Contains(trimmed, "<title"):
		return true
	case strings.Contains(trimmed, "<body"):
		return true
	}
	return false
}
