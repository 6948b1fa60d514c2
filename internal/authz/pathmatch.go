package authz

import "strings"

// minPrefixSegments is the number of non-empty segments a pattern needs
// before it also covers nested routes. "/dashboard/auta" covers
// "/dashboard/auta/42"; "/dashboard" covers only itself.
const minPrefixSegments = 2

// Normalize strips the query string and a single trailing slash. The root
// path is left alone.
func Normalize(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

// IsAllowed reports whether requestedPath is covered by allowedPages.
func IsAllowed(requestedPath string, allowedPages []string) bool {
	for _, p := range allowedPages {
		if p == WildcardPage {
			return true
		}
	}

	path := Normalize(requestedPath)
	for _, raw := range allowedPages {
		pattern := Normalize(raw)
		if pattern == "" {
			continue
		}
		if path == pattern {
			return true
		}
		if segmentCount(pattern) >= minPrefixSegments && strings.HasPrefix(path, pattern+"/") {
			return true
		}
	}
	return false
}

func segmentCount(pattern string) int {
	n := 0
	for _, seg := range strings.Split(pattern, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}
