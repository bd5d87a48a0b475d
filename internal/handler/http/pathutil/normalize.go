package pathutil

import (
	"regexp"
	"strings"
)

type pathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns lists the dynamic routes, most specific first.
var pathPatterns = []*pathPattern{
	{Pattern: regexp.MustCompile(`^/channels/\d+/check$`), Template: "/channels/:id/check"},
	{Pattern: regexp.MustCompile(`^/channels/\d+$`), Template: "/channels/:id"},
}

// NormalizePath maps dynamic URL paths to their route template so metric
// labels stay bounded.
//
//	NormalizePath("/channels/123")        // "/channels/:id"
//	NormalizePath("/channels/123/check")  // "/channels/:id/check"
//	NormalizePath("/channels/123/?x=1")   // "/channels/:id"
//	NormalizePath("/health")              // "/health"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}
	return path
}
