package auth

import "strings"

// PublicEndpoints are reachable without a token: orchestration probes,
// Prometheus scraping and the login endpoint itself.
var PublicEndpoints = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/auth/token",
}

// IsPublicEndpoint reports whether path is one of PublicEndpoints. Exact
// match, a trailing slash and a query string are accepted; sub-paths are
// not.
//
//	IsPublicEndpoint("/health")          // true
//	IsPublicEndpoint("/health?x=1")      // true
//	IsPublicEndpoint("/health/detail")   // false
//	IsPublicEndpoint("/channels")        // false
func IsPublicEndpoint(path string) bool {
	for _, endpoint := range PublicEndpoints {
		if path == endpoint || path == endpoint+"/" || strings.HasPrefix(path, endpoint+"?") {
			return true
		}
	}
	return false
}
