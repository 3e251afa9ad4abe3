package ratelimit

import (
	"strings"
)

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
//
// A config path ending with "/" matches by prefix (e.g. "/users/" matches
// "/users/{id}"). A "*" segment matches any single path segment, so
// "/interviews/*/exchange" matches "/interviews/42/exchange".
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Special case: health check endpoint is unlimited
	if path == "/health" && method == "GET" {
		return &EndpointConfig{Path: "/health", Method: method}
	}

	// Exact and wildcard matches first
	for i := range configs {
		config := &configs[i]
		if config.Method == method && segmentsMatch(config.Path, path) {
			return config
		}
	}

	// Then prefix matches (for paths ending with "/")
	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") {
			if strings.HasPrefix(path, config.Path) {
				return config
			}
		}
	}

	return nil
}

func segmentsMatch(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if ps[i] != "*" && ps[i] != xs[i] {
			return false
		}
	}
	return true
}
