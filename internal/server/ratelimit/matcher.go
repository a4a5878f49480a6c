package ratelimit

import (
	"net/http"
	"strings"
)

// MatchEndpoint returns the limit that applies to a request, or nil when the
// default limit applies. Health checks match an unlimited config. An exact
// path wins; otherwise the longest config path ending in "/" that prefixes
// path is used.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if isHealthCheck(path, method) {
		return &EndpointConfig{Path: path, Method: method}
	}

	var prefix *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			if prefix == nil || len(c.Path) > len(prefix.Path) {
				prefix = c
			}
		}
	}
	return prefix
}

func isHealthCheck(path, method string) bool {
	return path == "/health" && (method == http.MethodGet || method == http.MethodHead)
}
