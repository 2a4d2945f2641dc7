package ratelimit

import (
	"net/http"
	"strings"
)

// healthCheck is never throttled so load balancers and uptime monitors can poll the proxy freely.
var healthCheck = EndpointConfig{Path: "/health", Method: http.MethodGet}

// MatchEndpoint picks the limit for a proxy route. An exact path wins, otherwise the longest
// configured path ending in "/" that prefixes the request applies. nil means the route takes
// the default limit.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == healthCheck.Path && method == healthCheck.Method {
		cfg := healthCheck
		return &cfg
	}

	var best *EndpointConfig
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg
		}
		if !strings.HasSuffix(cfg.Path, "/") || !strings.HasPrefix(path, cfg.Path) {
			continue
		}
		if best == nil || len(cfg.Path) > len(best.Path) {
			best = cfg
		}
	}
	return best
}
