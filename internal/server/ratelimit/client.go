package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientID identifies the caller for bucketing. Behind a proxy that sets X-Forwarded-For
// (RATE_LIMIT_TRUST_FORWARDED=true) the first forwarded address is used, otherwise the
// connection's remote IP.
func ClientID(r *http.Request) string {
	if getEnvBool("RATE_LIMIT_TRUST_FORWARDED", false) {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
