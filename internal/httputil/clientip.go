// Package httputil holds request helpers shared by the logging,
// rate-limiting, and streaming layers.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the address a request originated from. RemoteAddr is
// authoritative unless trustProxy is set, in which case the proxy-reported
// headers take precedence. Set trustProxy only when every hop in front of
// the server strips client-supplied forwarding headers, otherwise rate
// limits and stream caps become spoofable.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := proxyReportedIP(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port.
		return r.RemoteAddr
	}
	return host
}

// proxyReportedIP returns the original client address as reported by a
// reverse proxy: the leftmost X-Forwarded-For entry, then X-Real-IP.
func proxyReportedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
