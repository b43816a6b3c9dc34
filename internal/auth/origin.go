package auth

import (
	"net"
	"net/url"
	"strings"
)

// CheckOrigin decides whether a request's declared origin is acceptable for
// the host it was sent to. In development any loopback origin is trusted so
// the app can be driven from a different local port. In production the
// origin hostname must match the request host exactly (ports and schemes
// ignored), with the referer as a fallback for clients that omit Origin.
func CheckOrigin(origin, host, referer string, production bool) bool {
	origin = strings.TrimSpace(origin)
	referer = strings.TrimSpace(referer)
	host = strings.TrimSpace(host)

	if !production {
		if isLoopback(urlHostname(origin)) || isLoopback(urlHostname(referer)) {
			return true
		}
	}

	if host == "" {
		return false
	}
	hostName := bareHostname(host)
	if hostName == "" {
		return false
	}

	if origin != "" && strings.EqualFold(urlHostname(origin), hostName) {
		return true
	}
	if referer != "" && strings.EqualFold(urlHostname(referer), hostName) {
		return true
	}
	return false
}

// urlHostname extracts the hostname from an Origin/Referer value.
func urlHostname(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return bareHostname(raw)
}

// bareHostname strips an optional port from a Host header value.
func bareHostname(hostport string) string {
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}

func isLoopback(hostname string) bool {
	switch strings.ToLower(hostname) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
