package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// NoSession is the identity suffix for requests that carry no session token.
const NoSession = "no-session"

// ClientIP resolves the caller's address: first X-Forwarded-For entry when a
// proxy is in front, else the direct connection address, else loopback.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "127.0.0.1"
}

// Identifier builds the composite throttle key from the caller's IP and
// session token, so separate sessions behind one NAT do not starve each
// other while a single session cannot dodge the limit by dropping its
// cookie.
func Identifier(r *http.Request, sessionToken string) string {
	if sessionToken == "" {
		sessionToken = NoSession
	}
	return ClientIP(r) + "-" + sessionToken
}
