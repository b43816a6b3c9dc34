package httpapi

import (
	"log"
	"net/http"
	"strings"

	"github.com/mkarlsen/parley/internal/auth"
)

// securityHeaders hardens every response and gives first-time visitors a
// session token on their first /api touch. Token minting here fails open: a
// signing problem is logged and the request continues without a cookie, the
// route's own validation decides what happens next.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "origin-when-cross-origin")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("X-DNS-Prefetch-Control", "off")

		if strings.HasPrefix(r.URL.Path, "/api") && !hasSessionCookie(r) {
			token, err := s.codec.Issue()
			if err != nil {
				log.Printf("httpapi: minting session token: %v", err)
			} else {
				s.setSessionToken(w, r, token)
				// The handler below must see the token too, not just
				// the next request.
				r.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
				if s.metrics != nil {
					s.metrics.TokensIssued.WithLabelValues("first_touch").Inc()
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func hasSessionCookie(r *http.Request) bool {
	_, err := r.Cookie(auth.SessionCookie)
	return err == nil
}
