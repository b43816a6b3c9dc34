package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mkarlsen/parley/internal/ratelimit"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session-token"

// ErrUnauthorized covers both origin-check and token-verification failures.
// Request processing stops before any provider call when it is returned.
var ErrUnauthorized = errors.New("unauthorized")

// Outcome is the per-request result of the validation pipeline. When
// RenewedToken is non-empty the route must attach it to the response as both
// a Set-Cookie and an Authorization header.
type Outcome struct {
	RenewedToken string
	RateLimit    ratelimit.Decision
}

// Pipeline gates every API route: origin check, token verification with
// near-expiry renewal, then the rate-limit check keyed by the resolved
// token.
type Pipeline struct {
	codec      *Codec
	limiter    ratelimit.Checker
	production bool
}

func NewPipeline(codec *Codec, limiter ratelimit.Checker, production bool) *Pipeline {
	return &Pipeline{codec: codec, limiter: limiter, production: production}
}

// Validate runs the three checks. It returns ErrUnauthorized on origin or
// token failure and ratelimit.ErrLimited when the window is exhausted; the
// Outcome carries rate-limit state in both cases so the route can set
// X-RateLimit headers.
func (p *Pipeline) Validate(r *http.Request) (Outcome, error) {
	if !CheckOrigin(r.Header.Get("Origin"), r.Host, r.Header.Get("Referer"), p.production) {
		return Outcome{}, ErrUnauthorized
	}

	token := BearerToken(r)
	if token == "" {
		return Outcome{}, ErrUnauthorized
	}
	claims, ok := p.codec.Verify(token)
	if !ok {
		// Hard expiry and bad signatures both reject; renewal only
		// smooths the tail end of a still-valid token.
		return Outcome{}, ErrUnauthorized
	}

	var out Outcome
	if p.codec.NeedsRenewal(claims) {
		fresh, err := p.codec.Issue()
		if err == nil {
			out.RenewedToken = fresh
		}
	}

	if p.limiter != nil {
		out.RateLimit = p.limiter.Check(r.Context(), ratelimit.Identifier(r, token))
		if !out.RateLimit.Allowed {
			return out, ratelimit.ErrLimited
		}
	}
	return out, nil
}

// BearerToken resolves the session token from the Authorization header,
// falling back to the session cookie. The header wins when both are present.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")); token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
