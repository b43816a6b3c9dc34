package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the timestamps of a verified session token. The token is
// the entire session state: no server-side store backs it.
type Claims struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and verifies signed, time-limited session tokens for
// anonymous browser sessions.
type Codec struct {
	secret  []byte
	ttl     time.Duration
	renewal time.Duration
	now     func() time.Time
}

func NewCodec(secret string, ttl, renewal time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if renewal <= 0 || renewal >= ttl {
		renewal = time.Hour
	}
	return &Codec{
		secret:  []byte(secret),
		ttl:     ttl,
		renewal: renewal,
		now:     time.Now,
	}, nil
}

// SetClock overrides the codec's time source. Tests only.
func (c *Codec) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Issue returns a fresh HS256-signed token valid for the configured TTL.
func (c *Codec) Issue() (string, error) {
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. It fails closed: any decode, signature
// or clock problem yields ok=false and the caller treats the request as
// unauthenticated.
func (c *Codec) Verify(tokenString string) (Claims, bool) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, false
	}
	reg, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || reg.ExpiresAt == nil {
		return Claims{}, false
	}
	out := Claims{ExpiresAt: reg.ExpiresAt.Time}
	if reg.IssuedAt != nil {
		out.IssuedAt = reg.IssuedAt.Time
	}
	return out, true
}

// NeedsRenewal reports whether a still-valid token is close enough to expiry
// that the response should carry a fresh one.
func (c *Codec) NeedsRenewal(claims Claims) bool {
	return claims.ExpiresAt.Sub(c.now()) < c.renewal
}

// TTL returns the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}
