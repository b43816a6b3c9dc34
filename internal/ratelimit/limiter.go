// Package ratelimit throttles API requests with a sliding window counter
// held in Redis. The window count for an identifier is the weighted sum of
// the previous and current fixed windows, which smooths bursts at window
// edges without keeping a timestamp log per client.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimited signals that the window for an identifier is exhausted. It is
// distinct from auth failures so clients back off instead of
// re-authenticating.
var ErrLimited = errors.New("too many requests")

// Decision reports the outcome of a single rate-limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Checker is the decision surface the request pipeline depends on.
type Checker interface {
	Check(ctx context.Context, identifier string) Decision
}

// slidingWindow computes the weighted count across the previous and current
// fixed windows and increments atomically while under the limit. Returns the
// remaining budget, or -1 when the request must be rejected.
var slidingWindow = redis.NewScript(`
local current = KEYS[1]
local previous = KEYS[2]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local elapsed = tonumber(ARGV[3])

local cur = tonumber(redis.call("GET", current) or "0")
local prev = tonumber(redis.call("GET", previous) or "0")
local weighted = prev * (window - elapsed) / window + cur
if weighted >= limit then
  return -1
end
local count = redis.call("INCR", current)
if count == 1 then
  redis.call("PEXPIRE", current, window * 2)
end
return limit - math.floor(weighted) - 1
`)

// Limiter is a sliding-window throttle backed by a shared Redis counter
// store. A Limiter with no client is permanently disabled and allows
// everything.
type Limiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// New wraps an existing Redis scripting client.
func New(rdb redis.Scripter, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "parley:rl",
		now:    time.Now,
	}
}

// NewFromURL connects to the counter store named by a redis:// URL. An empty
// URL yields a disabled limiter: throttling is best effort and the product
// stays available without it.
func NewFromURL(rawURL string, limit int, window time.Duration) (*Limiter, error) {
	if rawURL == "" {
		log.Printf("rate limiting disabled: REDIS_URL is not set")
		return New(nil, limit, window), nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), limit, window), nil
}

// SetClock overrides the limiter's time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Check consumes one slot for the identifier. It never returns an error:
// when the store is unreachable the limiter fails open, logs, and the
// request proceeds.
func (l *Limiter) Check(ctx context.Context, identifier string) Decision {
	now := l.now()
	windowMs := l.window.Milliseconds()
	bucket := now.UnixMilli() / windowMs
	reset := time.UnixMilli((bucket + 1) * windowMs)

	open := Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, Reset: reset}
	if l.rdb == nil {
		return open
	}

	currentKey := fmt.Sprintf("%s:%s:%d", l.prefix, identifier, bucket)
	previousKey := fmt.Sprintf("%s:%s:%d", l.prefix, identifier, bucket-1)
	elapsed := now.UnixMilli() % windowMs

	res, err := slidingWindow.Run(ctx, l.rdb,
		[]string{currentKey, previousKey},
		l.limit, windowMs, elapsed,
	).Result()
	if err != nil {
		log.Printf("rate limit check failed, allowing request: %v", err)
		return open
	}

	remaining, err := toInt(res)
	if err != nil {
		log.Printf("rate limit script returned %v, allowing request: %v", res, err)
		return open
	}
	if remaining < 0 {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, Reset: reset}
	}
	return Decision{Allowed: true, Limit: l.limit, Remaining: remaining, Reset: reset}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, err
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unexpected reply type %T", v)
	}
}
