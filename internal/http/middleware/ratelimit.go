package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-estate-backend/internal/auth"
)

// Idle buckets are forgotten after this long; a returning client simply
// starts with a full bucket.
const (
	bucketIdleTTL       = 10 * time.Minute
	bucketSweepInterval = time.Minute
)

// keyFunc names the bucket a request draws from.
type keyFunc func(*gin.Context) string

// TokenVerifier checks a session token's signature and expiry without
// touching the store.
type TokenVerifier interface {
	Parse(raw string) (*auth.Claims, error)
}

// KeyByUserOrIP keys requests by user id and everything else by client IP.
// The limiter runs before route-level auth, so the user comes from a bearer
// token that tokens verifies; revocation is not consulted here. A nil
// tokens keys by IP unless an earlier middleware set the user.
func KeyByUserOrIP(tokens TokenVerifier) keyFunc {
	return func(c *gin.Context) string {
		if id := c.GetString(ctxKeyUserID); id != "" {
			return "user:" + id
		}
		if tokens != nil {
			if raw := auth.BearerToken(c.GetHeader("Authorization")); raw != "" {
				if claims, err := tokens.Parse(raw); err == nil {
					return "user:" + claims.UserID
				}
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimiter is a per-key token bucket limiter. It is process-local; run
// one per replica. Safe for concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	buckets *gocache.Cache
	skip    func(*gin.Context) bool
	now     func() time.Time
}

// NewRateLimiter allows rps requests per second per key with bursts of up
// to burst. burst <= 0 is treated as 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: gocache.New(bucketIdleTTL, bucketSweepInterval),
		now:     time.Now,
	}
}

// bucket returns the limiter for key, creating it on first use. Every hit
// pushes the key's expiry out again.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		rl.buckets.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	// Add loses to a concurrent creator; use whichever bucket won.
	if err := rl.buckets.Add(key, lim, gocache.DefaultExpiration); err != nil {
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// SkipPaths matches requests whose route pattern, or raw path when no route
// matched, is one of paths.
func SkipPaths(paths ...string) func(*gin.Context) bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return func(c *gin.Context) bool { return set[routeOf(c)] }
}

// Skip exempts matching requests from limiting.
func (rl *RateLimiter) Skip(fn func(*gin.Context) bool) *RateLimiter {
	rl.skip = fn
	return rl
}

// Handler enforces the limit. Rejected requests get 429 with the standard
// error envelope and a Retry-After telling the client when a token frees up.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.skip != nil && rl.skip(c) {
			c.Next()
			return
		}

		lim := rl.bucket(rl.keyFn(c))
		now := rl.now()
		res := lim.ReserveN(now, 1)
		wait := res.DelayFrom(now)
		if res.OK() && wait == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait, res.OK())))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success":    false,
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfterSeconds rounds a wait up to whole seconds, at least 1. A
// reservation that can never succeed (rps 0) reports a minute.
func retryAfterSeconds(wait time.Duration, ok bool) int {
	if !ok {
		return 60
	}
	if s := int(math.Ceil(wait.Seconds())); s > 1 {
		return s
	}
	return 1
}
