package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/communal/backend/internal/interfaces/http/dto"
)

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows qps requests per second per key with the given burst.
// Buckets idle for longer than idleTTL are dropped on the next Allow call.
func NewRateLimiter(qps float64, burst int, idleTTL time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = max(1, int(qps))
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(qps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.idleTTL {
			delete(rl.clients, k)
		}
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Burst returns the bucket size
func (rl *RateLimiter) Burst() int {
	return rl.burst
}

// RateLimit limits requests per client IP. It is mounted on job submission
// routes, where every accepted request occupies a worker.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
		c.Next()
	}
}
