package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	// SessionCookie carries the caller's session id between wizard steps
	SessionCookie = "hc_session"
	sessionKey    = "session_id"
)

// sessionMiddleware makes sure every caller has a session id, issuing a new
// cookie when the request carries none or a malformed one
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// rateLimiter keeps one token bucket per client IP. A bucket left idle for
// a whole window is full again, so it is dropped and recreated on demand.
type rateLimiter struct {
	mu       sync.Mutex
	limiters *gocache.Cache
	every    rate.Limit
	burst    int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limiters: gocache.New(window, window),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	var l *rate.Limiter
	if v, ok := r.limiters.Get(key); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(r.every, r.burst)
	}
	r.limiters.Set(key, l, gocache.DefaultExpiration)
	r.mu.Unlock()
	return l.Allow()
}

// rateLimitMiddleware allows limit requests per window for each client IP.
// A non-positive limit or window disables it.
func rateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newRateLimiter(limit, window)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
