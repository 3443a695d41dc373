package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// LoginLimiter throttles login attempts per IP+username pair using a
// sliding window. It complements the per-account lockout in Service:
// the limiter stops online guessing before credentials are even checked.
type LoginLimiter struct {
	mu              sync.RWMutex
	attempts        map[string]*loginAttempts
	maxAttempts     int
	window          time.Duration
	lockoutDuration time.Duration
}

type loginAttempts struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

// NewLoginLimiter creates a limiter. Zero values fall back to 5 attempts
// per 15 minutes with a 30 minute lockout.
func NewLoginLimiter(maxAttempts int, window, lockoutDuration time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockoutDuration <= 0 {
		lockoutDuration = 30 * time.Minute
	}

	return &LoginLimiter{
		attempts:        make(map[string]*loginAttempts),
		maxAttempts:     maxAttempts,
		window:          window,
		lockoutDuration: lockoutDuration,
	}
}

func limiterKey(ip, username string) string {
	return ip + ":" + username
}

// Allow reports whether a login attempt may proceed. When denied,
// retryAfter says how long the caller is locked out.
func (rl *LoginLimiter) Allow(ip, username string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.RLock()
	record, exists := rl.attempts[limiterKey(ip, username)]
	rl.mu.RUnlock()

	if !exists {
		return true, 0
	}
	if !record.lockedUntil.IsZero() && now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	if now.Sub(record.windowStart) > rl.window {
		return true, 0
	}
	if record.count < rl.maxAttempts {
		return true, 0
	}
	return false, rl.lockoutDuration
}

// RecordFailure counts a failed attempt, locking the pair out once the
// window fills up.
func (rl *LoginLimiter) RecordFailure(ip, username string) {
	key := limiterKey(ip, username)
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists {
		record = &loginAttempts{windowStart: now}
		rl.attempts[key] = record
	}

	if now.Sub(record.windowStart) > rl.window {
		record.count = 0
		record.windowStart = now
		record.lockedUntil = time.Time{}
	}

	record.count++
	if record.count >= rl.maxAttempts {
		record.lockedUntil = now.Add(rl.lockoutDuration)
	}

	// No background sweeper; prune opportunistically once the map grows.
	if len(rl.attempts) > 4096 {
		rl.prune(now)
	}
}

// prune drops records whose window and lockout have both lapsed. Caller
// must hold the write lock.
func (rl *LoginLimiter) prune(now time.Time) {
	for key, record := range rl.attempts {
		windowLapsed := now.Sub(record.windowStart) > rl.window
		lockoutLapsed := record.lockedUntil.IsZero() || now.After(record.lockedUntil)
		if windowLapsed && lockoutLapsed {
			delete(rl.attempts, key)
		}
	}
}

// RecordSuccess clears the failure record after a successful login.
func (rl *LoginLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, limiterKey(ip, username))
	rl.mu.Unlock()
}

// Middleware applies the limiter to a login route. Only POSTs with a
// username are checked.
func (rl *LoginLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		username := c.PostForm("username")
		if username == "" {
			c.Next()
			return
		}

		allowed, retryAfter := rl.Allow(c.ClientIP(), username)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many login attempts",
				"retry_after": retryAfter.String(),
			})
			return
		}

		c.Next()
	}
}
