package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/shared/metrics"
	"triage-agent/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup   = "DEFAULT"
	defaultRateLimitMessage = "Too many requests, please try again later."

	// Buckets idle long enough to refill are dropped on the next sweep.
	sweepInterval = time.Minute
)

// RateLimitRule is a token bucket: Burst tokens, refilled at Rate per second.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RuleFromWindow turns "max requests per window" into a bucket that allows
// max back-to-back requests and fully refills over one window.
func RuleFromWindow(max int, window time.Duration) RateLimitRule {
	if max <= 0 || window <= 0 {
		return RateLimitRule{}
	}
	return RateLimitRule{Rate: float64(max) / window.Seconds(), Burst: max}
}

func (r RateLimitRule) disabled() bool {
	return r.Rate <= 0 || r.Burst <= 0
}

func (r RateLimitRule) refillTime() time.Duration {
	return time.Duration(float64(r.Burst) / r.Rate * float64(time.Second))
}

// RateLimitConfig selects a rule per request. Requests whose group has no
// rule are not limited.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
	Message      string
}

// RateLimiter keeps one bucket per key. Safe for concurrent use.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
	idle   time.Duration
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: map[string]*bucket{}, now: now}
}

// RateLimit rejects requests over their group's rule with a 429 envelope.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}
	fallback := cfg.DefaultGroup
	if fallback == "" {
		fallback = defaultRateLimitGroup
	}
	message := cfg.Message
	if message == "" {
		message = defaultRateLimitMessage
	}

	return func(c *gin.Context) {
		group := fallback
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, limited := cfg.Rules[group]
		if !limited {
			c.Next()
			return
		}

		ok, wait := limiter.Allow(c.ClientIP()+"|"+group, rule)
		if ok {
			c.Next()
			return
		}
		metrics.IncRateLimited(group)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", message, gin.H{
			"group":          group,
			"retry_after_ms": wait.Milliseconds(),
		})
	}
}

// Allow takes a token from key's bucket. When none is left it reports how
// long until the next one.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.disabled() {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rule.Burst), seen: now}
		l.buckets[key] = b
	}
	b.idle = rule.refillTime()
	if dt := now.Sub(b.seen); dt > 0 {
		b.tokens = min(float64(rule.Burst), b.tokens+dt.Seconds()*rule.Rate)
		b.seen = now
	}

	if b.tokens < 1 {
		ms := math.Ceil((1 - b.tokens) / rule.Rate * 1000)
		return false, time.Duration(ms) * time.Millisecond
	}
	b.tokens--
	return true, 0
}

// Len reports how many buckets are tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.seen) >= b.idle {
			delete(l.buckets, key)
		}
	}
}

func retryAfterSeconds(wait time.Duration) int {
	if s := int(math.Ceil(wait.Seconds())); s > 0 {
		return s
	}
	return 1
}
