package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/interfaces/http/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Quota is the outcome of counting one request against a key.
type Quota struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetIn is what is left of the key's current window
	ResetIn time.Duration
}

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Take(ctx context.Context, key string) (Quota, error)
}

type window struct {
	count   int
	started time.Time
}

// MemoryLimiter keeps its windows in process. Replicas do not share counts.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	done    chan struct{}
	stop    sync.Once
}

// NewMemoryLimiter allows limit requests per key every period. Stop ends
// the goroutine that drops stale windows.
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.sweep(2 * period)
	return l
}

func (l *MemoryLimiter) Take(_ context.Context, key string) (Quota, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.started) >= l.period {
		w = &window{started: now}
		l.windows[key] = w
	}
	q := Quota{Limit: l.limit, ResetIn: l.period - now.Sub(w.started)}
	if w.count >= l.limit {
		return q, nil
	}
	w.count++
	q.Allowed = true
	q.Remaining = l.limit - w.count
	return q, nil
}

func (l *MemoryLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.Sub(w.started) >= l.period {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop is safe to call more than once.
func (l *MemoryLimiter) Stop() {
	l.stop.Do(func() { close(l.done) })
}

const rateLimitKeyPrefix = "grocery:ratelimit:"

// the first hit of a window sets its expiry, so the key disappears with it
var takeScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter shares its windows between every replica using the same Redis.
type RedisLimiter struct {
	client *redis.Client
	scope  string
	limit  int
	period time.Duration
}

// NewRedisLimiter counts under grocery:ratelimit:<scope>:<key>, so limiters
// with different scopes never share a window.
func NewRedisLimiter(client *redis.Client, scope string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, scope: scope, limit: limit, period: period}
}

func (l *RedisLimiter) Take(ctx context.Context, key string) (Quota, error) {
	res, err := takeScript.Run(ctx, l.client,
		[]string{rateLimitKeyPrefix + l.scope + ":" + key}, l.period.Milliseconds()).Int64Slice()
	if err != nil {
		return Quota{}, fmt.Errorf("count request: %w", err)
	}
	if len(res) != 2 {
		return Quota{}, fmt.Errorf("count request: unexpected reply %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.period
	}
	return Quota{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		ResetIn:   ttl,
	}, nil
}

// RateLimit limits every request per client IP.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return limitBy(limiter, log, func(c *gin.Context) string { return c.ClientIP() },
		dto.ErrCodeRateLimited, "Too many requests. Please try again later.")
}

// AuthRateLimit limits the credential routes (token, register) per client IP.
func AuthRateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return limitBy(limiter, log, func(c *gin.Context) string { return "auth:" + c.ClientIP() },
		"AUTH_RATE_LIMIT_EXCEEDED", "Too many authentication attempts. Please try again later.")
}

// A limiter that cannot count lets the request through.
func limitBy(limiter Limiter, log *zap.Logger, keyOf func(*gin.Context) string, code, message string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		q, err := limiter.Take(c.Request.Context(), keyOf(c))
		if err != nil {
			log.Warn("Rate limiter unavailable",
				zap.Error(err),
				zap.String("request_id", c.GetString(logger.GinRequestIDKey)),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(q.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(q.ResetIn)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(code, message, c.GetString(logger.GinRequestIDKey)))
			return
		}
		c.Next()
	}
}

// whole seconds, rounded up and never below one
func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}
