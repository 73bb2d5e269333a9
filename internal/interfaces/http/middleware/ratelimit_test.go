package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLimiters(t *testing.T) {
	limiters := map[string]func(t *testing.T, limit int) (Limiter, func(time.Duration)){
		"memory": func(t *testing.T, limit int) (Limiter, func(time.Duration)) {
			l := NewMemoryLimiter(limit, time.Minute)
			t.Cleanup(l.Stop)
			now := time.Now()
			l.now = func() time.Time { return now }
			return l, func(d time.Duration) { now = now.Add(d) }
		},
		"redis": func(t *testing.T, limit int) (Limiter, func(time.Duration)) {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisLimiter(client, "api", limit, time.Minute), mr.FastForward
		},
	}

	for name, build := range limiters {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("counts down to the limit", func(t *testing.T) {
				l, _ := build(t, 3)
				for want := 2; want >= 0; want-- {
					q, err := l.Take(ctx, "10.0.0.1")
					require.NoError(t, err)
					assert.True(t, q.Allowed)
					assert.Equal(t, 3, q.Limit)
					assert.Equal(t, want, q.Remaining)
				}

				q, err := l.Take(ctx, "10.0.0.1")
				require.NoError(t, err)
				assert.False(t, q.Allowed)
				assert.Zero(t, q.Remaining)
				assert.Greater(t, q.ResetIn, time.Duration(0))
				assert.LessOrEqual(t, q.ResetIn, time.Minute)
			})

			t.Run("keys are independent", func(t *testing.T) {
				l, _ := build(t, 1)
				q, _ := l.Take(ctx, "a")
				assert.True(t, q.Allowed)
				q, _ = l.Take(ctx, "a")
				assert.False(t, q.Allowed)

				q, err := l.Take(ctx, "b")
				require.NoError(t, err)
				assert.True(t, q.Allowed)
			})

			t.Run("a new window starts full", func(t *testing.T) {
				l, advance := build(t, 1)
				q, _ := l.Take(ctx, "shopper")
				require.True(t, q.Allowed)
				q, _ = l.Take(ctx, "shopper")
				require.False(t, q.Allowed)

				advance(time.Minute + time.Second)

				q, err := l.Take(ctx, "shopper")
				require.NoError(t, err)
				assert.True(t, q.Allowed)
				assert.Zero(t, q.Remaining)
			})
		})
	}
}

func TestMemoryLimiter_ResetIn(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	defer l.Stop()
	now := time.Now()
	l.now = func() time.Time { return now }

	_, _ = l.Take(context.Background(), "k")
	now = now.Add(40 * time.Second)
	q, err := l.Take(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, q.Allowed)
	assert.Equal(t, 20*time.Second, q.ResetIn)
}

func TestMemoryLimiter_StopTwice(t *testing.T) {
	l := NewMemoryLimiter(1, time.Millisecond)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestRedisLimiter_ScopesAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	api := NewRedisLimiter(client, "api", 1, time.Minute)
	auth := NewRedisLimiter(client, "auth", 1, time.Minute)

	q, _ := api.Take(ctx, "10.0.0.1")
	require.True(t, q.Allowed)
	q, _ = auth.Take(ctx, "10.0.0.1")
	assert.True(t, q.Allowed, "scopes count separately")

	assert.True(t, mr.Exists("grocery:ratelimit:api:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("grocery:ratelimit:api:10.0.0.1"))
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedisLimiter(client, "api", 1, time.Minute).Take(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count request")
}

// fixedQuota answers every Take the same way
type fixedQuota struct {
	quota Quota
	err   error
	keys  []string
}

func (f *fixedQuota) Take(_ context.Context, key string) (Quota, error) {
	f.keys = append(f.keys, key)
	return f.quota, f.err
}

func limitedRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), mw)
	r.GET("/api/products", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/token", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name           string
		quota          Quota
		wantStatus     int
		wantRemaining  string
		wantRetryAfter string
	}{
		{
			name:          "allowed",
			quota:         Quota{Allowed: true, Limit: 100, Remaining: 99, ResetIn: time.Minute},
			wantStatus:    http.StatusOK,
			wantRemaining: "99",
		},
		{
			name:           "limited",
			quota:          Quota{Limit: 100, ResetIn: 12500 * time.Millisecond},
			wantStatus:     http.StatusTooManyRequests,
			wantRemaining:  "0",
			wantRetryAfter: "13",
		},
		{
			name:           "retry after is at least a second",
			quota:          Quota{Limit: 100, ResetIn: 200 * time.Millisecond},
			wantStatus:     http.StatusTooManyRequests,
			wantRemaining:  "0",
			wantRetryAfter: "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := &fixedQuota{quota: tt.quota}
			r := limitedRouter(RateLimit(limiter, nil))

			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			req.RemoteAddr = "192.0.2.7:5000"
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, tt.wantRemaining, w.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, tt.wantRetryAfter, w.Header().Get("Retry-After"))
			assert.Equal(t, []string{"192.0.2.7"}, limiter.keys)

			if tt.wantStatus == http.StatusTooManyRequests {
				body := decodeError(t, w)
				assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
				assert.NotEmpty(t, body.RequestID)
			}
		})
	}
}

func TestAuthRateLimit(t *testing.T) {
	limiter := NewMemoryLimiter(2, time.Minute)
	defer limiter.Stop()
	r := limitedRouter(AuthRateLimit(limiter, nil))

	login := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{}`))
		req.RemoteAddr = "198.51.100.4:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, login().Code)
	assert.Equal(t, http.StatusOK, login().Code)

	w := login()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "AUTH_RATE_LIMIT_EXCEEDED", decodeError(t, w).Code)

	// the general limiter never sees the auth prefix
	q, err := limiter.Take(context.Background(), "198.51.100.4")
	require.NoError(t, err)
	assert.True(t, q.Allowed)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	limiter := &fixedQuota{err: errors.New("connection refused")}
	r := limitedRouter(RateLimit(limiter, zap.New(core)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, 1, logs.FilterMessage("Rate limiter unavailable").Len())
}
