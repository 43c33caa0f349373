package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	return newLimiter(cfg, clock.now), clock
}

func TestLimiterAllow_Burst(t *testing.T) {
	l, clock := testLimiter(Config{RequestsPerMinute: 60, BurstSize: 5})

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok, "request %d within burst", i)
	}

	ok, wait := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	clock.advance(time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestLimiterAllow_ClientsAreIndependent(t *testing.T) {
	l, _ := testLimiter(Config{RequestsPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		l.Allow("a")
	}
	ok, _ := l.Allow("a")
	assert.False(t, ok)

	ok, _ = l.Allow("b")
	assert.True(t, ok)
}

func TestLimiterAllow_RefillCappedAtBurst(t *testing.T) {
	l, clock := testLimiter(Config{RequestsPerMinute: 600, BurstSize: 2})

	l.Allow("k")
	clock.advance(time.Hour)

	allowed := 0
	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow("k"); ok {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestLimiter_EvictIdle(t *testing.T) {
	l, clock := testLimiter(Config{RequestsPerMinute: 60, BurstSize: 1})
	l.Allow("old")
	clock.advance(3 * time.Minute)
	l.Allow("fresh")

	l.evictIdle(2 * time.Minute)
	assert.Len(t, l.clients, 1)
	assert.Contains(t, l.clients, "fresh")
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := testLimiter(Config{RequestsPerMinute: 60, BurstSize: 1, ExemptPaths: []string{"/health"}})

	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	require.Equal(t, http.StatusOK, get("/stats").Code)

	w := get("/stats")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get("/health").Code)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 120, cfg.RequestsPerMinute)
	assert.Equal(t, 20, cfg.BurstSize)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
}

func TestNewAndStop(t *testing.T) {
	l := New(DefaultConfig())
	l.Stop()
	l.Stop()
}
