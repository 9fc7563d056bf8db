package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/office-resource-booking/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func limitCfg(strategy string) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    strategy,
		Prefix:         "rl",
	}
}

func hit(e *echo.Echo, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(limitCfg("ip"), rdb))

	for i := 0; i < 2; i++ {
		if rec := hit(e, "/ping", "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
	rec := hit(e, "/ping", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d", rec.Code)
	}
	var body struct {
		Success    bool   `json:"success"`
		Detail     string `json:"detail"`
		RetryAfter int    `json:"retry_after"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Detail != "rate limit exceeded" || body.RetryAfter < 1 || body.RetryAfter > 60 {
		t.Fatalf("unexpected body %+v", body)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}

	// Another client has its own bucket.
	if rec := hit(e, "/ping", "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("other ip: status %d", rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(limitCfg("ip"), rdb))
	for i := 0; i < 5; i++ {
		if rec := hit(e, "/ping", "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/desks", nil)
	req.Header.Set("X-Real-IP", "1.2.3.4")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/desks")

	tests := []struct {
		strategy string
		user     string
		want     string
	}{
		{"ip", "", "rl:ip:1.2.3.4"},
		{"user", "", "rl:user:anon"},
		{"user", "u-1", "rl:user:u-1"},
		{"user_route", "u-1", "rl:user:u-1:route:GET /api/v1/desks"},
		{"", "u-1", "rl:ip:1.2.3.4:user:u-1:route:GET /api/v1/desks"},
	}
	for _, tt := range tests {
		c.Set(ctxUserID, tt.user)
		if got := buildRateKey(limitCfg(tt.strategy), c); got != tt.want {
			t.Errorf("%q: key = %q, want %q", tt.strategy, got, tt.want)
		}
	}
}
