package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(limiter *RateLimiter, rules map[string]RateLimitRule, groupFor func(*gin.Context) string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules:        rules,
		Message:      "Muitas requisições. Tente novamente mais tarde.",
	}))
	r.GET("/api/v1/analyses/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/v1/analyze", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func serve(r *gin.Engine, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":1234"
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRateLimitOnlyAppliesToConfiguredGroup(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/analyze" {
			return "ANALYZE"
		}
		return "DEFAULT"
	}
	r := newLimitedRouter(limiter, map[string]RateLimitRule{
		"ANALYZE": {Rate: 1, Burst: 2},
	}, groupFor)

	for i := 0; i < 5; i++ {
		if resp := serve(r, http.MethodGet, "/api/v1/analyses/run-1", "10.0.0.1"); resp.Code != http.StatusOK {
			t.Fatalf("unlimited request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	for i := 0; i < 2; i++ {
		if resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.1"); resp.Code != http.StatusOK {
			t.Fatalf("analyze request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	if resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.1"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("analyze request 3 expected 429, got %d", resp.Code)
	}
}

func TestRateLimitKeysByClientIP(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	r := newLimitedRouter(limiter, map[string]RateLimitRule{
		"DEFAULT": {Rate: 1, Burst: 1},
	}, nil)

	if resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.1"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.2"); resp.Code != http.StatusOK {
		t.Fatalf("second client expected 200, got %d", resp.Code)
	}
	if resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.1"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat client expected 429, got %d", resp.Code)
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	r := newLimitedRouter(limiter, map[string]RateLimitRule{
		"DEFAULT": WindowRule(10, 15*time.Minute),
	}, nil)

	for i := 0; i < 10; i++ {
		if resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.9"); resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.9")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	// One token refills every 90s.
	if got := resp.Header().Get("Retry-After"); got != "90" && got != "91" {
		t.Fatalf("expected Retry-After of about 90s, got %q", got)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != "rate_limited" {
		t.Fatalf("expected error=rate_limited")
	}
	if payload["message"] != "Muitas requisições. Tente novamente mais tarde." {
		t.Fatalf("unexpected message %v", payload["message"])
	}
	if _, ok := payload["retryAfterMs"]; !ok {
		t.Fatalf("expected retryAfterMs in response")
	}

	now = now.Add(91 * time.Second)
	if resp := serve(r, http.MethodPost, "/api/v1/analyze", "10.0.0.9"); resp.Code != http.StatusOK {
		t.Fatalf("expected refill after 91s, got %d", resp.Code)
	}
}

func TestWindowRuleRejectsNonPositive(t *testing.T) {
	if rule := WindowRule(0, time.Minute); rule.Burst != 0 {
		t.Fatalf("expected disabled rule, got %+v", rule)
	}
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 1}

	for i := 0; i < sweepThreshold; i++ {
		limiter.Allow("client-"+strconv.Itoa(i), rule)
	}
	if got := limiter.Len(); got != sweepThreshold {
		t.Fatalf("expected %d buckets, got %d", sweepThreshold, got)
	}

	now = now.Add(2 * time.Second)
	if ok, _ := limiter.Allow("newcomer", rule); !ok {
		t.Fatal("expected newcomer allowed")
	}
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle buckets swept, got %d", got)
	}
}
