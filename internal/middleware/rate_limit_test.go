package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/lmartins/quizchain/internal/ratelimit"
	"github.com/lmartins/quizchain/pkg/config"
)

func solveRequest(t *testing.T, mw gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/v1/quiz/solve", nil)
	ctx.Request.RemoteAddr = "203.0.113.9:51000"
	mw(ctx)
	return w
}

func TestRateLimitSolveDisabledBucketPasses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	mw := RateLimitSolve(ratelimit.NewTokenBucketLimiter(rdb), cfg)

	if w := solveRequest(t, mw); w.Code == http.StatusTooManyRequests {
		t.Fatal("disabled bucket rejected a request")
	}
}

func TestRateLimitSolveBlocksAfterBurst(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.RateLimit.Solve = config.RateLimitBucketConfig{RequestsPerMinute: 60, BurstSize: 1}
	mw := RateLimitSolve(ratelimit.NewTokenBucketLimiter(rdb), cfg)

	if w := solveRequest(t, mw); w.Code == http.StatusTooManyRequests {
		t.Fatal("first request rejected")
	}
	w := solveRequest(t, mw)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request code = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestRateLimitSolveFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cfg := &config.Config{}
	cfg.RateLimit.Solve = config.RateLimitBucketConfig{RequestsPerMinute: 60, BurstSize: 1}
	mw := RateLimitSolve(ratelimit.NewTokenBucketLimiter(rdb), cfg)

	if w := solveRequest(t, mw); w.Code == http.StatusTooManyRequests {
		t.Fatal("redis outage turned into a rejection, want fail-open")
	}
}
