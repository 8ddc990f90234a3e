package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	rate, err := limiter.NewRateFromFormatted("1-M")
	require.NoError(t, err)
	handler := Handler{
		Limiter: limiter.New(memory.NewStore(), rate),
		Key:     func(*http.Request) string { return "static" },
	}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr2.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")
}

func TestRedisBackedLimiterKeysByClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lim, err := New(client, "1-H", "test:rl")
	require.NoError(t, err)
	counted := Handler{Limiter: lim, Key: ByClientIP("validate")}.Middleware(okHandler())

	for _, tc := range []struct {
		addr string
		want int
	}{
		{"10.0.0.1:1000", http.StatusOK},
		{"10.0.0.1:1001", http.StatusTooManyRequests},
		{"10.0.0.2:1000", http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/validate", nil)
		req.RemoteAddr = tc.addr
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		require.Equal(t, tc.want, rr.Code, tc.addr)
	}
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "often", "x")
	require.Error(t, err)
}

type failingLimiter struct{}

func (failingLimiter) Get(context.Context, string) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	called := false
	handler := Handler{
		Limiter: failingLimiter{},
		Key:     func(*http.Request) string { return "err" },
		OnError: func(error) { called = true },
	}

	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}
