package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/storefront-checkout/internal/common"
)

// Limiter is satisfied by *limiter.Limiter.
type Limiter interface {
	Get(ctx context.Context, key string) (limiter.Context, error)
}

// New builds a limiter from a formatted rate such as "30-M", stored in Redis under prefix.
func New(client redis.UniversalClient, rate, prefix string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, parsed), nil
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	// Key derives the bucket for a request; nil disables limiting.
	Key     func(*http.Request) string
	OnError func(error)
}

// ByClientIP keys requests by client address and route.
func ByClientIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + common.ClientIP(r)
	}
}

// Middleware implements the http.Handler middleware interface. Limiter failures let the
// request through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Key == nil || h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		lc, err := h.Limiter.Get(r.Context(), h.Key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

		if lc.Reached {
			retryAfter := max(int64(time.Until(time.Unix(lc.Reset, 0)).Seconds()), 0)
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, common.CodeRateLimited, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
