package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/storefront-checkout/internal/checkout"
	"github.com/noah-isme/storefront-checkout/internal/config"
	"github.com/noah-isme/storefront-checkout/internal/health"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

func testRouter(t *testing.T, probes ...health.Probe) http.Handler {
	t.Helper()
	rate, err := limiter.NewRateFromFormatted("5-M")
	require.NoError(t, err)
	cfg := &config.Config{
		AppEnv:         "test",
		BodyLimitBytes: 1 << 20,
		AdminUser:      "staff",
		AdminPassword:  "secret",
	}
	return newRouter(routerDeps{
		cfg:      cfg,
		logger:   zerolog.Nop(),
		limiter:  limiter.New(memory.NewStore(), rate),
		vouchers: &voucher.Handler{},
		ranks:    &ranking.Handler{},
		checkout: &checkout.Handler{},
		probes:   probes,
	})
}

func TestRouterHealth(t *testing.T) {
	r := testRouter(t, health.Probe{Name: "redis", Check: func(context.Context) error { return errors.New("down") }})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouterAdminRequiresCredentials(t *testing.T) {
	r := testRouter(t)

	for _, path := range []string{"/api/v1/admin/vouchers", "/api/v1/admin/ranks", "/debug/pprof/"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("staff", "secret")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterMountsCheckoutRoutes(t *testing.T) {
	r := testRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/checkout/quote"},
		{http.MethodPost, "/api/v1/orders/checkout"},
		{http.MethodGet, "/api/v1/orders/OD20260101-ABCDEF12"},
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		// handlers without a service answer 500, unmounted paths would be 404/405
		require.Equal(t, http.StatusInternalServerError, rr.Code, tc.path)
	}
}
