package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/health"
)

func probe(name string, err error) health.Probe {
	return health.Probe{Name: name, Timeout: 50 * time.Millisecond, Check: func(context.Context) error { return err }}
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{Probes: []health.Probe{probe("postgres", nil), probe("redis", nil)}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, resp.Data)
}

func TestReadyFailureNamesTheProbe(t *testing.T) {
	handler := health.Handler{Probes: []health.Probe{probe("postgres", errors.New("db down")), probe("redis", nil)}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp common.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, map[string]any{"postgres": "db down", "redis": "ok"}, resp.Error.Details)
}

func TestReadyHonoursProbeTimeout(t *testing.T) {
	slow := health.Probe{Name: "redis", Timeout: 10 * time.Millisecond, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	rr := httptest.NewRecorder()
	health.Handler{Probes: []health.Probe{slow}}.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReadinessAfterShutdown(t *testing.T) {
	handler := health.Handler{Probes: []health.Probe{probe("postgres", nil)}}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	health.SetReady(false)
	t.Cleanup(func() { health.SetReady(true) })
	rr := httptest.NewRecorder()
	handler.Ready(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	health.SetReady(true)
	rr = httptest.NewRecorder()
	handler.Ready(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
