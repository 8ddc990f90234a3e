package voucher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newRouter(svc *Service) http.Handler {
	h := &Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/api/v1/vouchers/validate", h.Validate)
	r.Route("/api/v1/admin/vouchers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{code}", h.Get)
		r.Put("/{code}", h.Update)
		r.Delete("/{code}", h.Deactivate)
	})
	return r
}

func TestValidateHandlerSuccessEnvelope(t *testing.T) {
	svc, _ := newService(t, newStub(percentRow("SAVE10", 10, 500_000)))
	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/validate?code=save10&order_total=1000000", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool         `json:"success"`
		Data    ValidateData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, int64(100_000), body.Data.DiscountCalculated)
	require.Equal(t, "SAVE10", body.Data.Voucher.Code)
}

func TestValidateHandlerFailureCarriesReason(t *testing.T) {
	svc, _ := newService(t, newStub(percentRow("SAVE10", 10, 500_000)))
	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/validate?code=SAVE10&order_total=100000", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body validateFailure
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, ReasonBelowMinimum, body.Reason)
	require.NotEmpty(t, body.Message)

	rr = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/validate?code=NOPE&order_total=100000", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestValidateHandlerRejectsBadTotal(t *testing.T) {
	svc, _ := newService(t, newStub())
	for _, target := range []string{
		"/api/v1/vouchers/validate?order_total=10",
		"/api/v1/vouchers/validate?code=X&order_total=abc",
		"/api/v1/vouchers/validate?code=X&order_total=-1",
	} {
		rr := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestAdminCreateAndList(t *testing.T) {
	q := newStub()
	svc, _ := newService(t, q)
	router := newRouter(svc)

	payload := `{"code":"flat50","discount_amount":50000,"min_order_value":200000,"start_date":"2026-01-01T00:00:00Z","end_date":"2026-12-31T00:00:00Z","max_uses":10}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/vouchers/", strings.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"code":"FLAT50"`)

	bad := `{"code":"broken","discount_amount":50000,"discount_percent":10,"start_date":"2026-01-01T00:00:00Z","end_date":"2026-12-31T00:00:00Z","max_uses":10}`
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/vouchers/", strings.NewReader(bad)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION_FAILED")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/vouchers/?page=1&limit=10", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"total_items":1`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/vouchers/missing", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminUpdateCannotRenameCode(t *testing.T) {
	svc, _ := newService(t, newStub(percentRow("SAVE10", 10, 0)))
	payload := `{"code":"OTHER","discount_percent":10,"start_date":"2026-01-01T00:00:00Z","end_date":"2026-12-31T00:00:00Z","max_uses":10}`
	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/admin/vouchers/SAVE10", strings.NewReader(payload)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
