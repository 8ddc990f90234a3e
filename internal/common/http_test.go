package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:4000", want: "203.0.113.7"},
		{name: "garbage forwarded ignored", headers: map[string]string{"X-Forwarded-For": "bucket-42"}, remote: "198.51.100.2:80", want: "198.51.100.2"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "2001:db8::1"}, remote: "10.0.0.1:4000", want: "2001:db8::1"},
		{name: "mapped v4", remote: "[::ffff:192.0.2.1]:8080", want: "192.0.2.1"},
		{name: "remote addr without port", remote: "192.0.2.9", want: "192.0.2.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, ClientIP(req))
		})
	}
	require.Empty(t, ClientIP(nil))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=500", nil)
	page, perPage := ParsePagination(req, 20)
	require.Equal(t, 3, page)
	require.Equal(t, MaxPerPage, perPage)

	req = httptest.NewRequest(http.MethodGet, "/?page=-1&limit=5", nil)
	page, perPage = ParsePagination(req, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 5, perPage)

	require.Equal(t, Pagination{Page: 1, PerPage: 20, TotalItems: 41, TotalPages: 3}, NewPagination(1, 20, 41))
	require.Zero(t, NewPagination(1, 20, 0).TotalPages)
}

func TestAppErrorHelpers(t *testing.T) {
	base := Unprocessable(CodeVoucherNotApplicable, "voucher expired", errors.New("EXPIRED"))
	detailed := base.WithDetails(map[string]string{"reason": "EXPIRED"})
	require.Nil(t, base.Details)
	require.Equal(t, http.StatusUnprocessableEntity, detailed.HTTPStatus)

	wrapped := fmt.Errorf("submit: %w", detailed)
	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	require.Equal(t, CodeVoucherNotApplicable, got.Code)
	require.True(t, IsAppError(wrapped))
	require.False(t, IsAppError(errors.New("plain")))

	require.Equal(t, Fingerprint("a", "b"), Sha256Hex("a|b"))
}
