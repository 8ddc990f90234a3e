package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorUsesAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	err := NewAppError("VOUCHER_NOT_APPLICABLE", "voucher below minimum", http.StatusUnprocessableEntity, errors.New("below minimum"))
	WriteError(rr, err)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "voucher below minimum", body.Message)
	require.Equal(t, "VOUCHER_NOT_APPLICABLE", body.Error.Code)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("connection refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "connection refused")
}

type sample struct {
	Name     string `json:"customer_name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

func TestDecodeAndValidateReportsJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0}`))
	rr := httptest.NewRecorder()
	var dst sample
	require.False(t, DecodeAndValidate(rr, req, &dst))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "sample.customer_name")
	require.Contains(t, rr.Body.String(), "VALIDATION_FAILED")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"customer_name":"Ana","quantity":2}`))
	rr = httptest.NewRecorder()
	require.True(t, DecodeAndValidate(rr, req, &dst))
	require.Equal(t, "Ana", dst.Name)
}
