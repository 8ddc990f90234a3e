package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, time.Second)
	return c
}

func TestValidateVoucherSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/vouchers/validate", r.URL.Path)
		require.Equal(t, "SAVE10", r.URL.Query().Get("code"))
		require.Equal(t, "1000000", r.URL.Query().Get("order_total"))
		require.Equal(t, "cust-1", r.URL.Query().Get("customer_id"))
		pct := decimal.NewFromInt(10)
		common.OK(w, http.StatusOK, voucher.ValidateData{
			Voucher:            voucher.View{Code: "SAVE10", DiscountPercent: &pct},
			DiscountCalculated: 100_000,
		})
	})

	res, err := c.ValidateVoucher(context.Background(), " save10 ", 1_000_000, "cust-1")
	require.NoError(t, err)
	require.True(t, res.Applicable)
	require.EqualValues(t, 100_000, res.Discount)
	require.NotNil(t, res.Voucher)
	require.True(t, res.Voucher.DiscountPercent.Equal(decimal.NewFromInt(10)))
}

func TestValidateVoucherDomainRejectionIsAValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		common.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"message": "order total is below the voucher minimum",
			"reason":  "BELOW_MINIMUM",
		})
	})

	res, err := c.ValidateVoucher(context.Background(), "SAVE10", 100_000, "")
	require.NoError(t, err)
	require.False(t, res.Applicable)
	require.Equal(t, voucher.ReasonBelowMinimum, res.Reason)
	require.NotEmpty(t, res.Message)
}

func TestValidateVoucherRateLimitedIsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "slow down", nil)
	})

	_, err := c.ValidateVoucher(context.Background(), "SAVE10", 100_000, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	require.Equal(t, "RATE_LIMITED", apiErr.Code)
}

func TestNetworkFailureIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	_, err := c.ValidateVoucher(context.Background(), "SAVE10", 1, "")
	require.ErrorIs(t, err, ErrNetworkFailure)
}

func TestTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 20*time.Millisecond)
	_, err := c.CustomerRanking(context.Background(), "cust-1")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCustomerRanking(t *testing.T) {
	upper := pricing.Money(2_000_000)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/customers/cust-1/ranking", r.URL.Path)
		common.OK(w, http.StatusOK, ranking.CustomerRankingData{
			CustomerRankings: []ranking.CustomerRankingEntry{{RankID: ranking.RankBody{
				RankName: "Silver", MinSpending: 500_000, MaxSpending: &upper,
				DiscountPercent: decimal.NewFromInt(10), Benefits: []string{"Free shipping"},
			}}},
			TotalSpending: 600_000,
		})
	})

	st, err := c.CustomerRanking(context.Background(), "cust-1")
	require.NoError(t, err)
	require.True(t, st.Known)
	require.Equal(t, "Silver", st.Rank.Name)
	require.EqualValues(t, 600_000, st.TotalSpending)
	require.Equal(t, []string{"Free shipping"}, st.Rank.Benefits)
}

func TestCustomerRankingWithoutRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		common.OK(w, http.StatusOK, ranking.CustomerRankingData{CustomerRankings: []ranking.CustomerRankingEntry{}})
	})

	st, err := c.CustomerRanking(context.Background(), "cust-new")
	require.NoError(t, err)
	require.False(t, st.Known)
}

func TestCheckoutSendsIdempotencyKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "key-1", r.Header.Get(common.IdempotencyHeader))
		var body CheckoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Items, 1)
		common.OK(w, http.StatusCreated, map[string]any{"order": OrderConfirmation{OdID: "OD20260301-ABCDEF12", Status: "PENDING"}})
	})

	out, err := c.Checkout(context.Background(), CheckoutRequest{
		CustomerName: "Rina",
		Items:        []OrderLine{{PdID: "pd-1", PdName: "Kemeja", PdPrice: 100, Quantity: 1}},
	}, "key-1")
	require.NoError(t, err)
	require.Equal(t, "OD20260301-ABCDEF12", out.OdID)
}

func TestCheckoutSurfacesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		common.JSONError(w, http.StatusUnprocessableEntity, "VOUCHER_NOT_APPLICABLE", "voucher usage limit reached", map[string]string{"reason": "USAGE_EXHAUSTED"})
	})

	_, err := c.Checkout(context.Background(), CheckoutRequest{}, "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "VOUCHER_NOT_APPLICABLE", apiErr.Code)
	require.Equal(t, "voucher usage limit reached", apiErr.Message)
	require.JSONEq(t, `{"reason":"USAGE_EXHAUSTED"}`, string(apiErr.Details))
}
