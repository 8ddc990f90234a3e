// Package backend is the storefront's client for the checkout REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/resilience"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

var (
	// ErrNetworkFailure covers connection errors and an open breaker.
	ErrNetworkFailure = errors.New("backend: network failure")
	// ErrTimeout indicates the backend did not answer in time.
	ErrTimeout = errors.New("backend: request timed out")
)

// APIError is a non-2xx answer that is not a voucher domain rejection.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
}

// Doer is satisfied by resilience.HTTPClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the checkout API.
type Client struct {
	BaseURL   string
	HTTP      Doer
	UserAgent string
}

// NewClient builds a client over an instrumented transport with a breaker in front of it.
// Requests are attempted once; the shopper retries manually.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(resilience.BreakerSettings{Target: "checkout_api", MinRequests: 5, FailureRatio: 0.5, OpenFor: 15 * time.Second}),
			MaxAttempts: 1,
			Timeout:     timeout,
		},
		UserAgent: "storefront-checkout/1.0",
	}
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Reason  voucher.Reason    `json:"reason"`
	Error   *common.ErrorBody `json:"error"`
}

// VoucherValidation is the outcome of a validate call. Domain rejections are values.
type VoucherValidation struct {
	Applicable bool
	Code       string
	Discount   pricing.Money
	Reason     voucher.Reason
	Message    string
	Voucher    *voucher.View
}

// ValidateVoucher asks the backend whether code applies to subtotal. customerID may be empty.
func (c *Client) ValidateVoucher(ctx context.Context, code string, subtotal pricing.Money, customerID string) (VoucherValidation, error) {
	code = voucher.NormalizeCode(code)
	q := url.Values{}
	q.Set("code", code)
	q.Set("order_total", strconv.FormatInt(subtotal, 10))
	if id := strings.TrimSpace(customerID); id != "" {
		q.Set("customer_id", id)
	}
	status, env, err := c.do(ctx, http.MethodGet, "/api/v1/vouchers/validate?"+q.Encode(), nil, nil)
	if err != nil {
		return VoucherValidation{}, err
	}
	if !env.Success {
		if env.Reason != "" && (status == http.StatusNotFound || status == http.StatusUnprocessableEntity) {
			msg := env.Message
			if msg == "" {
				msg = env.Reason.Message()
			}
			return VoucherValidation{Code: code, Reason: env.Reason, Message: msg}, nil
		}
		return VoucherValidation{}, apiError(status, env)
	}
	var data voucher.ValidateData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return VoucherValidation{}, fmt.Errorf("backend: decode voucher validation: %w", err)
	}
	return VoucherValidation{
		Applicable: true,
		Code:       data.Voucher.Code,
		Discount:   data.DiscountCalculated,
		Voucher:    &data.Voucher,
	}, nil
}

// CustomerStanding is the customer's rank as reported by the backend.
type CustomerStanding struct {
	Rank          ranking.Rank
	TotalSpending pricing.Money
	// Known is false when the customer has no ranking record.
	Known bool
}

// CustomerRanking loads the customer's current rank.
func (c *Client) CustomerRanking(ctx context.Context, customerID string) (CustomerStanding, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return CustomerStanding{}, errors.New("backend: customer id is required")
	}
	status, env, err := c.do(ctx, http.MethodGet, "/api/v1/customers/"+url.PathEscape(customerID)+"/ranking", nil, nil)
	if err != nil {
		return CustomerStanding{}, err
	}
	if !env.Success {
		return CustomerStanding{}, apiError(status, env)
	}
	var data ranking.CustomerRankingData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return CustomerStanding{}, fmt.Errorf("backend: decode ranking: %w", err)
	}
	if len(data.CustomerRankings) == 0 {
		return CustomerStanding{TotalSpending: data.TotalSpending}, nil
	}
	body := data.CustomerRankings[0].RankID
	return CustomerStanding{
		Rank: ranking.Rank{
			ID:              body.ID,
			Name:            body.RankName,
			MinSpending:     body.MinSpending,
			MaxSpending:     body.MaxSpending,
			DiscountPercent: body.DiscountPercent,
			Benefits:        body.Benefits,
		},
		TotalSpending: data.TotalSpending,
		Known:         true,
	}, nil
}

// OrderLine is one purchased item in a checkout request.
type OrderLine struct {
	PdID     string        `json:"pd_id"`
	PdName   string        `json:"pd_name"`
	PdPrice  pricing.Money `json:"pd_price"`
	Quantity int           `json:"quantity"`
}

// CheckoutRequest is the order submission body.
type CheckoutRequest struct {
	CustomerID      string      `json:"customer_id,omitempty"`
	CustomerName    string      `json:"customer_name"`
	PhoneNumber     string      `json:"phone_number"`
	Email           string      `json:"email"`
	ShippingAddress string      `json:"shipping_address"`
	PaymentMethodID string      `json:"payment_method_id"`
	OrderNote       *string     `json:"order_note,omitempty"`
	VoucherCode     *string     `json:"voucher_code,omitempty"`
	Items           []OrderLine `json:"items"`
}

// OrderConfirmation is the subset of the created order the storefront needs.
type OrderConfirmation struct {
	ID          string         `json:"id"`
	OdID        string         `json:"od_id"`
	Status      string         `json:"status"`
	VoucherCode string         `json:"voucher_code,omitempty"`
	RankName    string         `json:"rank_name"`
	Totals      pricing.Totals `json:"totals"`
}

// Checkout submits the order. idemKey is sent as the Idempotency-Key header.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest, idemKey string) (OrderConfirmation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return OrderConfirmation{}, fmt.Errorf("backend: encode checkout: %w", err)
	}
	headers := http.Header{}
	if idemKey != "" {
		headers.Set(common.IdempotencyHeader, idemKey)
	}
	status, env, err := c.do(ctx, http.MethodPost, "/api/v1/orders/checkout", body, headers)
	if err != nil {
		return OrderConfirmation{}, err
	}
	if !env.Success {
		return OrderConfirmation{}, apiError(status, env)
	}
	var data struct {
		Order OrderConfirmation `json:"order"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return OrderConfirmation{}, fmt.Errorf("backend: decode order: %w", err)
	}
	return data.Order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers http.Header) (int, envelope, error) {
	if c == nil || c.HTTP == nil {
		return 0, envelope{}, errors.New("backend: client not configured")
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("backend: build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return 0, envelope{}, classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, envelope{}, classify(ctx, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return resp.StatusCode, envelope{Message: http.StatusText(resp.StatusCode)}, nil
		}
		return resp.StatusCode, envelope{}, fmt.Errorf("backend: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		env.Success = false
	}
	return resp.StatusCode, env, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
}

func apiError(status int, env envelope) error {
	out := &APIError{Status: status, Message: env.Message}
	if env.Error != nil {
		out.Code = env.Error.Code
		if out.Message == "" {
			out.Message = env.Error.Message
		}
		if env.Error.Details != nil {
			out.Details, _ = json.Marshal(env.Error.Details)
		}
	}
	return out
}
