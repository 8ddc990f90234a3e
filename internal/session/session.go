package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/backend"
	"github.com/noah-isme/storefront-checkout/internal/cart"
	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

var (
	// ErrStale reports a validation response that was superseded before it arrived.
	ErrStale = errors.New("session: validation result is stale")
	// ErrSubmitInProgress is returned while an earlier submission is outstanding.
	ErrSubmitInProgress = errors.New("session: submission already in progress")
	// ErrNotReady is returned when the form cannot be submitted yet.
	ErrNotReady = errors.New("session: checkout is not ready to submit")
	// ErrNoVoucher is returned when validation is requested without a code.
	ErrNoVoucher = errors.New("session: no voucher code entered")
	// ErrCompleted is returned once the session has produced an order.
	ErrCompleted = errors.New("session: checkout already completed")
)

// API is the subset of the backend client the session uses.
type API interface {
	ValidateVoucher(ctx context.Context, code string, subtotal pricing.Money, customerID string) (backend.VoucherValidation, error)
	CustomerRanking(ctx context.Context, customerID string) (backend.CustomerStanding, error)
	Checkout(ctx context.Context, req backend.CheckoutRequest, idemKey string) (backend.OrderConfirmation, error)
}

// Session is one shopper's checkout. UI callbacks and network responses may interleave;
// every method is safe for concurrent use.
type Session struct {
	api        API
	customerID string
	taxBps     int
	newKey     func() string

	mu         sync.Mutex
	snap       cart.Snapshot
	form       Form
	voucher    VoucherState
	rank       RankState
	seq        uint64
	submitting bool
	order      *backend.OrderConfirmation

	// submitKey is reused until the backend gives a definitive answer for submitFor.
	submitKey string
	submitFor string
}

// New starts a session for snap. customerID is empty for guests.
func New(api API, customerID string, taxBps int, snap cart.Snapshot) *Session {
	return &Session{
		api:        api,
		customerID: strings.TrimSpace(customerID),
		taxBps:     taxBps,
		newKey:     uuid.NewString,
		snap:       snap,
	}
}

// View renders the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return Compute(s.snap, s.form, s.voucher, s.rank, s.taxBps)
}

// SetCart replaces the cart snapshot. A voucher validated against a different subtotal is
// marked outdated and any in-flight validation is superseded.
func (s *Session) SetCart(snap cart.Snapshot) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	if s.voucher.Code != "" && s.voucher.Status != VoucherNone && s.voucher.Subtotal != s.subtotalLocked() {
		s.seq++
		s.voucher = VoucherState{Code: s.voucher.Code, Status: VoucherOutdated}
	}
	return s.viewLocked()
}

// SetForm replaces the shopper-entered fields.
func (s *Session) SetForm(f Form) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = f
	return s.viewLocked()
}

// SetVoucherCode records new voucher input and drops any previous result. Call
// ValidateVoucher to check it.
func (s *Session) SetVoucherCode(code string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = voucher.NormalizeCode(code)
	if code == s.voucher.Code && s.voucher.Status != VoucherNone {
		return s.viewLocked()
	}
	s.seq++
	s.voucher = VoucherState{Code: code}
	return s.viewLocked()
}

// ClearVoucher removes the voucher.
func (s *Session) ClearVoucher() View {
	return s.SetVoucherCode("")
}

// ValidateVoucher checks the entered code against the current subtotal. The response is
// committed only if no newer validation was issued and the subtotal is unchanged;
// otherwise ErrStale is returned and the state is left alone. Domain rejections are
// committed as VoucherRejected with a nil error.
func (s *Session) ValidateVoucher(ctx context.Context) (View, error) {
	s.mu.Lock()
	code := s.voucher.Code
	if code == "" {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, ErrNoVoucher
	}
	s.seq++
	seq := s.seq
	subtotal := s.subtotalLocked()
	s.voucher = VoucherState{Code: code, Status: VoucherPending, Subtotal: subtotal}
	s.mu.Unlock()

	res, err := s.api.ValidateVoucher(ctx, code, subtotal, s.customerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq || subtotal != s.subtotalLocked() {
		return s.viewLocked(), ErrStale
	}
	switch {
	case err != nil:
		s.voucher = VoucherState{Code: code, Status: VoucherFailed, Message: err.Error(), Subtotal: subtotal}
		return s.viewLocked(), err
	case res.Applicable:
		s.voucher = VoucherState{Code: code, Status: VoucherApplied, Discount: res.Discount, Subtotal: subtotal}
	default:
		msg := res.Message
		if msg == "" {
			msg = res.Reason.Message()
		}
		s.voucher = VoucherState{Code: code, Status: VoucherRejected, Reason: res.Reason, Message: msg, Subtotal: subtotal}
	}
	return s.viewLocked(), nil
}

// LoadRanking fetches the customer's rank once. Guests, customers without a record and
// failed lookups all get the default rank; a failed lookup is retried on the next call.
func (s *Session) LoadRanking(ctx context.Context) View {
	s.mu.Lock()
	if s.rank.Loaded && !s.rank.Fallback {
		view := s.viewLocked()
		s.mu.Unlock()
		return view
	}
	s.mu.Unlock()

	state := RankState{Rank: ranking.DefaultRank(), Loaded: true}
	if s.customerID != "" {
		st, err := s.api.CustomerRanking(ctx, s.customerID)
		switch {
		case err != nil:
			zerolog.Ctx(ctx).Warn().Err(err).Str("customer_id", s.customerID).Msg("ranking_unavailable_using_default")
			state.Fallback = true
		case st.Known:
			state.Rank = st.Rank
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rank = state
	return s.viewLocked()
}

// Submit places the order. Only one submission may be outstanding; a concurrent call gets
// ErrSubmitInProgress without touching the network. A failed submission leaves the form
// as it was. Retries of the same order after a transport failure carry the same
// idempotency key, so a request whose response was lost is not placed twice.
func (s *Session) Submit(ctx context.Context) (backend.OrderConfirmation, error) {
	s.mu.Lock()
	if s.order != nil {
		s.mu.Unlock()
		return backend.OrderConfirmation{}, ErrCompleted
	}
	if s.submitting {
		s.mu.Unlock()
		return backend.OrderConfirmation{}, ErrSubmitInProgress
	}
	view := s.viewLocked()
	if !view.ReadyToSubmit {
		s.mu.Unlock()
		return backend.OrderConfirmation{}, ErrNotReady
	}
	req := s.requestLocked(view)
	key := s.keyLocked(req)
	s.submitting = true
	s.mu.Unlock()

	out, err := s.api.Checkout(ctx, req, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		if rejected(err) {
			s.submitKey, s.submitFor = "", ""
		}
		return backend.OrderConfirmation{}, err
	}
	s.order = &out
	return out, nil
}

// keyLocked returns the idempotency key for req, minting a new one when the order
// content differs from the last attempt.
func (s *Session) keyLocked(req backend.CheckoutRequest) string {
	fp := requestFingerprint(req)
	if s.submitKey == "" || s.submitFor != fp {
		s.submitKey, s.submitFor = s.newKey(), fp
	}
	return s.submitKey
}

func requestFingerprint(req backend.CheckoutRequest) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	return common.Sha256Hex(string(raw))
}

// rejected reports a definitive client-error answer: the order was not placed under
// this key. Conflicts and rate limits may still hide an order in flight.
func rejected(err error) bool {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch {
	case apiErr.Status == http.StatusConflict, apiErr.Status == http.StatusTooManyRequests:
		return false
	default:
		return apiErr.Status >= 400 && apiErr.Status < 500
	}
}

// Submitting reports whether a submission is outstanding, for disabling the button.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

func (s *Session) requestLocked(view View) backend.CheckoutRequest {
	form := trimForm(s.form)
	req := backend.CheckoutRequest{
		CustomerID:      s.customerID,
		CustomerName:    form.CustomerName,
		PhoneNumber:     form.PhoneNumber,
		Email:           form.Email,
		ShippingAddress: form.ShippingAddress,
		PaymentMethodID: form.PaymentMethodID,
		Items:           make([]backend.OrderLine, 0, len(s.snap.Items)),
	}
	if form.OrderNote != "" {
		note := form.OrderNote
		req.OrderNote = &note
	}
	if view.VoucherApplied {
		code := s.voucher.Code
		req.VoucherCode = &code
	}
	for _, it := range s.snap.Items {
		req.Items = append(req.Items, backend.OrderLine{
			PdID:     it.ProductID,
			PdName:   it.Name,
			PdPrice:  it.UnitPrice,
			Quantity: it.Quantity,
		})
	}
	return req
}

func (s *Session) subtotalLocked() pricing.Money {
	if s.snap.Validate() != nil {
		return 0
	}
	return s.snap.Subtotal()
}
