package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-checkout/internal/backend"
	"github.com/noah-isme/storefront-checkout/internal/cart"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

type validateCall struct {
	code     string
	subtotal pricing.Money
	reply    chan validateReply
}

type validateReply struct {
	res backend.VoucherValidation
	err error
}

// fakeAPI parks validate and checkout calls until the test releases them.
type fakeAPI struct {
	validates   chan validateCall
	standing    backend.CustomerStanding
	rankingErr  error
	rankCalls   int
	checkoutIn  chan backend.CheckoutRequest
	checkoutOut chan error

	mu   sync.Mutex
	keys []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		validates:   make(chan validateCall, 4),
		checkoutIn:  make(chan backend.CheckoutRequest, 4),
		checkoutOut: make(chan error, 4),
	}
}

func (f *fakeAPI) ValidateVoucher(ctx context.Context, code string, subtotal pricing.Money, customerID string) (backend.VoucherValidation, error) {
	call := validateCall{code: code, subtotal: subtotal, reply: make(chan validateReply, 1)}
	f.validates <- call
	r := <-call.reply
	return r.res, r.err
}

func (f *fakeAPI) CustomerRanking(ctx context.Context, customerID string) (backend.CustomerStanding, error) {
	f.rankCalls++
	return f.standing, f.rankingErr
}

func (f *fakeAPI) Checkout(ctx context.Context, req backend.CheckoutRequest, idemKey string) (backend.OrderConfirmation, error) {
	f.mu.Lock()
	f.keys = append(f.keys, idemKey)
	f.mu.Unlock()
	f.checkoutIn <- req
	if err := <-f.checkoutOut; err != nil {
		return backend.OrderConfirmation{}, err
	}
	return backend.OrderConfirmation{OdID: "OD20260301-00000001", Status: "PENDING"}, nil
}

func applied(discount pricing.Money) validateReply {
	return validateReply{res: backend.VoucherValidation{Applicable: true, Discount: discount}}
}

func validateAsync(s *Session) chan error {
	done := make(chan error, 1)
	go func() {
		_, err := s.ValidateVoucher(context.Background())
		done <- err
	}()
	return done
}

func TestValidateCommitsLatestResult(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "cust-1", 0, millionCart())
	s.SetVoucherCode("save5")

	done := validateAsync(s)
	call := <-api.validates
	require.Equal(t, "SAVE5", call.code)
	require.EqualValues(t, 1_000_000, call.subtotal)
	require.Equal(t, VoucherPending, s.View().Voucher.Status)

	call.reply <- applied(50_000)
	require.NoError(t, <-done)

	view := s.View()
	require.True(t, view.VoucherApplied)
	require.EqualValues(t, 50_000, view.Totals.VoucherDiscount)
}

func TestValidateDiscardsSupersededResponse(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "", 0, millionCart())
	s.SetVoucherCode("SAVE5")

	first := validateAsync(s)
	firstCall := <-api.validates
	second := validateAsync(s)
	secondCall := <-api.validates

	secondCall.reply <- applied(20_000)
	require.NoError(t, <-second)
	firstCall.reply <- applied(90_000)
	require.ErrorIs(t, <-first, ErrStale)

	require.EqualValues(t, 20_000, s.View().Totals.VoucherDiscount)
}

func TestValidateDiscardsResponseAfterCartChange(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "", 0, millionCart())
	s.SetVoucherCode("SAVE5")

	done := validateAsync(s)
	call := <-api.validates
	s.SetCart(snapshot(cart.LineItem{ProductID: "pd-1", Name: "Jaket", UnitPrice: 500_000, Quantity: 1}))

	call.reply <- applied(50_000)
	require.ErrorIs(t, <-done, ErrStale)

	view := s.View()
	require.False(t, view.VoucherApplied)
	require.Equal(t, VoucherOutdated, view.Voucher.Status)
	require.False(t, view.ReadyToSubmit)
}

func TestCartChangeInvalidatesAppliedVoucher(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "", 0, millionCart())
	s.SetForm(completeForm())
	s.SetVoucherCode("SAVE5")
	done := validateAsync(s)
	(<-api.validates).reply <- applied(50_000)
	require.NoError(t, <-done)

	view := s.SetCart(snapshot(cart.LineItem{ProductID: "pd-1", Name: "Jaket", UnitPrice: 100_000, Quantity: 1}))
	require.Equal(t, VoucherOutdated, view.Voucher.Status)
	require.Zero(t, view.Totals.VoucherDiscount)

	done = validateAsync(s)
	call := <-api.validates
	require.EqualValues(t, 100_000, call.subtotal)
	call.reply <- validateReply{res: backend.VoucherValidation{Reason: voucher.ReasonBelowMinimum}}
	require.NoError(t, <-done)

	view = s.View()
	require.Equal(t, VoucherRejected, view.Voucher.Status)
	require.Equal(t, voucher.ReasonBelowMinimum.Message(), view.Voucher.Message)
	require.True(t, view.ReadyToSubmit)
}

func TestValidateTransportFailureKeepsInputEditable(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "", 0, millionCart())
	s.SetVoucherCode("SAVE5")

	done := validateAsync(s)
	(<-api.validates).reply <- validateReply{err: backend.ErrTimeout}
	require.ErrorIs(t, <-done, backend.ErrTimeout)
	require.Equal(t, VoucherFailed, s.View().Voucher.Status)

	view := s.SetVoucherCode("OTHER")
	require.Equal(t, "OTHER", view.Voucher.Code)
	require.Equal(t, VoucherNone, view.Voucher.Status)
}

func TestValidateWithoutCode(t *testing.T) {
	s := New(newFakeAPI(), "", 0, millionCart())
	_, err := s.ValidateVoucher(context.Background())
	require.ErrorIs(t, err, ErrNoVoucher)
}

func TestLoadRanking(t *testing.T) {
	t.Run("known customer", func(t *testing.T) {
		api := newFakeAPI()
		api.standing = backend.CustomerStanding{Known: true, Rank: ranking.Rank{Name: "Gold", DiscountPercent: decimal.NewFromInt(15)}}
		s := New(api, "cust-1", 0, millionCart())

		view := s.LoadRanking(context.Background())
		require.Equal(t, "Gold", view.Rank.Name)
		require.EqualValues(t, 150_000, view.Totals.RankingDiscount)

		s.LoadRanking(context.Background())
		require.Equal(t, 1, api.rankCalls)
	})
	t.Run("lookup failure falls back and retries", func(t *testing.T) {
		api := newFakeAPI()
		api.rankingErr = backend.ErrNetworkFailure
		s := New(api, "cust-1", 0, millionCart())

		view := s.LoadRanking(context.Background())
		require.Equal(t, ranking.DefaultRank().Name, view.Rank.Name)
		s.LoadRanking(context.Background())
		require.Equal(t, 2, api.rankCalls)
	})
	t.Run("guest skips the lookup", func(t *testing.T) {
		api := newFakeAPI()
		s := New(api, "", 0, millionCart())

		view := s.LoadRanking(context.Background())
		require.Equal(t, ranking.DefaultRank().Name, view.Rank.Name)
		require.Zero(t, api.rankCalls)
	})
}

func TestSubmitIsSingleFlight(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "cust-1", 0, millionCart())
	s.SetForm(completeForm())

	first := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		first <- err
	}()
	req := <-api.checkoutIn
	require.Len(t, req.Items, 1)
	require.Nil(t, req.VoucherCode)
	require.True(t, s.Submitting())

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInProgress)

	api.checkoutOut <- nil
	require.NoError(t, <-first)
	require.False(t, s.Submitting())

	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, ErrCompleted)
	require.Len(t, api.keys, 1)
}

func TestSubmitFailureLeavesFormIntact(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "", 0, millionCart())
	s.SetForm(completeForm())
	s.SetVoucherCode("SAVE5")
	done := validateAsync(s)
	(<-api.validates).reply <- applied(50_000)
	require.NoError(t, <-done)

	api.checkoutOut <- errors.New("boom")
	_, err := s.Submit(context.Background())
	require.Error(t, err)
	req := <-api.checkoutIn
	require.Equal(t, "SAVE5", *req.VoucherCode)

	view := s.View()
	require.True(t, view.ReadyToSubmit)
	require.True(t, view.VoucherApplied)

	api.checkoutOut <- nil
	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	<-api.checkoutIn
	require.Len(t, api.keys, 2)
	require.Equal(t, api.keys[0], api.keys[1])
}

func TestSubmitRetryAfterTimeoutReusesKey(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "", 0, millionCart())
	s.SetForm(completeForm())

	api.checkoutOut <- backend.ErrTimeout
	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, backend.ErrTimeout)
	<-api.checkoutIn

	api.checkoutOut <- backend.ErrNetworkFailure
	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, backend.ErrNetworkFailure)
	<-api.checkoutIn

	api.checkoutOut <- nil
	out, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, out.OdID)
	<-api.checkoutIn

	require.Len(t, api.keys, 3)
	require.Equal(t, api.keys[0], api.keys[1])
	require.Equal(t, api.keys[0], api.keys[2])
}

func TestSubmitKeyRotation(t *testing.T) {
	cases := []struct {
		name   string
		first  error
		change func(s *Session)
		same   bool
	}{
		{name: "validation rejection", first: &backend.APIError{Status: 422, Code: "VALIDATION_FAILED"}},
		{name: "in progress conflict", first: &backend.APIError{Status: 409, Code: "CHECKOUT_IN_PROGRESS"}, same: true},
		{name: "server error", first: &backend.APIError{Status: 503, Code: "UNAVAILABLE"}, same: true},
		{
			name:  "cart changed after timeout",
			first: backend.ErrTimeout,
			change: func(s *Session) {
				s.SetCart(cart.NewSnapshot([]cart.LineItem{{ProductID: "p-2", Name: "Mug", UnitPrice: 80_000, Quantity: 2}}))
			},
		},
		{
			name:  "form changed after timeout",
			first: backend.ErrTimeout,
			change: func(s *Session) {
				f := completeForm()
				f.ShippingAddress = "Jl. Sudirman 2, Jakarta"
				s.SetForm(f)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI()
			s := New(api, "", 0, millionCart())
			s.SetForm(completeForm())

			api.checkoutOut <- tc.first
			_, err := s.Submit(context.Background())
			require.Error(t, err)
			<-api.checkoutIn

			if tc.change != nil {
				tc.change(s)
			}
			api.checkoutOut <- nil
			_, err = s.Submit(context.Background())
			require.NoError(t, err)
			<-api.checkoutIn

			require.Len(t, api.keys, 2)
			if tc.same {
				require.Equal(t, api.keys[0], api.keys[1])
			} else {
				require.NotEqual(t, api.keys[0], api.keys[1])
			}
		})
	}
}

func TestSubmitRequiresReadyForm(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "", 0, millionCart())

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotReady)
	require.Empty(t, api.keys)
}
