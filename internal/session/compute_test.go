package session

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-checkout/internal/cart"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
)

func snapshot(lines ...cart.LineItem) cart.Snapshot { return cart.NewSnapshot(lines) }

func millionCart() cart.Snapshot {
	return snapshot(cart.LineItem{ProductID: "pd-1", Name: "Jaket", UnitPrice: 500_000, Quantity: 2})
}

func completeForm() Form {
	return Form{
		CustomerName:    "Rina",
		PhoneNumber:     "081234567890",
		Email:           "rina@example.com",
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethodID: "bank-transfer",
	}
}

func silverRank() RankState {
	return RankState{Rank: ranking.Rank{Name: "Silver", Level: 1, MinSpending: 500_000, DiscountPercent: decimal.NewFromInt(10)}, Loaded: true}
}

func TestComputeAppliesRankAndVoucher(t *testing.T) {
	v := VoucherState{Code: "SAVE5", Status: VoucherApplied, Discount: 50_000, Subtotal: 1_000_000}

	view := Compute(millionCart(), completeForm(), v, silverRank(), 1100)
	require.True(t, view.VoucherApplied)
	require.True(t, view.ReadyToSubmit)
	require.Equal(t, pricing.Totals{
		Subtotal:        1_000_000,
		RankingDiscount: 100_000,
		VoucherDiscount: 50_000,
		TotalDiscount:   150_000,
		Tax:             110_000,
		FinalTotal:      960_000,
	}, view.Totals)
}

func TestComputeIgnoresVoucherValidatedAgainstOtherSubtotal(t *testing.T) {
	v := VoucherState{Code: "SAVE5", Status: VoucherApplied, Discount: 50_000, Subtotal: 2_000_000}

	view := Compute(millionCart(), completeForm(), v, silverRank(), 0)
	require.False(t, view.VoucherApplied)
	require.Zero(t, view.Totals.VoucherDiscount)
}

func TestComputeDefaultsRankUntilLoaded(t *testing.T) {
	view := Compute(millionCart(), completeForm(), VoucherState{}, RankState{}, 0)
	require.Equal(t, ranking.DefaultRank().Name, view.Rank.Name)
	require.Zero(t, view.Totals.RankingDiscount)
	require.EqualValues(t, 1_000_000, view.Totals.FinalTotal)
}

func TestComputeStepFlags(t *testing.T) {
	cases := []struct {
		name   string
		snap   cart.Snapshot
		form   func(*Form)
		status VoucherStatus
		check  func(*testing.T, View)
	}{
		{
			name: "empty cart",
			snap: snapshot(),
			check: func(t *testing.T, v View) {
				require.False(t, v.CartValid)
				require.False(t, v.ReadyToSubmit)
				require.Zero(t, v.Totals.FinalTotal)
			},
		},
		{
			name: "bad email",
			snap: millionCart(),
			form: func(f *Form) { f.Email = "rina@" },
			check: func(t *testing.T, v View) {
				require.False(t, v.ContactValid)
				require.True(t, v.ShippingValid)
				require.False(t, v.ReadyToSubmit)
			},
		},
		{
			name: "blank address",
			snap: millionCart(),
			form: func(f *Form) { f.ShippingAddress = "   " },
			check: func(t *testing.T, v View) {
				require.False(t, v.ShippingValid)
			},
		},
		{
			name: "missing payment",
			snap: millionCart(),
			form: func(f *Form) { f.PaymentMethodID = "" },
			check: func(t *testing.T, v View) {
				require.False(t, v.PaymentValid)
			},
		},
		{
			name:   "pending voucher blocks submit",
			snap:   millionCart(),
			status: VoucherPending,
			check: func(t *testing.T, v View) {
				require.False(t, v.ReadyToSubmit)
			},
		},
		{
			name:   "rejected voucher does not block submit",
			snap:   millionCart(),
			status: VoucherRejected,
			check: func(t *testing.T, v View) {
				require.True(t, v.ReadyToSubmit)
				require.False(t, v.VoucherApplied)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := completeForm()
			if tc.form != nil {
				tc.form(&form)
			}
			tc.check(t, Compute(tc.snap, form, VoucherState{Code: "X", Status: tc.status}, silverRank(), 0))
		})
	}
}
