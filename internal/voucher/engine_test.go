package voucher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func money(v pricing.Money) *pricing.Money { return &v }

func save10(cap *pricing.Money, minOrder pricing.Money) Voucher {
	return Voucher{
		Code:          "SAVE10",
		Discount:      PercentDiscount{Percent: decimal.NewFromInt(10), MaxAmount: cap},
		MinOrderValue: minOrder,
		StartDate:     now.Add(-24 * time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		MaxUses:       100,
		CurrentUses:   3,
		IsActive:      true,
	}
}

func TestEvaluatePercentWithoutCap(t *testing.T) {
	res := Evaluate(save10(nil, 500_000), now, 1_000_000, nil)
	require.True(t, res.Applicable)
	require.Equal(t, pricing.Money(100_000), res.Discount)
	require.Empty(t, res.Reason)
}

func TestEvaluatePercentClampedToCap(t *testing.T) {
	res := Evaluate(save10(money(50_000), 0), now, 1_000_000, nil)
	require.True(t, res.Applicable)
	require.Equal(t, pricing.Money(50_000), res.Discount)
}

func TestEvaluateBelowMinimum(t *testing.T) {
	res := Evaluate(save10(nil, 500_000), now, 100_000, nil)
	require.False(t, res.Applicable)
	require.Equal(t, ReasonBelowMinimum, res.Reason)
	require.Equal(t, pricing.Money(0), res.Discount)
	require.NotEmpty(t, res.Message)
}

func TestFixedDiscountClampedToSubtotal(t *testing.T) {
	v := save10(nil, 0)
	v.Discount = FixedDiscount{Amount: 75_000}
	require.Equal(t, pricing.Money(75_000), Evaluate(v, now, 200_000, nil).Discount)
	require.Equal(t, pricing.Money(40_000), Evaluate(v, now, 40_000, nil).Discount)
}

func TestValidateCheckOrder(t *testing.T) {
	gold := &RankRef{ID: "gold", Name: "Gold", Level: 2}
	silver := &ranking.Rank{Name: "Silver", Level: 1}

	// every rule fails; the first in order wins each time one is fixed
	v := save10(nil, 500_000)
	v.IsActive = false
	v.StartDate = now.Add(time.Hour)
	v.CurrentUses = v.MaxUses
	v.RankingRequirement = gold

	require.Equal(t, ReasonInactive, v.Validate(now, 100, silver))
	v.IsActive = true
	require.Equal(t, ReasonOutOfWindow, v.Validate(now, 100, silver))
	v.StartDate = now.Add(-time.Hour)
	require.Equal(t, ReasonUsageExhausted, v.Validate(now, 100, silver))
	v.CurrentUses = 0
	require.Equal(t, ReasonBelowMinimum, v.Validate(now, 100, silver))
	require.Equal(t, ReasonRankInsufficient, v.Validate(now, 600_000, silver))
	require.Equal(t, ReasonRankInsufficient, v.Validate(now, 600_000, nil))
	require.Equal(t, Reason(""), v.Validate(now, 600_000, &ranking.Rank{Name: "Gold", Level: 2}))
	require.Equal(t, Reason(""), v.Validate(now, 600_000, &ranking.Rank{Name: "Platinum", Level: 3}))

	v.RankingRequirement = &RankRef{ID: "gone", Unknown: true}
	require.Equal(t, ReasonRankInsufficient, v.Validate(now, 600_000, &ranking.Rank{Level: 9}))
}

func TestValidateWindowIsInclusive(t *testing.T) {
	v := save10(nil, 0)
	require.Equal(t, Reason(""), v.Validate(v.StartDate, 10, nil))
	require.Equal(t, Reason(""), v.Validate(v.EndDate, 10, nil))
	require.Equal(t, ReasonOutOfWindow, v.Validate(v.EndDate.Add(time.Nanosecond), 10, nil))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	v := save10(money(50_000), 0)
	first := Evaluate(v, now, 777_777, nil)
	second := Evaluate(v, now, 777_777, nil)
	require.Equal(t, first, second)
	require.Equal(t, int32(3), v.CurrentUses)
}

func TestPercentDiscountRespectsCapAndSubtotal(t *testing.T) {
	percents := []string{"0.5", "10", "33.33", "50", "100"}
	caps := []*pricing.Money{nil, money(0), money(1), money(25_000), money(10_000_000)}
	for _, p := range percents {
		for _, c := range caps {
			d := PercentDiscount{Percent: decimal.RequireFromString(p), MaxAmount: c}
			for subtotal := pricing.Money(0); subtotal <= 1_000_000; subtotal += 33_333 {
				got := d.Apply(subtotal)
				require.GreaterOrEqual(t, got, pricing.Money(0))
				require.LessOrEqual(t, got, subtotal)
				if c != nil {
					require.LessOrEqual(t, got, *c)
				}
			}
		}
	}
}
