package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in whole currency units.
type Money = int64

const bpsDenominator = 10000

var hundred = decimal.NewFromInt(100)

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Totals aggregates computed checkout amounts.
type Totals struct {
	Subtotal        Money `json:"subtotal"`
	RankingDiscount Money `json:"ranking_discount"`
	VoucherDiscount Money `json:"voucher_discount"`
	TotalDiscount   Money `json:"total_discount"`
	Tax             Money `json:"tax"`
	FinalTotal      Money `json:"final_total"`
}

// ErrOverflow reports an amount that does not fit in Money.
var ErrOverflow = errors.New("amount exceeds representable range")

// Subtotal sums unit price times quantity, skipping lines with no quantity or a negative price.
// A sum that would overflow yields 0; use CheckedSubtotal to detect it.
func Subtotal(items []Item) Money {
	subtotal, err := CheckedSubtotal(items)
	if err != nil {
		return 0
	}
	return subtotal
}

// CheckedSubtotal is Subtotal returning ErrOverflow when a line total or the sum
// exceeds math.MaxInt64.
func CheckedSubtotal(items []Item) (Money, error) {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 || it.UnitPrice < 0 {
			continue
		}
		qty := Money(it.Qty)
		if it.UnitPrice > math.MaxInt64/qty {
			return 0, ErrOverflow
		}
		line := qty * it.UnitPrice
		if subtotal > math.MaxInt64-line {
			return 0, ErrOverflow
		}
		subtotal += line
	}
	return subtotal, nil
}

// RoundHalfUp converts d to whole currency units, rounding halves up.
func RoundHalfUp(d decimal.Decimal) Money {
	return d.Round(0).IntPart()
}

// Percent returns round(amount * percent / 100). Non-positive inputs yield 0.
func Percent(amount Money, percent decimal.Decimal) Money {
	if amount <= 0 || !percent.IsPositive() {
		return 0
	}
	return RoundHalfUp(decimal.NewFromInt(amount).Mul(percent).Div(hundred))
}

// Tax returns round(amount * taxBps / 10000).
func Tax(amount Money, taxBps int) Money {
	if amount <= 0 || taxBps <= 0 {
		return 0
	}
	return RoundHalfUp(decimal.NewFromInt(amount).Mul(decimal.NewFromInt(int64(taxBps))).Div(decimal.NewFromInt(bpsDenominator)))
}

// ComputeTotals combines the subtotal, the two independently computed discounts and the tax rate.
//
// The discounts are additive and capped together at the subtotal; the ranking discount keeps
// priority when the cap bites, so RankingDiscount+VoucherDiscount always equals TotalDiscount.
// Tax is charged on the pre-discount subtotal.
func ComputeTotals(subtotal, rankingDiscount, voucherDiscount Money, taxBps int) Totals {
	subtotal = max(subtotal, 0)
	rankingDiscount = clamp(rankingDiscount, 0, subtotal)
	voucherDiscount = clamp(voucherDiscount, 0, subtotal-rankingDiscount)
	totalDiscount := rankingDiscount + voucherDiscount
	tax := Tax(subtotal, taxBps)
	return Totals{
		Subtotal:        subtotal,
		RankingDiscount: rankingDiscount,
		VoucherDiscount: voucherDiscount,
		TotalDiscount:   totalDiscount,
		Tax:             tax,
		FinalTotal:      subtotal - totalDiscount + tax,
	}
}

func clamp(v, lo, hi Money) Money {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
