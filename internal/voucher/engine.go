package voucher

import (
	"time"

	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
)

// Validate checks the voucher rules at now for subtotal and the customer's rank, returning
// the first failing reason or "" when the voucher applies. A nil customerRank means the
// customer has no rank.
func (v Voucher) Validate(now time.Time, subtotal pricing.Money, customerRank *ranking.Rank) Reason {
	if !v.IsActive {
		return ReasonInactive
	}
	if now.Before(v.StartDate) || now.After(v.EndDate) {
		return ReasonOutOfWindow
	}
	if v.CurrentUses >= v.MaxUses {
		return ReasonUsageExhausted
	}
	if subtotal < v.MinOrderValue {
		return ReasonBelowMinimum
	}
	if req := v.RankingRequirement; req != nil {
		if req.Unknown || customerRank == nil || customerRank.Level < req.Level {
			return ReasonRankInsufficient
		}
	}
	return ""
}

// Evaluate validates v and computes its discount on subtotal. It has no side effects.
func Evaluate(v Voucher, now time.Time, subtotal pricing.Money, customerRank *ranking.Rank) Result {
	if reason := v.Validate(now, subtotal, customerRank); reason != "" {
		res := Rejected(v.Code, reason)
		view := v.ToView()
		res.Voucher = &view
		return res
	}
	view := v.ToView()
	return Result{
		Applicable: true,
		Code:       v.Code,
		Discount:   ComputeDiscount(v.Discount, subtotal),
		Voucher:    &view,
	}
}

// ComputeDiscount applies d to subtotal. A missing discount rule grants nothing.
func ComputeDiscount(d Discount, subtotal pricing.Money) pricing.Money {
	if d == nil {
		return 0
	}
	return d.Apply(subtotal)
}
