package voucher

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront-checkout/internal/pricing"
)

// Reason classifies why a voucher cannot be applied.
type Reason string

const (
	ReasonNotFound         Reason = "NOT_FOUND"
	ReasonInactive         Reason = "INACTIVE"
	ReasonOutOfWindow      Reason = "OUT_OF_WINDOW"
	ReasonUsageExhausted   Reason = "USAGE_EXHAUSTED"
	ReasonBelowMinimum     Reason = "BELOW_MINIMUM"
	ReasonRankInsufficient Reason = "RANK_INSUFFICIENT"
)

// Message returns the shopper-facing text for a reason.
func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return "Voucher code not found"
	case ReasonInactive:
		return "Voucher is no longer active"
	case ReasonOutOfWindow:
		return "Voucher is not valid at this time"
	case ReasonUsageExhausted:
		return "Voucher has reached its usage limit"
	case ReasonBelowMinimum:
		return "Order total is below the voucher minimum"
	case ReasonRankInsufficient:
		return "Your membership rank does not qualify for this voucher"
	default:
		return ""
	}
}

// Discount is the amount rule of a voucher. It is implemented only by PercentDiscount and
// FixedDiscount.
type Discount interface {
	// Apply returns the discount granted on subtotal, never above the subtotal.
	Apply(subtotal pricing.Money) pricing.Money
	isDiscount()
}

// PercentDiscount takes a percentage of the subtotal, optionally capped.
type PercentDiscount struct {
	Percent   decimal.Decimal
	MaxAmount *pricing.Money
}

// Apply implements Discount.
func (d PercentDiscount) Apply(subtotal pricing.Money) pricing.Money {
	discount := pricing.Percent(subtotal, d.Percent)
	if d.MaxAmount != nil && discount > *d.MaxAmount {
		discount = max(*d.MaxAmount, 0)
	}
	return min(discount, max(subtotal, 0))
}

func (PercentDiscount) isDiscount() {}

// FixedDiscount takes a flat amount off the subtotal.
type FixedDiscount struct {
	Amount pricing.Money
}

// Apply implements Discount.
func (d FixedDiscount) Apply(subtotal pricing.Money) pricing.Money {
	if d.Amount <= 0 || subtotal <= 0 {
		return 0
	}
	return min(d.Amount, subtotal)
}

func (FixedDiscount) isDiscount() {}

// RankRef identifies the minimum rank a voucher requires.
type RankRef struct {
	ID    string
	Name  string
	Level int
	// Unknown marks a requirement whose rank is missing from the current table.
	Unknown bool
}

// Voucher is a redeemable code and its eligibility rules.
type Voucher struct {
	ID                 string
	Code               string
	Discount           Discount
	MinOrderValue      pricing.Money
	StartDate          time.Time
	EndDate            time.Time
	MaxUses            int32
	CurrentUses        int32
	RankingRequirement *RankRef
	IsActive           bool
	Description        string
}

// NormalizeCode canonicalises a voucher code for case-insensitive matching.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// View is the wire shape of a voucher record.
type View struct {
	ID                 string           `json:"id,omitempty"`
	Code               string           `json:"code"`
	DiscountPercent    *decimal.Decimal `json:"discount_percent"`
	DiscountAmount     *pricing.Money   `json:"discount_amount"`
	MaxDiscountAmount  *pricing.Money   `json:"max_discount_amount"`
	MinOrderValue      pricing.Money    `json:"min_order_value"`
	StartDate          time.Time        `json:"start_date"`
	EndDate            time.Time        `json:"end_date"`
	MaxUses            int32            `json:"max_uses"`
	CurrentUses        int32            `json:"current_uses"`
	RankingRequirement *RankView        `json:"ranking_requirement,omitempty"`
	IsActive           bool             `json:"is_active"`
	Description        string           `json:"description,omitempty"`
}

// RankView names the rank a voucher requires.
type RankView struct {
	ID       string `json:"id"`
	RankName string `json:"rank_name,omitempty"`
}

// ToView converts a voucher to its wire shape.
func (v Voucher) ToView() View {
	out := View{
		ID:            v.ID,
		Code:          v.Code,
		MinOrderValue: v.MinOrderValue,
		StartDate:     v.StartDate,
		EndDate:       v.EndDate,
		MaxUses:       v.MaxUses,
		CurrentUses:   v.CurrentUses,
		IsActive:      v.IsActive,
		Description:   v.Description,
	}
	switch d := v.Discount.(type) {
	case PercentDiscount:
		pct := d.Percent
		out.DiscountPercent = &pct
		out.MaxDiscountAmount = d.MaxAmount
	case FixedDiscount:
		amount := d.Amount
		out.DiscountAmount = &amount
	}
	if v.RankingRequirement != nil {
		out.RankingRequirement = &RankView{ID: v.RankingRequirement.ID, RankName: v.RankingRequirement.Name}
	}
	return out
}

// Result is the outcome of validating a voucher against a subtotal.
type Result struct {
	Applicable bool          `json:"applicable"`
	Code       string        `json:"code"`
	Discount   pricing.Money `json:"discount"`
	Reason     Reason        `json:"reason,omitempty"`
	Message    string        `json:"message,omitempty"`
	Voucher    *View         `json:"voucher,omitempty"`
}

// Rejected builds a non-applicable result for reason.
func Rejected(code string, reason Reason) Result {
	return Result{Code: code, Reason: reason, Message: reason.Message()}
}
