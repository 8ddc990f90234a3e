// Package session holds the storefront's checkout form state and derives totals from it.
package session

import (
	"strings"

	"github.com/noah-isme/storefront-checkout/internal/cart"
	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

// Form is the shopper-entered part of the checkout.
type Form struct {
	CustomerName    string `validate:"required,max=120"`
	PhoneNumber     string `validate:"required,min=6,max=20"`
	Email           string `validate:"required,email"`
	ShippingAddress string `validate:"required,max=500"`
	OrderNote       string `validate:"max=500"`
	PaymentMethodID string `validate:"required"`
}

// VoucherStatus tracks where the voucher input is in its validation lifecycle.
type VoucherStatus int

const (
	VoucherNone VoucherStatus = iota
	VoucherPending
	VoucherApplied
	VoucherRejected
	// VoucherFailed means the last validation did not reach the backend.
	VoucherFailed
	// VoucherOutdated means the cart changed after the voucher was validated.
	VoucherOutdated
)

func (s VoucherStatus) String() string {
	switch s {
	case VoucherPending:
		return "pending"
	case VoucherApplied:
		return "applied"
	case VoucherRejected:
		return "rejected"
	case VoucherFailed:
		return "failed"
	case VoucherOutdated:
		return "outdated"
	default:
		return "none"
	}
}

// VoucherState is the voucher input and the last committed validation result.
type VoucherState struct {
	Code     string
	Status   VoucherStatus
	Discount pricing.Money
	Reason   voucher.Reason
	Message  string
	// Subtotal the result was computed against.
	Subtotal pricing.Money
}

// RankState is the customer's rank as far as the storefront knows it.
type RankState struct {
	Rank   ranking.Rank
	Loaded bool
	// Fallback is set when the default rank stands in for an unavailable lookup.
	Fallback bool
}

// View is everything the UI needs to render the checkout.
type View struct {
	Totals        pricing.Totals
	Rank          ranking.Rank
	Voucher       VoucherState
	CartValid     bool
	ContactValid  bool
	ShippingValid bool
	PaymentValid  bool
	// VoucherApplied is true only when the voucher discount is part of Totals.
	VoucherApplied bool
	ReadyToSubmit  bool
}

var (
	contactFields  = []string{"CustomerName", "PhoneNumber", "Email"}
	shippingFields = []string{"ShippingAddress", "OrderNote"}
	paymentFields  = []string{"PaymentMethodID"}
)

// Compute derives totals and step flags. It has no side effects and is safe to call on
// every keystroke. A voucher discount counts only when its result was computed against the
// current subtotal.
func Compute(snap cart.Snapshot, form Form, v VoucherState, r RankState, taxBps int) View {
	rank := r.Rank
	if !r.Loaded {
		rank = ranking.DefaultRank()
	}
	view := View{Rank: rank, Voucher: v}

	view.CartValid = snap.Validate() == nil
	subtotal := pricing.Money(0)
	if view.CartValid {
		subtotal = snap.Subtotal()
	}

	view.VoucherApplied = v.Status == VoucherApplied && v.Subtotal == subtotal && subtotal > 0
	var voucherDiscount pricing.Money
	if view.VoucherApplied {
		voucherDiscount = v.Discount
	}
	view.Totals = pricing.ComputeTotals(subtotal, ranking.Discount(rank, subtotal), voucherDiscount, taxBps)

	form = trimForm(form)
	validate := common.Validator()
	view.ContactValid = validate.StructPartial(form, contactFields...) == nil
	view.ShippingValid = validate.StructPartial(form, shippingFields...) == nil
	view.PaymentValid = validate.StructPartial(form, paymentFields...) == nil

	view.ReadyToSubmit = view.CartValid && view.ContactValid && view.ShippingValid && view.PaymentValid &&
		v.Status != VoucherPending && v.Status != VoucherOutdated
	return view
}

func trimForm(f Form) Form {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	f.Email = strings.TrimSpace(f.Email)
	f.ShippingAddress = strings.TrimSpace(f.ShippingAddress)
	f.OrderNote = strings.TrimSpace(f.OrderNote)
	f.PaymentMethodID = strings.TrimSpace(f.PaymentMethodID)
	return f
}
