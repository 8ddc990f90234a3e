package checkout

import (
	"strings"
	"time"

	"github.com/noah-isme/storefront-checkout/internal/cart"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

// Item is a purchased line as submitted by the storefront.
type Item struct {
	PdID     string        `json:"pd_id" validate:"required,max=64"`
	PdName   string        `json:"pd_name" validate:"required,max=200"`
	PdPrice  pricing.Money `json:"pd_price" validate:"gte=0,lte=1000000000000"`
	Quantity int           `json:"quantity" validate:"gte=1,lte=1000"`
}

// Input is the order submission payload.
type Input struct {
	CustomerID      string  `json:"customer_id,omitempty" validate:"omitempty,max=64"`
	CustomerName    string  `json:"customer_name" validate:"required,max=120"`
	PhoneNumber     string  `json:"phone_number" validate:"required,min=6,max=20"`
	Email           string  `json:"email" validate:"required,email"`
	ShippingAddress string  `json:"shipping_address" validate:"required,max=500"`
	PaymentMethodID string  `json:"payment_method_id" validate:"required,max=64"`
	OrderNote       *string `json:"order_note,omitempty" validate:"omitempty,max=500"`
	VoucherCode     *string `json:"voucher_code,omitempty" validate:"omitempty,max=64"`
	Items           []Item  `json:"items" validate:"required,min=1,max=200,dive"`
}

// QuoteInput is the payload of a server-side totals preview.
type QuoteInput struct {
	CustomerID  string `json:"customer_id,omitempty" validate:"omitempty,max=64"`
	VoucherCode string `json:"voucher_code,omitempty" validate:"omitempty,max=64"`
	Items       []Item `json:"items" validate:"required,min=1,max=200,dive"`
}

// Snapshot converts submitted items into a cart snapshot.
func Snapshot(items []Item) cart.Snapshot {
	lines := make([]cart.LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, cart.LineItem{
			ProductID: strings.TrimSpace(it.PdID),
			Name:      strings.TrimSpace(it.PdName),
			UnitPrice: it.PdPrice,
			Quantity:  it.Quantity,
		})
	}
	return cart.NewSnapshot(lines)
}

func (in Input) voucherCode() string {
	if in.VoucherCode == nil {
		return ""
	}
	return voucher.NormalizeCode(*in.VoucherCode)
}

// Quote is the authoritative breakdown of a cart's totals.
type Quote struct {
	Totals     pricing.Totals  `json:"totals"`
	Rank       ranking.Rank    `json:"rank"`
	Voucher    *voucher.Result `json:"voucher,omitempty"`
	TaxRateBps int             `json:"tax_rate_bps"`
	Currency   string          `json:"currency"`
}

// Order is a persisted order as returned to the storefront.
type Order struct {
	ID              string         `json:"id"`
	OdID            string         `json:"od_id"`
	Status          string         `json:"status"`
	CustomerID      string         `json:"customer_id,omitempty"`
	CustomerName    string         `json:"customer_name"`
	PhoneNumber     string         `json:"phone_number"`
	Email           string         `json:"email"`
	ShippingAddress string         `json:"shipping_address"`
	PaymentMethodID string         `json:"payment_method_id"`
	OrderNote       string         `json:"order_note,omitempty"`
	VoucherCode     string         `json:"voucher_code,omitempty"`
	RankName        string         `json:"rank_name"`
	Currency        string         `json:"currency"`
	Totals          pricing.Totals `json:"totals"`
	Items           []OrderItem    `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
}

// OrderItem is a persisted order line.
type OrderItem struct {
	PdID      string        `json:"pd_id"`
	PdName    string        `json:"pd_name"`
	PdPrice   pricing.Money `json:"pd_price"`
	Quantity  int           `json:"quantity"`
	LineTotal pricing.Money `json:"line_total"`
}
