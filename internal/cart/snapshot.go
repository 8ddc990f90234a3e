package cart

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
)

var (
	// ErrEmptyCart is returned when no line items are selected.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidQuantity indicates a line with a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidPrice indicates a line with a negative unit price.
	ErrInvalidPrice = errors.New("unit price must not be negative")
	// ErrSubtotalOverflow indicates line totals too large to add up.
	ErrSubtotalOverflow = errors.New("cart subtotal overflows")
)

// LineItem is a selected product as held by the cart store.
type LineItem struct {
	ProductID  string            `json:"pd_id"`
	Name       string            `json:"pd_name"`
	UnitPrice  pricing.Money     `json:"pd_price"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Snapshot is a read-only copy of the selected cart lines handed to the pricing engine.
type Snapshot struct {
	Items []LineItem `json:"items"`
}

// NewSnapshot copies items so later mutations of the caller's slice do not leak in.
func NewSnapshot(items []LineItem) Snapshot {
	out := make([]LineItem, len(items))
	copy(out, items)
	return Snapshot{Items: out}
}

// Subtotal returns the sum of unit price times quantity over valid lines.
func (s Snapshot) Subtotal() pricing.Money {
	return pricing.Subtotal(s.PricingItems())
}

// PricingItems converts the snapshot to pricing engine items.
func (s Snapshot) PricingItems() []pricing.Item {
	items := make([]pricing.Item, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, pricing.Item{Qty: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return items
}

// Validate reports the first invalid line, or ErrEmptyCart when nothing is selected.
func (s Snapshot) Validate() error {
	if len(s.Items) == 0 {
		return ErrEmptyCart
	}
	for _, it := range s.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("product %s: %w", it.ProductID, ErrInvalidQuantity)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("product %s: %w", it.ProductID, ErrInvalidPrice)
		}
	}
	if _, err := pricing.CheckedSubtotal(s.PricingItems()); err != nil {
		return ErrSubtotalOverflow
	}
	return nil
}

// Fingerprint identifies the priced content of the cart independent of line order.
// Variant attributes are informational and do not contribute.
func (s Snapshot) Fingerprint() string {
	parts := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		parts = append(parts, strings.Join([]string{
			it.ProductID,
			strconv.FormatInt(it.UnitPrice, 10),
			strconv.Itoa(it.Quantity),
		}, "|"))
	}
	sort.Strings(parts)
	return common.Sha256Hex(strings.Join(parts, ";"))
}
