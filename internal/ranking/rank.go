package ranking

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront-checkout/internal/pricing"
)

// DefaultRankName names the fallback tier used when no rank table is configured.
const DefaultRankName = "Member"

var (
	// ErrUnsorted indicates ranks are not in ascending min_spending order.
	ErrUnsorted = errors.New("ranks must be sorted by min_spending")
	// ErrFirstRankNotZero indicates the lowest rank does not start at zero spending.
	ErrFirstRankNotZero = errors.New("lowest rank must start at zero spending")
	// ErrGap indicates a spending value that no rank covers.
	ErrGap = errors.New("rank intervals leave a gap")
	// ErrOverlap indicates a spending value covered by more than one rank.
	ErrOverlap = errors.New("rank intervals overlap")
	// ErrOpenEndedNotLast indicates an open-ended rank followed by another rank.
	ErrOpenEndedNotLast = errors.New("only the highest rank may be open-ended")
	// ErrInvalidBounds indicates a rank whose max_spending does not exceed min_spending.
	ErrInvalidBounds = errors.New("max_spending must be greater than min_spending")
	// ErrInvalidPercent indicates a discount percent outside [0, 100].
	ErrInvalidPercent = errors.New("discount_percent must be between 0 and 100")
	// ErrDuplicateName indicates two ranks sharing a name.
	ErrDuplicateName = errors.New("rank names must be unique")
)

var hundred = decimal.NewFromInt(100)

// Rank is a loyalty tier covering the half-open spending interval [MinSpending, MaxSpending).
type Rank struct {
	ID              string          `json:"id,omitempty"`
	Name            string          `json:"rank_name"`
	Level           int             `json:"level"`
	MinSpending     pricing.Money   `json:"min_spending"`
	MaxSpending     *pricing.Money  `json:"max_spending"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Benefits        []string        `json:"benefits"`
}

// Contains reports whether spending falls inside the rank interval.
func (r Rank) Contains(spending pricing.Money) bool {
	if spending < r.MinSpending {
		return false
	}
	return r.MaxSpending == nil || spending < *r.MaxSpending
}

// DefaultRank is the lowest tier with no discount.
func DefaultRank() Rank {
	return Rank{Name: DefaultRankName, DiscountPercent: decimal.Zero, Benefits: []string{}}
}

// Table is an ascending list of ranks partitioning the spending domain.
type Table []Rank

// NewTable copies ranks and assigns each its level from its position.
func NewTable(ranks []Rank) Table {
	out := make(Table, len(ranks))
	copy(out, ranks)
	for i := range out {
		out[i].Level = i
	}
	return out
}

// Validate checks that the table partitions [0, ∞) without gaps or overlaps.
func (t Table) Validate() error {
	seen := make(map[string]struct{}, len(t))
	for i, r := range t {
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("rank %q: %w", r.Name, ErrDuplicateName)
		}
		seen[r.Name] = struct{}{}
		if r.DiscountPercent.IsNegative() || r.DiscountPercent.GreaterThan(hundred) {
			return fmt.Errorf("rank %q: %w", r.Name, ErrInvalidPercent)
		}
		if r.MaxSpending != nil && *r.MaxSpending <= r.MinSpending {
			return fmt.Errorf("rank %q: %w", r.Name, ErrInvalidBounds)
		}
		if i == 0 {
			if r.MinSpending != 0 {
				return ErrFirstRankNotZero
			}
			continue
		}
		prev := t[i-1]
		if r.MinSpending < prev.MinSpending {
			return ErrUnsorted
		}
		if prev.MaxSpending == nil {
			return fmt.Errorf("rank %q: %w", prev.Name, ErrOpenEndedNotLast)
		}
		switch {
		case r.MinSpending > *prev.MaxSpending:
			return fmt.Errorf("between %q and %q: %w", prev.Name, r.Name, ErrGap)
		case r.MinSpending < *prev.MaxSpending:
			return fmt.Errorf("between %q and %q: %w", prev.Name, r.Name, ErrOverlap)
		}
	}
	return nil
}

// Resolve selects the rank containing spending. Spending above every bound maps to the
// highest rank and an empty table yields DefaultRank.
func (t Table) Resolve(spending pricing.Money) Rank {
	if len(t) == 0 {
		return DefaultRank()
	}
	spending = max(spending, 0)
	for _, r := range t {
		if r.Contains(spending) {
			return r
		}
	}
	// Out of bounds on a malformed table: take the highest rank already reached.
	best := t[0]
	for _, r := range t {
		if r.MinSpending <= spending {
			best = r
		}
	}
	return best
}

// Lowest returns the first tier of the table with its discount removed, or DefaultRank.
func (t Table) Lowest() Rank {
	if len(t) == 0 {
		return DefaultRank()
	}
	r := t[0]
	r.DiscountPercent = decimal.Zero
	return r
}

// Find looks a rank up by identifier.
func (t Table) Find(id string) (Rank, bool) {
	for _, r := range t {
		if r.ID != "" && r.ID == id {
			return r, true
		}
	}
	return Rank{}, false
}

// Outcome is the rank selected for a customer and the discount it grants on the current subtotal.
type Outcome struct {
	Rank     Rank          `json:"rank"`
	Discount pricing.Money `json:"discount"`
}

// ComputeRankingDiscount resolves the rank for lifetime spending and applies its percent to
// the current subtotal.
func ComputeRankingDiscount(spending pricing.Money, table Table, subtotal pricing.Money) Outcome {
	rank := table.Resolve(spending)
	return Outcome{Rank: rank, Discount: Discount(rank, subtotal)}
}

// Discount applies the rank percent to subtotal, never exceeding it.
func Discount(rank Rank, subtotal pricing.Money) pricing.Money {
	return min(pricing.Percent(subtotal, rank.DiscountPercent), max(subtotal, 0))
}
