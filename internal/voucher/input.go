package voucher

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront-checkout/internal/common"
	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
)

var (
	// ErrInvalidPercent indicates a percent discount outside (0, 100].
	ErrInvalidPercent = errors.New("discount_percent must be greater than 0 and at most 100")
	// ErrMaxUsesBelowCurrent indicates an update lowering max_uses under current_uses.
	ErrMaxUsesBelowCurrent = errors.New("max_uses cannot be lower than current_uses")
	// ErrInvalidCode indicates a code containing whitespace.
	ErrInvalidCode = errors.New("code must not contain whitespace")
)

var hundred = decimal.NewFromInt(100)

// Input is the staff payload for creating or updating a voucher. Exactly one of
// DiscountPercent and DiscountAmount must be set.
type Input struct {
	Code                 string           `json:"code" validate:"required,max=64"`
	DiscountPercent      *decimal.Decimal `json:"discount_percent" validate:"required_without=DiscountAmount,excluded_with=DiscountAmount"`
	DiscountAmount       *pricing.Money   `json:"discount_amount" validate:"omitempty,gt=0"`
	MaxDiscountAmount    *pricing.Money   `json:"max_discount_amount" validate:"omitempty,gt=0,excluded_with=DiscountAmount"`
	MinOrderValue        pricing.Money    `json:"min_order_value" validate:"gte=0"`
	StartDate            time.Time        `json:"start_date" validate:"required"`
	EndDate              time.Time        `json:"end_date" validate:"required,gtfield=StartDate"`
	MaxUses              int32            `json:"max_uses" validate:"gte=1"`
	RankingRequirementID *string          `json:"ranking_requirement_id" validate:"omitempty,uuid"`
	IsActive             *bool            `json:"is_active"`
	Description          string           `json:"description" validate:"max=500"`
}

// Discount returns the discount rule described by the input.
func (in Input) Discount() (Discount, error) {
	if in.DiscountPercent != nil {
		pct := *in.DiscountPercent
		if !pct.IsPositive() || pct.GreaterThan(hundred) {
			return nil, ErrInvalidPercent
		}
		return PercentDiscount{Percent: pct, MaxAmount: in.MaxDiscountAmount}, nil
	}
	if in.DiscountAmount != nil {
		return FixedDiscount{Amount: *in.DiscountAmount}, nil
	}
	return nil, errors.New("either discount_percent or discount_amount is required")
}

// Check runs the struct rules and the cross-field rules the tags cannot express.
func (in Input) Check() error {
	if err := common.Validator().Struct(in); err != nil {
		return err
	}
	if strings.ContainsAny(strings.TrimSpace(in.Code), " \t\r\n") {
		return ErrInvalidCode
	}
	_, err := in.Discount()
	return err
}

func (in Input) createParams() (dbgen.CreateVoucherParams, error) {
	if err := in.Check(); err != nil {
		return dbgen.CreateVoucherParams{}, err
	}
	discount, err := in.Discount()
	if err != nil {
		return dbgen.CreateVoucherParams{}, err
	}
	params := dbgen.CreateVoucherParams{
		Code:          NormalizeCode(in.Code),
		MinOrderValue: in.MinOrderValue,
		StartDate:     pgtype.Timestamptz{Time: in.StartDate, Valid: true},
		EndDate:       pgtype.Timestamptz{Time: in.EndDate, Valid: true},
		MaxUses:       in.MaxUses,
		IsActive:      in.IsActive == nil || *in.IsActive,
		Description:   strings.TrimSpace(in.Description),
	}
	switch d := discount.(type) {
	case PercentDiscount:
		params.Kind = dbgen.DiscountKindPercent
		params.DiscountPercent = decimal.NullDecimal{Decimal: d.Percent, Valid: true}
		if d.MaxAmount != nil {
			params.MaxDiscountAmount = pgtype.Int8{Int64: *d.MaxAmount, Valid: true}
		}
	case FixedDiscount:
		params.Kind = dbgen.DiscountKindFixedAmount
		params.DiscountAmount = pgtype.Int8{Int64: d.Amount, Valid: true}
	}
	if in.RankingRequirementID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*in.RankingRequirementID))
		if err != nil {
			return dbgen.CreateVoucherParams{}, err
		}
		params.RankingRequirementID = pgtype.UUID{Bytes: id, Valid: true}
	}
	return params, nil
}
