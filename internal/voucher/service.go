package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/cache"
	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
	"github.com/noah-isme/storefront-checkout/internal/obs"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
)

var (
	// ErrNotFound is returned by operations addressing a voucher code that does not exist.
	ErrNotFound = errors.New("voucher not found")
	// ErrRedeemRejected indicates the conditional usage increment refused the redemption.
	ErrRedeemRejected = errors.New("voucher cannot be redeemed")
	// ErrAlreadyRedeemed indicates the order already carries a redemption of the voucher.
	ErrAlreadyRedeemed = errors.New("voucher already redeemed for order")
)

// Querier captures the database methods required by the voucher service.
type Querier interface {
	GetVoucherByCode(ctx context.Context, code string) (dbgen.Voucher, error)
	CreateVoucher(ctx context.Context, arg dbgen.CreateVoucherParams) (dbgen.Voucher, error)
	UpdateVoucher(ctx context.Context, arg dbgen.UpdateVoucherParams) (dbgen.Voucher, error)
	SetVoucherActive(ctx context.Context, arg dbgen.SetVoucherActiveParams) (dbgen.Voucher, error)
	ListVouchers(ctx context.Context, arg dbgen.ListVouchersParams) ([]dbgen.Voucher, error)
	CountVouchers(ctx context.Context) (int64, error)
}

// RedeemQuerier is the transactional subset used when an order redeems a voucher.
type RedeemQuerier interface {
	GetVoucherByCode(ctx context.Context, code string) (dbgen.Voucher, error)
	IncrementVoucherUsage(ctx context.Context, id pgtype.UUID) (int64, error)
	InsertVoucherUsage(ctx context.Context, arg dbgen.InsertVoucherUsageParams) (int64, error)
}

// RankSource resolves rank tables and customer standings.
type RankSource interface {
	Table(ctx context.Context) (ranking.Table, error)
	CustomerRanking(ctx context.Context, customerID string) (ranking.Standing, error)
}

// Service encapsulates voucher lookup, validation and settlement behaviour.
type Service struct {
	Q     Querier
	Ranks RankSource
	Cache *cache.JSON
	Now   func() time.Time
}

// Validate checks code against subtotal for the given customer. An empty customerID means
// an anonymous shopper without rank. Domain failures are reported in the Result; only
// infrastructure failures return an error.
func (s *Service) Validate(ctx context.Context, code string, subtotal pricing.Money, customerID string) (Result, error) {
	var rank *ranking.Rank
	if id := strings.TrimSpace(customerID); id != "" && s.Ranks != nil {
		standing, err := s.Ranks.CustomerRanking(ctx, id)
		if err != nil {
			return Result{}, err
		}
		rank = &standing.Rank
	}
	return s.Evaluate(ctx, code, subtotal, rank)
}

// Evaluate checks code against subtotal for an already resolved customer rank.
func (s *Service) Evaluate(ctx context.Context, code string, subtotal pricing.Money, customerRank *ranking.Rank) (Result, error) {
	if s == nil || s.Q == nil {
		return Result{}, errors.New("voucher service not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return s.record(Rejected(normalized, ReasonNotFound)), nil
	}
	row, err := s.lookup(ctx, normalized)
	if errors.Is(err, ErrNotFound) {
		return s.record(Rejected(normalized, ReasonNotFound)), nil
	}
	if err != nil {
		return Result{}, err
	}
	v, err := s.fromModel(ctx, row)
	if err != nil {
		return Result{}, err
	}
	return s.record(Evaluate(v, s.now(), subtotal, customerRank)), nil
}

func (s *Service) record(res Result) Result {
	label := "APPLIED"
	if !res.Applicable {
		label = string(res.Reason)
	}
	obs.IncCounter(obs.VoucherValidationTotal, label)
	return res
}

// Redeem consumes one use of code for orderID inside the caller's transaction. The usage
// increment is conditional so concurrent redemptions never push current_uses past max_uses.
func (s *Service) Redeem(ctx context.Context, q RedeemQuerier, code string, orderID pgtype.UUID, customerID string, amount pricing.Money) error {
	normalized := NormalizeCode(code)
	row, err := q.GetVoucherByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load voucher: %w", err)
	}
	updated, err := q.IncrementVoucherUsage(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("increment voucher usage: %w", err)
	}
	if updated == 0 {
		obs.IncCounter(obs.VoucherRedemptionTotal, "rejected")
		return ErrRedeemRejected
	}
	params := dbgen.InsertVoucherUsageParams{VoucherID: row.ID, OrderID: orderID, Amount: max(amount, 0)}
	if id := strings.TrimSpace(customerID); id != "" {
		params.CustomerID = pgtype.Text{String: id, Valid: true}
	}
	inserted, err := q.InsertVoucherUsage(ctx, params)
	if err != nil {
		return fmt.Errorf("record voucher usage: %w", err)
	}
	if inserted == 0 {
		return ErrAlreadyRedeemed
	}
	obs.IncCounter(obs.VoucherRedemptionTotal, "redeemed")
	return nil
}

// Invalidate drops the cached record of code.
func (s *Service) Invalidate(ctx context.Context, code string) {
	if s == nil {
		return
	}
	if err := s.Cache.Delete(ctx, cache.KeyVoucher(code)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", NormalizeCode(code)).Msg("voucher_cache_invalidate_failed")
	}
}

// Get returns the voucher stored under code.
func (s *Service) Get(ctx context.Context, code string) (Voucher, error) {
	row, err := s.lookup(ctx, NormalizeCode(code))
	if err != nil {
		return Voucher{}, err
	}
	return s.fromModel(ctx, row)
}

// List returns a page of vouchers, newest first, with the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Voucher, int64, error) {
	page = max(page, 1)
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	rows, err := s.Q.ListVouchers(ctx, dbgen.ListVouchersParams{Limit: int32(perPage), Offset: int32((page - 1) * perPage)})
	if err != nil {
		return nil, 0, fmt.Errorf("list vouchers: %w", err)
	}
	total, err := s.Q.CountVouchers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count vouchers: %w", err)
	}
	out := make([]Voucher, 0, len(rows))
	for _, row := range rows {
		v, err := s.fromModel(ctx, row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, nil
}

// Create stores a new voucher.
func (s *Service) Create(ctx context.Context, in Input) (Voucher, error) {
	params, err := in.createParams()
	if err != nil {
		return Voucher{}, err
	}
	row, err := s.Q.CreateVoucher(ctx, params)
	if err != nil {
		return Voucher{}, err
	}
	s.Invalidate(ctx, row.Code)
	return s.fromModel(ctx, row)
}

// Update replaces the rules of the voucher stored under code. max_uses may not drop below
// the uses already consumed.
func (s *Service) Update(ctx context.Context, code string, in Input) (Voucher, error) {
	normalized := NormalizeCode(code)
	current, err := s.Q.GetVoucherByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrNotFound
		}
		return Voucher{}, err
	}
	if in.MaxUses < current.CurrentUses {
		return Voucher{}, ErrMaxUsesBelowCurrent
	}
	created, err := in.createParams()
	if err != nil {
		return Voucher{}, err
	}
	row, err := s.Q.UpdateVoucher(ctx, dbgen.UpdateVoucherParams{
		Code:                 normalized,
		Kind:                 created.Kind,
		DiscountPercent:      created.DiscountPercent,
		DiscountAmount:       created.DiscountAmount,
		MaxDiscountAmount:    created.MaxDiscountAmount,
		MinOrderValue:        created.MinOrderValue,
		StartDate:            created.StartDate,
		EndDate:              created.EndDate,
		MaxUses:              created.MaxUses,
		RankingRequirementID: created.RankingRequirementID,
		IsActive:             created.IsActive,
		Description:          created.Description,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrNotFound
		}
		return Voucher{}, err
	}
	s.Invalidate(ctx, normalized)
	return s.fromModel(ctx, row)
}

// Deactivate switches the voucher off without deleting its usage history.
func (s *Service) Deactivate(ctx context.Context, code string) (Voucher, error) {
	normalized := NormalizeCode(code)
	row, err := s.Q.SetVoucherActive(ctx, dbgen.SetVoucherActiveParams{Code: normalized, IsActive: false})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrNotFound
		}
		return Voucher{}, err
	}
	s.Invalidate(ctx, normalized)
	return s.fromModel(ctx, row)
}

// lookup reads a voucher through the cache.
func (s *Service) lookup(ctx context.Context, code string) (dbgen.Voucher, error) {
	if code == "" {
		return dbgen.Voucher{}, ErrNotFound
	}
	key := cache.KeyVoucher(code)
	var cached dbgen.Voucher
	found, err := s.Cache.Get(ctx, key, &cached)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("voucher_cache_read_failed")
	}
	if found {
		return cached, nil
	}
	row, err := s.Q.GetVoucherByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Voucher{}, ErrNotFound
		}
		return dbgen.Voucher{}, fmt.Errorf("get voucher: %w", err)
	}
	if err := s.Cache.Set(ctx, key, row); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("voucher_cache_write_failed")
	}
	return row, nil
}

func (s *Service) fromModel(ctx context.Context, row dbgen.Voucher) (Voucher, error) {
	v := FromModel(row)
	if v.RankingRequirement == nil || s.Ranks == nil {
		return v, nil
	}
	table, err := s.Ranks.Table(ctx)
	if err != nil {
		return Voucher{}, err
	}
	if rank, ok := table.Find(v.RankingRequirement.ID); ok {
		v.RankingRequirement.Name = rank.Name
		v.RankingRequirement.Level = rank.Level
	} else {
		v.RankingRequirement.Unknown = true
		zerolog.Ctx(ctx).Warn().Str("code", v.Code).Str("rank_id", v.RankingRequirement.ID).Msg("voucher_rank_requirement_unresolved")
	}
	return v, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FromModel converts the generated sqlc model into a Voucher. The rank requirement carries
// only its identifier until resolved against a rank table.
func FromModel(row dbgen.Voucher) Voucher {
	v := Voucher{
		Code:          row.Code,
		MinOrderValue: row.MinOrderValue,
		StartDate:     row.StartDate.Time,
		EndDate:       row.EndDate.Time,
		MaxUses:       row.MaxUses,
		CurrentUses:   row.CurrentUses,
		IsActive:      row.IsActive,
		Description:   row.Description,
	}
	if row.ID.Valid {
		v.ID = uuid.UUID(row.ID.Bytes).String()
	}
	switch row.Kind {
	case dbgen.DiscountKindPercent:
		d := PercentDiscount{Percent: row.DiscountPercent.Decimal}
		if row.MaxDiscountAmount.Valid {
			capped := row.MaxDiscountAmount.Int64
			d.MaxAmount = &capped
		}
		v.Discount = d
	case dbgen.DiscountKindFixedAmount:
		v.Discount = FixedDiscount{Amount: row.DiscountAmount.Int64}
	}
	if row.RankingRequirementID.Valid {
		v.RankingRequirement = &RankRef{ID: uuid.UUID(row.RankingRequirementID.Bytes).String()}
	}
	return v
}
