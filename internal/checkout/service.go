package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/cart"
	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/db"
	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
	"github.com/noah-isme/storefront-checkout/internal/events"
	"github.com/noah-isme/storefront-checkout/internal/lock"
	"github.com/noah-isme/storefront-checkout/internal/obs"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

// StatusPending is the status of a freshly submitted order.
const StatusPending = "PENDING"

// RankingService resolves customer standings.
type RankingService interface {
	CustomerRanking(ctx context.Context, customerID string) (ranking.Standing, error)
}

// VoucherService evaluates and settles vouchers.
type VoucherService interface {
	Evaluate(ctx context.Context, code string, subtotal pricing.Money, customerRank *ranking.Rank) (voucher.Result, error)
	Redeem(ctx context.Context, q voucher.RedeemQuerier, code string, orderID pgtype.UUID, customerID string, amount pricing.Money) error
	Invalidate(ctx context.Context, code string)
}

// Locker guards a key for the duration of fn.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// OrderReader loads persisted orders.
type OrderReader interface {
	GetOrderByCode(ctx context.Context, odID string) (dbgen.Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]dbgen.OrderItem, error)
}

// Service recomputes totals server side and persists orders.
type Service struct {
	Q        OrderReader
	Tx       db.TxRunner
	Ranking  RankingService
	Vouchers VoucherService
	Events   *events.Bus
	Locker   Locker
	LockTTL  time.Duration
	TaxBps   int
	Currency string
	Now      func() time.Time
}

// Quote prices snap for the customer, ignoring any client-side totals.
func (s *Service) Quote(ctx context.Context, customerID, voucherCode string, snap cart.Snapshot) (Quote, error) {
	if s == nil || s.Ranking == nil || s.Vouchers == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	if err := snap.Validate(); err != nil {
		return Quote{}, cartError(err)
	}
	subtotal := snap.Subtotal()
	customerID = strings.TrimSpace(customerID)

	rank := ranking.DefaultRank()
	standing, err := s.Ranking.CustomerRanking(ctx, customerID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("customer_id", customerID).Msg("ranking_lookup_failed_using_default")
	} else {
		rank = standing.Rank
	}
	var customerRank *ranking.Rank
	if customerID != "" {
		customerRank = &rank
	}

	quote := Quote{Rank: rank, TaxRateBps: s.TaxBps, Currency: s.Currency}
	rankingDiscount := ranking.Discount(rank, subtotal)
	var voucherDiscount pricing.Money
	if code := voucher.NormalizeCode(voucherCode); code != "" {
		res, err := s.Vouchers.Evaluate(ctx, code, subtotal, customerRank)
		if err != nil {
			return Quote{}, fmt.Errorf("evaluate voucher: %w", err)
		}
		quote.Voucher = &res
		if res.Applicable {
			voucherDiscount = res.Discount
		}
	}
	quote.Totals = pricing.ComputeTotals(subtotal, rankingDiscount, voucherDiscount, s.TaxBps)
	return quote, nil
}

// Submit validates in, re-quotes it and persists the order together with the voucher
// redemption in one transaction. idemKey scopes the in-flight guard; when empty the cart
// fingerprint and contact details are used.
func (s *Service) Submit(ctx context.Context, in Input, idemKey string) (Order, error) {
	if s == nil || s.Tx == nil || s.Locker == nil {
		return Order{}, errors.New("checkout service not configured")
	}
	if err := common.Validator().Struct(in); err != nil {
		obs.IncCounter(obs.CheckoutSubmitTotal, "invalid")
		appErr := common.NewAppError(common.CodeValidationFailed, "payload failed validation", http.StatusBadRequest, err)
		appErr.Details = common.ValidationDetails(err)
		return Order{}, appErr
	}
	snap := Snapshot(in.Items)
	var order Order
	err := s.Locker.TryWithLock(ctx, s.lockKey(in, snap, idemKey), s.LockTTL, func(ctx context.Context) error {
		var err error
		order, err = s.submit(ctx, in, snap)
		return err
	})
	switch {
	case errors.Is(err, lock.ErrLocked):
		obs.IncCounter(obs.CheckoutSubmitTotal, "in_progress")
		return Order{}, common.NewAppError(common.CodeCheckoutInProgress, "an identical checkout is already being processed", http.StatusConflict, err)
	case err != nil:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			obs.IncCounter(obs.CheckoutSubmitTotal, "rejected")
		} else {
			obs.IncCounter(obs.CheckoutSubmitTotal, "error")
		}
		return Order{}, err
	}
	obs.IncCounter(obs.CheckoutSubmitTotal, "created")
	obs.ObserveFinalTotal(order.Totals.FinalTotal)
	return order, nil
}

func (s *Service) submit(ctx context.Context, in Input, snap cart.Snapshot) (Order, error) {
	code := in.voucherCode()
	quote, err := s.Quote(ctx, in.CustomerID, code, snap)
	if err != nil {
		return Order{}, err
	}
	if quote.Voucher != nil && !quote.Voucher.Applicable {
		return Order{}, voucherError(quote.Voucher.Reason)
	}

	odID := NewOrderCode(s.now())
	var (
		row      dbgen.Order
		items    []dbgen.OrderItem
		recorded []dbgen.DomainEvent
	)
	err = s.Tx.ExecTx(ctx, func(q dbgen.Querier) error {
		recorded = recorded[:0]
		items = items[:0]
		var err error
		row, err = q.CreateOrder(ctx, orderParams(odID, in, code, quote, s.Currency))
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for _, line := range snap.Items {
			item := dbgen.CreateOrderItemParams{
				OrderID:   row.ID,
				PdID:      line.ProductID,
				PdName:    line.Name,
				PdPrice:   line.UnitPrice,
				Quantity:  int32(line.Quantity),
				LineTotal: line.UnitPrice * int64(line.Quantity),
			}
			if err := q.CreateOrderItem(ctx, item); err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			items = append(items, dbgen.OrderItem{
				OrderID: row.ID, PdID: item.PdID, PdName: item.PdName,
				PdPrice: item.PdPrice, Quantity: item.Quantity, LineTotal: item.LineTotal,
			})
		}
		if code != "" {
			if err := s.Vouchers.Redeem(ctx, q, code, row.ID, in.CustomerID, quote.Totals.VoucherDiscount); err != nil {
				return redeemError(err)
			}
			ev, err := events.Record(ctx, q, events.TopicVoucherRedeemed, row.ID, events.VoucherRedeemed{
				Code:     code,
				OrderID:  odID,
				Discount: quote.Totals.VoucherDiscount,
			})
			if err != nil {
				return err
			}
			recorded = append(recorded, ev)
		}
		ev, err := events.Record(ctx, q, events.TopicOrderCreated, row.ID, events.OrderCreated{
			OrderID:     uuidString(row.ID),
			OdID:        odID,
			CustomerID:  strings.TrimSpace(in.CustomerID),
			FinalTotal:  quote.Totals.FinalTotal,
			VoucherCode: code,
			RankName:    quote.Rank.Name,
		})
		if err != nil {
			return err
		}
		recorded = append(recorded, ev)
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if code != "" {
		s.Vouchers.Invalidate(ctx, code)
	}
	for _, ev := range recorded {
		if err := s.Events.Dispatch(ctx, ev); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("topic", ev.Topic).Str("od_id", odID).Msg("event_dispatch_failed")
		}
	}
	zerolog.Ctx(ctx).Info().Str("od_id", odID).Int64("final_total", quote.Totals.FinalTotal).Msg("order_created")
	return toOrder(row, items), nil
}

// Get loads an order by its public code.
func (s *Service) Get(ctx context.Context, odID string) (Order, error) {
	if s == nil || s.Q == nil {
		return Order{}, errors.New("checkout service not configured")
	}
	row, err := s.Q.GetOrderByCode(ctx, strings.TrimSpace(odID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, common.NotFound("order not found", err)
		}
		return Order{}, err
	}
	items, err := s.Q.ListOrderItems(ctx, row.ID)
	if err != nil {
		return Order{}, err
	}
	return toOrder(row, items), nil
}

func (s *Service) lockKey(in Input, snap cart.Snapshot, idemKey string) string {
	if key := strings.TrimSpace(idemKey); key != "" {
		return "checkout:submit:" + common.Fingerprint(key)
	}
	owner := strings.TrimSpace(in.CustomerID)
	if owner == "" {
		owner = strings.ToLower(strings.TrimSpace(in.Email))
	}
	return "checkout:submit:" + common.Fingerprint(owner, snap.Fingerprint(), in.voucherCode())
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NewOrderCode returns a human-friendly unique order code such as OD20260301-1A2B3C4D.
func NewOrderCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "OD" + now.UTC().Format("20060102") + "-" + suffix
}

func orderParams(odID string, in Input, code string, quote Quote, currency string) dbgen.CreateOrderParams {
	params := dbgen.CreateOrderParams{
		OdID:            odID,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		PhoneNumber:     strings.TrimSpace(in.PhoneNumber),
		Email:           strings.TrimSpace(in.Email),
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		PaymentMethodID: strings.TrimSpace(in.PaymentMethodID),
		RankName:        quote.Rank.Name,
		Currency:        currency,
		Subtotal:        quote.Totals.Subtotal,
		RankingDiscount: quote.Totals.RankingDiscount,
		VoucherDiscount: quote.Totals.VoucherDiscount,
		Tax:             quote.Totals.Tax,
		FinalTotal:      quote.Totals.FinalTotal,
		Status:          StatusPending,
	}
	if id := strings.TrimSpace(in.CustomerID); id != "" {
		params.CustomerID = pgtype.Text{String: id, Valid: true}
	}
	if in.OrderNote != nil && strings.TrimSpace(*in.OrderNote) != "" {
		params.OrderNote = pgtype.Text{String: strings.TrimSpace(*in.OrderNote), Valid: true}
	}
	if code != "" {
		params.VoucherCode = pgtype.Text{String: code, Valid: true}
	}
	return params
}

func toOrder(row dbgen.Order, items []dbgen.OrderItem) Order {
	out := Order{
		ID:              uuidString(row.ID),
		OdID:            row.OdID,
		Status:          row.Status,
		CustomerID:      row.CustomerID.String,
		CustomerName:    row.CustomerName,
		PhoneNumber:     row.PhoneNumber,
		Email:           row.Email,
		ShippingAddress: row.ShippingAddress,
		PaymentMethodID: row.PaymentMethodID,
		OrderNote:       row.OrderNote.String,
		VoucherCode:     row.VoucherCode.String,
		RankName:        row.RankName,
		Currency:        row.Currency,
		Totals: pricing.Totals{
			Subtotal:        row.Subtotal,
			RankingDiscount: row.RankingDiscount,
			VoucherDiscount: row.VoucherDiscount,
			TotalDiscount:   row.RankingDiscount + row.VoucherDiscount,
			Tax:             row.Tax,
			FinalTotal:      row.FinalTotal,
		},
		Items: make([]OrderItem, 0, len(items)),
	}
	if row.CreatedAt.Valid {
		out.CreatedAt = row.CreatedAt.Time
	}
	for _, it := range items {
		out.Items = append(out.Items, OrderItem{
			PdID:      it.PdID,
			PdName:    it.PdName,
			PdPrice:   it.PdPrice,
			Quantity:  int(it.Quantity),
			LineTotal: it.LineTotal,
		})
	}
	return out
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

func cartError(err error) error {
	code := "INVALID_CART"
	if errors.Is(err, cart.ErrEmptyCart) {
		code = "EMPTY_CART"
	}
	return common.NewAppError(code, err.Error(), http.StatusBadRequest, err)
}

func voucherError(reason voucher.Reason) error {
	return common.Unprocessable(common.CodeVoucherNotApplicable, reason.Message(), errors.New(string(reason))).
		WithDetails(map[string]string{"reason": string(reason)})
}

func redeemError(err error) error {
	switch {
	case errors.Is(err, voucher.ErrRedeemRejected):
		return voucherError(voucher.ReasonUsageExhausted)
	case errors.Is(err, voucher.ErrNotFound):
		return voucherError(voucher.ReasonNotFound)
	default:
		return fmt.Errorf("redeem voucher: %w", err)
	}
}
