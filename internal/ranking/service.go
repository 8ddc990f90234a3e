package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/storefront-checkout/internal/cache"
	"github.com/noah-isme/storefront-checkout/internal/db"
	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
	"github.com/noah-isme/storefront-checkout/internal/obs"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
)

// Querier captures the read queries required by the ranking service.
type Querier interface {
	ListRanks(ctx context.Context) ([]dbgen.Rank, error)
	GetCustomerLifetimeSpending(ctx context.Context, customerID pgtype.Text) (int64, error)
}

// Standing is a customer's resolved rank together with the spending it was derived from.
type Standing struct {
	CustomerID    string        `json:"customer_id,omitempty"`
	Rank          Rank          `json:"rank"`
	TotalSpending pricing.Money `json:"total_spending"`
	// Known is false when the customer has no ranking record and the default was used.
	Known bool `json:"known"`
}

const tableLoadTimeout = 5 * time.Second

// Service loads rank tables and customer standings.
type Service struct {
	Q     Querier
	Tx    db.TxRunner
	Cache *cache.JSON

	loads singleflight.Group
}

// Table returns the configured rank table, ordered by min_spending.
func (s *Service) Table(ctx context.Context) (Table, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("ranking service not configured")
	}
	var cached []Rank
	if found, err := s.Cache.Get(ctx, cache.KeyRankTable(), &cached); err == nil && found {
		obs.IncCounter(obs.RankingLookupTotal, "cache")
		return NewTable(cached), nil
	} else if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("rank_table_cache_read_failed")
	}
	// concurrent misses share one query; it must outlive the caller that started it
	ch := s.loads.DoChan("rank-table", func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tableLoadTimeout)
		defer cancel()
		rows, err := s.Q.ListRanks(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("list ranks: %w", err)
		}
		obs.IncCounter(obs.RankingLookupTotal, "database")
		table := tableFromModels(rows)
		if err := s.Cache.Set(loadCtx, cache.KeyRankTable(), []Rank(table)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("rank_table_cache_write_failed")
		}
		return table, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return NewTable(res.Val.(Table)), nil
	}
}

// CustomerRanking resolves the rank of a customer. A missing customer id or an absent
// ranking record yields the lowest tier without discount rather than an error.
func (s *Service) CustomerRanking(ctx context.Context, customerID string) (Standing, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return Standing{}, err
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Standing{Rank: table.Lowest()}, nil
	}
	spending, err := s.spending(ctx, customerID)
	if err != nil {
		return Standing{}, err
	}
	if spending <= 0 {
		return Standing{CustomerID: customerID, Rank: table.Lowest()}, nil
	}
	return Standing{
		CustomerID:    customerID,
		Rank:          table.Resolve(spending),
		TotalSpending: spending,
		Known:         true,
	}, nil
}

// Outcome resolves the customer's rank and its discount on the current subtotal.
func (s *Service) Outcome(ctx context.Context, customerID string, subtotal pricing.Money) (Outcome, error) {
	standing, err := s.CustomerRanking(ctx, customerID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Rank: standing.Rank, Discount: Discount(standing.Rank, subtotal)}, nil
}

func (s *Service) spending(ctx context.Context, customerID string) (pricing.Money, error) {
	key := cache.KeyCustomerSpending(customerID)
	var cached pricing.Money
	if found, err := s.Cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}
	total, err := s.Q.GetCustomerLifetimeSpending(ctx, pgtype.Text{String: customerID, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("customer spending: %w", err)
	}
	if err := s.Cache.Set(ctx, key, total); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("customer_id", customerID).Msg("spending_cache_write_failed")
	}
	return total, nil
}

// InvalidateCustomer drops the cached lifetime spending of a customer.
func (s *Service) InvalidateCustomer(ctx context.Context, customerID string) error {
	if s == nil || strings.TrimSpace(customerID) == "" {
		return nil
	}
	return s.Cache.Delete(ctx, cache.KeyCustomerSpending(customerID))
}

// ReplaceTable validates ranks and stores them as the new rank table. Ranks are matched by
// name so voucher requirements pointing at a kept rank stay attached.
func (s *Service) ReplaceTable(ctx context.Context, ranks []Rank) (Table, error) {
	if s == nil || s.Tx == nil {
		return nil, errors.New("ranking service not configured")
	}
	table := NewTable(ranks)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	stored := make(Table, 0, len(table))
	err := s.Tx.ExecTx(ctx, func(q dbgen.Querier) error {
		names := make([]string, 0, len(table))
		for _, r := range table {
			names = append(names, r.Name)
		}
		if err := q.DeleteRanksExcept(ctx, names); err != nil {
			return err
		}
		for _, r := range table {
			row, err := q.UpsertRank(ctx, dbgen.UpsertRankParams{
				RankName:        r.Name,
				MinSpending:     r.MinSpending,
				MaxSpending:     int8FromPtr(r.MaxSpending),
				DiscountPercent: r.DiscountPercent,
				Benefits:        nonNilStrings(r.Benefits),
			})
			if err != nil {
				return err
			}
			stored = append(stored, rankFromModel(row))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replace rank table: %w", err)
	}
	if err := s.Cache.Delete(ctx, cache.KeyRankTable()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("rank_table_cache_invalidate_failed")
	}
	return NewTable(stored), nil
}

func tableFromModels(rows []dbgen.Rank) Table {
	ranks := make([]Rank, 0, len(rows))
	for _, row := range rows {
		ranks = append(ranks, rankFromModel(row))
	}
	return NewTable(ranks)
}

func rankFromModel(row dbgen.Rank) Rank {
	r := Rank{
		Name:            row.RankName,
		MinSpending:     row.MinSpending,
		DiscountPercent: row.DiscountPercent,
		Benefits:        nonNilStrings(row.Benefits),
	}
	if row.ID.Valid {
		r.ID = uuid.UUID(row.ID.Bytes).String()
	}
	if row.MaxSpending.Valid {
		upper := row.MaxSpending.Int64
		r.MaxSpending = &upper
	}
	return r
}

func int8FromPtr(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
