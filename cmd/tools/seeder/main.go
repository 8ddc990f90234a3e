package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront-checkout/internal/app"
	"github.com/noah-isme/storefront-checkout/internal/config"
	"github.com/noah-isme/storefront-checkout/internal/obs"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps, err := app.Open(ctx, cfg, "seeder")
	if err != nil {
		logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel)
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close(context.Background())
	logger := deps.Logger

	table, err := deps.Ranking.ReplaceTable(ctx, defaultRanks())
	if err != nil {
		logger.Error().Err(err).Msg("seed ranks")
		os.Exit(1)
	}
	logger.Info().Int("ranks", len(table)).Msg("ranks seeded")

	now := time.Now().UTC()
	for _, in := range sampleVouchers(table, now) {
		if err := upsertVoucher(ctx, deps.Vouchers, in); err != nil {
			logger.Error().Err(err).Str("code", in.Code).Msg("seed voucher")
			os.Exit(1)
		}
		logger.Info().Str("code", in.Code).Msg("voucher seeded")
	}
}

func money(v int64) *pricing.Money {
	m := pricing.Money(v)
	return &m
}

func defaultRanks() []ranking.Rank {
	return []ranking.Rank{
		{Name: "Bronze", MinSpending: 0, MaxSpending: money(5_000_000), DiscountPercent: decimal.Zero, Benefits: []string{"Birthday voucher"}},
		{Name: "Silver", MinSpending: 5_000_000, MaxSpending: money(20_000_000), DiscountPercent: decimal.NewFromInt(5), Benefits: []string{"Birthday voucher", "Free shipping weekends"}},
		{Name: "Gold", MinSpending: 20_000_000, DiscountPercent: decimal.NewFromInt(10), Benefits: []string{"Birthday voucher", "Free shipping", "Priority support"}},
	}
}

func sampleVouchers(table ranking.Table, now time.Time) []voucher.Input {
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 3, 0)
	welcome := decimal.NewFromInt(10)
	gold := decimal.NewFromInt(15)
	inputs := []voucher.Input{
		{Code: "WELCOME10", DiscountPercent: &welcome, MaxDiscountAmount: money(50_000), StartDate: start, EndDate: end, MaxUses: 1000, Description: "10% off your first order"},
		{Code: "HEMAT25K", DiscountAmount: money(25_000), MinOrderValue: 100_000, StartDate: start, EndDate: end, MaxUses: 500, Description: "25K off orders above 100K"},
	}
	for _, r := range table {
		if r.Name == "Gold" && r.ID != "" {
			id := r.ID
			inputs = append(inputs, voucher.Input{Code: "GOLDONLY", DiscountPercent: &gold, StartDate: start, EndDate: end, MaxUses: 100, RankingRequirementID: &id, Description: "Gold members only"})
		}
	}
	return inputs
}

func upsertVoucher(ctx context.Context, svc *voucher.Service, in voucher.Input) error {
	_, err := svc.Get(ctx, in.Code)
	switch {
	case err == nil:
		_, err = svc.Update(ctx, in.Code, in)
		return err
	case errors.Is(err, voucher.ErrNotFound):
		_, err = svc.Create(ctx, in)
		return err
	default:
		return err
	}
}
