package ranking

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
)

// Handler exposes customer ranking and rank table endpoints.
type Handler struct {
	Svc *Service
}

// RankBody is the wire shape of a rank record.
type RankBody struct {
	ID              string          `json:"id,omitempty"`
	RankName        string          `json:"rank_name"`
	MinSpending     pricing.Money   `json:"min_spending"`
	MaxSpending     *pricing.Money  `json:"max_spending"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Benefits        []string        `json:"benefits"`
}

// CustomerRankingEntry wraps a rank the way the storefront expects it.
type CustomerRankingEntry struct {
	RankID RankBody `json:"rank_id"`
}

// CustomerRankingData is the payload of the customer ranking endpoint.
type CustomerRankingData struct {
	CustomerRankings []CustomerRankingEntry `json:"customerRankings"`
	TotalSpending    pricing.Money          `json:"total_spending"`
}

type rankPayload struct {
	RankName        string          `json:"rank_name" validate:"required,max=64"`
	MinSpending     pricing.Money   `json:"min_spending" validate:"gte=0"`
	MaxSpending     *pricing.Money  `json:"max_spending" validate:"omitempty,gt=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Benefits        []string        `json:"benefits" validate:"omitempty,dive,required"`
}

type replaceTablePayload struct {
	Ranks []rankPayload `json:"ranks" validate:"required,dive"`
}

// Customer returns the rank of the customer in the path. Customers without a record get
// an empty list and the storefront falls back to the default rank.
func (h *Handler) Customer(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(chi.URLParam(r, "id"))
	if customerID == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "customer id is required", nil)
		return
	}
	standing, err := h.Svc.CustomerRanking(r.Context(), customerID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("customer_id", customerID).Msg("customer_ranking_failed")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to load ranking", nil)
		return
	}
	data := CustomerRankingData{CustomerRankings: []CustomerRankingEntry{}, TotalSpending: standing.TotalSpending}
	if standing.Known {
		data.CustomerRankings = append(data.CustomerRankings, CustomerRankingEntry{RankID: toBody(standing.Rank)})
	}
	common.OK(w, http.StatusOK, data)
}

// List returns the configured rank table.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	table, err := h.Svc.Table(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("rank_table_failed")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to load ranks", nil)
		return
	}
	common.OK(w, http.StatusOK, map[string]any{"ranks": toBodies(table)})
}

// Replace swaps the whole rank table after checking it partitions the spending domain.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	var payload replaceTablePayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	ranks := make([]Rank, 0, len(payload.Ranks))
	for _, p := range payload.Ranks {
		ranks = append(ranks, Rank{
			Name:            strings.TrimSpace(p.RankName),
			MinSpending:     p.MinSpending,
			MaxSpending:     p.MaxSpending,
			DiscountPercent: p.DiscountPercent,
			Benefits:        p.Benefits,
		})
	}
	table, err := h.Svc.ReplaceTable(r.Context(), ranks)
	if err != nil {
		if isTableError(err) {
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_RANK_TABLE", err.Error(), nil)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("replace_rank_table_failed")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to store ranks", nil)
		return
	}
	common.OK(w, http.StatusOK, map[string]any{"ranks": toBodies(table)})
}

func isTableError(err error) bool {
	for _, target := range []error{
		ErrUnsorted, ErrFirstRankNotZero, ErrGap, ErrOverlap, ErrOpenEndedNotLast,
		ErrInvalidBounds, ErrInvalidPercent, ErrDuplicateName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toBody(r Rank) RankBody {
	return RankBody{
		ID:              r.ID,
		RankName:        r.Name,
		MinSpending:     r.MinSpending,
		MaxSpending:     r.MaxSpending,
		DiscountPercent: r.DiscountPercent,
		Benefits:        nonNilStrings(r.Benefits),
	}
}

func toBodies(t Table) []RankBody {
	out := make([]RankBody, 0, len(t))
	for _, r := range t {
		out = append(out, toBody(r))
	}
	return out
}
