package voucher

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/pricing"
)

// Handler exposes voucher validation and administrative management endpoints.
type Handler struct {
	Svc *Service
}

// ValidateData is the success payload of the validate endpoint.
type ValidateData struct {
	Voucher            View          `json:"voucher"`
	DiscountCalculated pricing.Money `json:"discount_calculated"`
}

// validateFailure keeps the reason next to the message so clients can branch on it.
type validateFailure struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Reason  Reason            `json:"reason"`
	Error   *common.ErrorBody `json:"error"`
}

// Validate answers GET /vouchers/validate?code&order_total[&customer_id]. Validation never
// mutates the voucher.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "code is required", nil)
		return
	}
	total, err := strconv.ParseInt(strings.TrimSpace(q.Get("order_total")), 10, 64)
	if err != nil || total < 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "order_total must be a non-negative integer", nil)
		return
	}
	res, err := h.Svc.Validate(r.Context(), code, total, q.Get("customer_id"))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", NormalizeCode(code)).Msg("voucher_validate_failed")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to validate voucher", nil)
		return
	}
	if !res.Applicable {
		status := http.StatusUnprocessableEntity
		if res.Reason == ReasonNotFound {
			status = http.StatusNotFound
		}
		common.JSON(w, status, validateFailure{
			Message: res.Message,
			Reason:  res.Reason,
			Error:   &common.ErrorBody{Code: string(res.Reason), Message: res.Message},
		})
		return
	}
	common.OK(w, http.StatusOK, ValidateData{Voucher: *res.Voucher, DiscountCalculated: res.Discount})
}

// Create inserts a new voucher.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	v, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err, "failed to create voucher")
		return
	}
	common.OK(w, http.StatusCreated, v.ToView())
}

// Update replaces the rules of the voucher identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if in.Code == "" {
		in.Code = code
	}
	if NormalizeCode(in.Code) != NormalizeCode(code) {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "code cannot be changed", nil)
		return
	}
	v, err := h.Svc.Update(r.Context(), code, in)
	if err != nil {
		h.writeError(w, r, err, "failed to update voucher")
		return
	}
	common.OK(w, http.StatusOK, v.ToView())
}

// Get returns one voucher.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err, "failed to load voucher")
		return
	}
	common.OK(w, http.StatusOK, v.ToView())
}

// List returns a page of vouchers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	vouchers, total, err := h.Svc.List(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, r, err, "failed to list vouchers")
		return
	}
	views := make([]View, 0, len(vouchers))
	for _, v := range vouchers {
		views = append(views, v.ToView())
	}
	common.OK(w, http.StatusOK, map[string]any{
		"vouchers":   views,
		"pagination": common.NewPagination(page, perPage, total),
	})
}

// Deactivate switches a voucher off.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Deactivate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err, "failed to deactivate voucher")
		return
	}
	common.OK(w, http.StatusOK, v.ToView())
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verrs validator.ValidationErrors
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &verrs):
		common.JSONError(w, http.StatusBadRequest, common.CodeValidationFailed, "payload failed validation", common.ValidationDetails(err))
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "voucher not found", nil)
	case errors.Is(err, ErrInvalidPercent), errors.Is(err, ErrInvalidCode), errors.Is(err, ErrMaxUsesBelowCurrent):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_VOUCHER", err.Error(), nil)
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "voucher code already exists", nil)
	case errors.As(err, &pgErr) && pgErr.Code == "23503":
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_VOUCHER", "ranking requirement does not exist", nil)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(strings.ReplaceAll(msg, " ", "_"))
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, msg, nil)
	}
}
