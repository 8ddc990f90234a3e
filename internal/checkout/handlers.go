package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/common"
)

// Handler exposes order submission and quoting.
type Handler struct {
	Svc *Service
}

// Checkout submits an order. The response carries the created order under data.order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var payload Input
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	out, err := h.Svc.Submit(r.Context(), payload, r.Header.Get(common.IdempotencyHeader))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	common.OK(w, http.StatusCreated, map[string]any{"order": out})
}

// Quote previews totals for a cart without persisting anything.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var payload QuoteInput
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	out, err := h.Svc.Quote(r.Context(), payload.CustomerID, payload.VoucherCode, Snapshot(payload.Items))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	common.OK(w, http.StatusOK, out)
}

// Get returns an order by its public code.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	out, err := h.Svc.Get(r.Context(), chi.URLParam(r, "odID"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	common.OK(w, http.StatusOK, map[string]any{"order": out})
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	if !common.IsAppError(err) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("checkout_failed")
	}
	common.WriteError(w, err)
}
