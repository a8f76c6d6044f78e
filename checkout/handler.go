package checkout

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradedesk/idempotency"
	"tradedesk/logging"
	"tradedesk/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Checkout handles POST /api/client/:companySlug/cart/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	company := utils.GetCompany(r)
	userID := utils.GetUserIDFromRequest(r)
	res, err := h.svc.Checkout(ctx, company, userID, r.Header.Get(idempotency.Header), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnknownMethod),
			errors.Is(err, ErrEmptyCart), errors.Is(err, ErrMixedCurrency):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrAddressNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrBusy):
			utils.RespondWithError(w, http.StatusTooManyRequests, err.Error())
		default:
			logging.Logger.Error("checkout failed", zap.String("user", userID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Checkout failed, your cart was not changed")
		}
		return
	}

	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	utils.RespondWithJSON(w, code, map[string]interface{}{
		"payment":  res.Payment,
		"replayed": res.Replayed,
	})
}
