package cart

import (
	"context"
	"errors"
	"net/http"
	"time"

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

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrItemNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		logging.Logger.Error("cart "+op, zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not update cart")
	}
}

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.svc.Get(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r))
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

// AddToCart increments quantity if the item exists, or inserts a new CartItem.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil || body.ProductID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.svc.Add(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), body.ProductID, body.Quantity); err != nil {
		h.fail(w, "add", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// UpdateCartItem sets the quantity of one product; 0 removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil || body.Quantity == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	err := h.svc.SetQuantity(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), ps.ByName("productId"), *body.Quantity)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Remove(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), ps.ByName("productId")); err != nil {
		h.fail(w, "remove", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
