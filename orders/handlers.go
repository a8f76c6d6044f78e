package orders

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradedesk/lifecycle"
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

// ownerScope limits clients to their own rows; staff see the tenant.
func ownerScope(r *http.Request) string {
	if utils.IsStaff(r) {
		return ""
	}
	return utils.GetUserIDFromRequest(r)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, Filter{
		CompanyID: utils.GetCompanyIDFromRequest(r),
		UserID:    ownerScope(r),
		Status:    r.URL.Query().Get("status"),
		Page:      utils.ParsePage(r),
	})
	if err != nil {
		respondErr(w, "list orders", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	v, err := h.svc.Get(ctx, utils.GetCompanyIDFromRequest(r), ownerScope(r), ps.ByName("id"))
	if err != nil {
		respondErr(w, "get order", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateReceiver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var u lifecycle.ReceiverUpdate
	if err := utils.DecodeJSON(r, &u); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	v, err := h.svc.UpdateReceiver(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), ps.ByName("id"), u)
	if err != nil {
		respondErr(w, "update receiver", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) SubmitReceiverInfo(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Name    string `json:"receiver_name"`
		Phone   string `json:"receiver_phone"`
		Address string `json:"receiver_address"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	v, err := h.svc.SubmitReceiverInfo(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r),
		ps.ByName("id"), body.Name, body.Phone, body.Address)
	if err != nil {
		respondErr(w, "submit receiver info", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	v, err := h.svc.SetStatus(ctx, utils.GetCompanyIDFromRequest(r), ps.ByName("id"), body.Status)
	if err != nil {
		respondErr(w, "set order status", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrUnknownStatus), errors.Is(err, ErrInvalidReceiver), errors.Is(err, ErrEmptyUpdate):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrWindowClosed), errors.Is(err, lifecycle.ErrNotEditable),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		logging.Logger.Error(op, zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
