package quotations

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

func (h *Handler) ListQuotations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	f := Filter{
		CompanyID: utils.GetCompanyIDFromRequest(r),
		Page:      utils.ParsePage(r),
	}
	if !utils.IsStaff(r) {
		f.UserID = utils.GetUserIDFromRequest(r)
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		f.View = lifecycle.NormalizeQuotation(raw)
	}
	list, err := h.svc.List(ctx, f)
	if err != nil {
		RespondErr(w, "list quotations", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateQuotation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in CreateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	v, err := h.svc.Create(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		RespondErr(w, "create quotation", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, v)
}

// Decide handles a logged-in client's approve/reject.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Status         string `json:"status"`
		SelectedOption *int   `json:"selected_option,omitempty"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	d, err := lifecycle.ParseDecision(body.Status)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "status must be Approved, Confirmed or Rejected")
		return
	}
	v, err := h.svc.Decide(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), ps.ByName("id"), d, body.SelectedOption)
	if err != nil {
		RespondErr(w, "decide quotation", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

// RespondErr maps quotation errors to status codes.
func RespondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProductNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidOption), errors.Is(err, ErrInvalidQuantity), errors.Is(err, lifecycle.ErrUnknownStatus):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		logging.Logger.Error(op, zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
