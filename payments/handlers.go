package payments

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tradedesk/filemgr"
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

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, utils.GetCompanyIDFromRequest(r), r.URL.Query().Get("status"), utils.ParsePage(r))
	if err != nil {
		respondErr(w, "list payments", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	v, err := h.svc.Get(ctx, utils.GetCompanyIDFromRequest(r), ps.ByName("id"))
	if err != nil {
		respondErr(w, "get payment", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	m, err := h.svc.Metrics(ctx, utils.GetCompanyIDFromRequest(r))
	if err != nil {
		respondErr(w, "payment metrics", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, m)
}

// SetStatus answers {"status": <stored casing>}.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var body struct {
		Status string `json:"status"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil || body.Status == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "status is required")
		return
	}
	stored, err := h.svc.SetStatus(ctx, utils.GetCompanyIDFromRequest(r), ps.ByName("id"), body.Status)
	if err != nil {
		respondErr(w, "set payment status", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": stored})
}

// UploadProof accepts a multipart "proof" file (image or PDF).
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, 12<<20)
	if err := r.ParseMultipartForm(12 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["proof"]
	if len(files) != 1 {
		utils.RespondWithError(w, http.StatusBadRequest, "exactly one proof file is required")
		return
	}
	u, err := filemgr.Validate(files[0], filemgr.KindProof)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	url, err := h.svc.AttachProof(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), ps.ByName("id"), u)
	if err != nil {
		respondErr(w, "attach payment proof", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"proof_url": url})
}

func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	pdf, p, err := h.svc.Invoice(ctx, utils.GetCompany(r), ps.ByName("id"))
	if err != nil {
		respondErr(w, "render invoice", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+p.Reference+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		logging.Logger.Warn("write invoice", zap.String("payment", p.ID), zap.Error(err))
	}
}

func respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrUnknownStatus), errors.Is(err, filemgr.ErrInvalidMIME):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, ErrNotInvoiceable):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		logging.Logger.Error(op, zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
