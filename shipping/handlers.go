package shipping

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradedesk/filemgr"
	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxMediaRequest = 256 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListShipments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, Filter{
		CompanyID: utils.GetCompanyIDFromRequest(r),
		Status:    r.URL.Query().Get("status"),
		Page:      utils.ParsePage(r),
	})
	if err != nil {
		respondErr(w, "list shipments", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) GetShipment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.get(w, r, ps.ByName("id"), "")
}

// GetOwnShipment is the client view; other users' shipments are not found.
func (h *Handler) GetOwnShipment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.get(w, r, ps.ByName("id"), utils.GetUserIDFromRequest(r))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, id, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	v, err := h.svc.Get(ctx, utils.GetCompanyIDFromRequest(r), userID, id)
	if err != nil {
		respondErr(w, "get shipment", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateShipment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var u Update
	if err := utils.DecodeJSON(r, &u); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	v, err := h.svc.Update(ctx, utils.GetCompanyIDFromRequest(r), ps.ByName("id"), u)
	if err != nil {
		respondErr(w, "update shipment", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

// UploadMedia accepts multipart "images" and "videos" files plus optional
// "durations" (seconds, one per video). Every file is validated before any upload.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMediaRequest)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var batch MediaBatch
	var err error
	if batch.Images, err = filemgr.ValidateAll(r.MultipartForm, "images", filemgr.KindImage); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if batch.Videos, err = filemgr.ValidateAll(r.MultipartForm, "videos", filemgr.KindVideo); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if batch.Durations, err = parseDurations(r.MultipartForm.Value["durations"]); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	v, err := h.svc.AttachMedia(ctx, utils.GetCompanyIDFromRequest(r), ps.ByName("id"), batch)
	if err != nil {
		respondErr(w, "attach shipment media", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Kind string `json:"kind"`
		URL  string `json:"url"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil || body.URL == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "kind and url are required")
		return
	}
	v, err := h.svc.RemoveMedia(ctx, utils.GetCompanyIDFromRequest(r), ps.ByName("id"),
		filemgr.MediaKind(strings.ToLower(body.Kind)), body.URL)
	if err != nil {
		respondErr(w, "remove shipment media", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func parseDurations(values []string) ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(values))
	for _, v := range values {
		secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || secs < 0 {
			return nil, errors.New("durations must be numbers of seconds")
		}
		out = append(out, time.Duration(secs*float64(time.Second)))
	}
	return out, nil
}

func respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMediaMissing):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrUnknownStatus), errors.Is(err, ErrNoMedia), errors.Is(err, ErrUnknownKind),
		errors.Is(err, filemgr.ErrInvalidDuration), errors.Is(err, filemgr.ErrInvalidMIME):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Logger.Error(op, zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
