package magiclink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/quotations"
	"tradedesk/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handler struct {
	links  *Service
	quotes *quotations.Service
}

func NewHandler(links *Service, quotes *quotations.Service) *Handler {
	return &Handler{links: links, quotes: quotes}
}

// IssueLink handles POST /api/store/:companySlug/quotations/:id/magic-links.
func (h *Handler) IssueLink(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var in IssueInput
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
	}
	company := utils.GetCompany(r)
	q, err := h.quotes.Get(ctx, company.ID, "", ps.ByName("id"))
	if err != nil {
		quotations.RespondErr(w, "load quotation", err)
		return
	}
	issued, err := h.links.Issue(ctx, company, q.Quotation, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		logging.Logger.Error("issue magic link", zap.String("quotation", q.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not create link")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, issued)
}

func (h *Handler) RevokeLink(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := h.links.Revoke(ctx, utils.GetCompanyIDFromRequest(r), ps.ByName("linkId"))
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case err != nil:
		logging.Logger.Error("revoke magic link", zap.String("link", ps.ByName("linkId")), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not revoke link")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetQuotation handles GET /api/c/:token/quotations/:id.
func (h *Handler) GetQuotation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	link, ok := h.open(ctx, w, ps)
	if !ok {
		return
	}
	v, err := h.quotes.Get(ctx, link.CompanyID, "", link.QuotationID)
	if err != nil {
		quotations.RespondErr(w, "magic link quotation", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

// PatchQuotation handles PATCH /api/c/:token/quotations/:id. The body is
// validated before a use is consumed.
func (h *Handler) PatchQuotation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	patch, err := ParsePatch(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	link, ok := h.open(ctx, w, ps)
	if !ok {
		return
	}

	var v *quotations.View
	if patch.Status != nil {
		v, err = h.quotes.Decide(ctx, link.CompanyID, "", link.QuotationID, *patch.Status, patch.SelectedOption)
	} else {
		v, err = h.quotes.SelectOption(ctx, link.CompanyID, "", link.QuotationID, *patch.SelectedOption)
	}
	if err != nil {
		quotations.RespondErr(w, "magic link update", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) open(ctx context.Context, w http.ResponseWriter, ps httprouter.Params) (*models.MagicLink, bool) {
	l, err := h.links.Open(ctx, ps.ByName("token"), ps.ByName("id"))
	switch {
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpired),
		errors.Is(err, ErrRevoked), errors.Is(err, ErrExhausted):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
		return nil, false
	case err != nil:
		logging.Logger.Error("open magic link", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return l, true
}

// Patch is the only shape a link holder may write.
type Patch struct {
	Status         *lifecycle.QuotationDecision
	SelectedOption *int
}

// ParsePatch enforces the allow-list: only "status" and "selected_option",
// status in exact casing, selected_option a JSON integer.
func ParsePatch(r io.Reader) (*Patch, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New("could not read body")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.New("body must be a JSON object")
	}
	if len(fields) == 0 {
		return nil, errors.New("nothing to update")
	}

	var p Patch
	for k, v := range fields {
		switch k {
		case "status":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, errors.New("status must be a string")
			}
			d, err := lifecycle.ParseDecision(s)
			if err != nil {
				return nil, errors.New("status must be Approved, Confirmed or Rejected")
			}
			p.Status = &d
		case "selected_option":
			n, err := parseInt(v)
			if err != nil {
				return nil, err
			}
			p.SelectedOption = &n
		default:
			return nil, fmt.Errorf("field %q is not allowed", k)
		}
	}
	return &p, nil
}

func parseInt(v json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var x interface{}
	if err := dec.Decode(&x); err != nil {
		return 0, errors.New("selected_option must be an integer")
	}
	num, ok := x.(json.Number)
	if !ok || strings.ContainsAny(num.String(), ".eE") {
		return 0, errors.New("selected_option must be an integer")
	}
	n, err := num.Int64()
	if err != nil || n < 0 || n > 1<<20 {
		return 0, errors.New("selected_option must be an integer")
	}
	return int(n), nil
}
