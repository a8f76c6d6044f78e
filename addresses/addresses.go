package addresses

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/utils"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

var ErrInvalid = errors.New("invalid address")

var validate = validator.New()

// Input is the client-editable part of an address.
type Input struct {
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
	IsDefault   bool   `json:"is_default"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, companyID, userID string) ([]models.Address, error) {
	return s.store.List(ctx, companyID, userID)
}

func (s *Service) Get(ctx context.Context, companyID, userID, id string) (*models.Address, error) {
	return s.store.Get(ctx, companyID, userID, id)
}

// Save validates and upserts an address under id (a new id when empty).
// At most one address per user is default: saving a default clears the others,
// and a user's first address becomes default.
func (s *Service) Save(ctx context.Context, companyID, userID, id string, in Input) (*models.Address, error) {
	a := models.Address{
		ID:          id,
		CompanyID:   companyID,
		UserID:      userID,
		FullName:    strings.TrimSpace(in.FullName),
		CompanyName: strings.TrimSpace(in.CompanyName),
		Line1:       strings.TrimSpace(in.Line1),
		Line2:       strings.TrimSpace(in.Line2),
		City:        strings.TrimSpace(in.City),
		Country:     strings.ToUpper(strings.TrimSpace(in.Country)),
		Phone:       strings.TrimSpace(in.Phone),
		IsDefault:   in.IsDefault,
	}
	if err := validate.Struct(a); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	if a.ID == "" {
		a.ID = utils.GetUUID()
	}

	if !a.IsDefault {
		existing, err := s.store.List(ctx, companyID, userID)
		if err != nil {
			return nil, err
		}
		hasOther := false
		for _, e := range existing {
			if e.ID != a.ID {
				hasOther = true
				break
			}
		}
		a.IsDefault = !hasOther
	}

	if err := s.store.Upsert(ctx, a); err != nil {
		return nil, err
	}
	if a.IsDefault {
		if err := s.store.ClearDefault(ctx, companyID, userID, a.ID); err != nil {
			return nil, err
		}
	}
	a.UpdatedAt = time.Now()
	return &a, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r))
	if err != nil {
		logging.Logger.Error("list addresses", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load addresses")
		return
	}
	if list == nil {
		list = []models.Address{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// SaveAddress upserts by the optional "id" in the body.
func (h *Handler) SaveAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		ID string `json:"id"`
		Input
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	a, err := h.svc.Save(ctx, utils.GetCompanyIDFromRequest(r), utils.GetUserIDFromRequest(r), body.ID, body.Input)
	switch {
	case errors.Is(err, ErrInvalid):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case err != nil:
		logging.Logger.Error("save address", zap.String("id", body.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not save address")
	default:
		utils.RespondWithJSON(w, http.StatusOK, a)
	}
}
