package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradedesk/db"
	"tradedesk/globals"
	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/rdx"
	"tradedesk/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrUnknownCompany = errors.New("unknown company")

const companyCacheTTL = 10 * time.Minute

// CompanyResolver maps a storefront slug to its company.
type CompanyResolver func(ctx context.Context, slug string) (*models.Company, error)

// CachedCompanyResolver looks in Redis first and falls back to Mongo.
func CachedCompanyResolver() CompanyResolver {
	return func(ctx context.Context, slug string) (*models.Company, error) {
		key := "company:slug:" + slug
		var c models.Company
		if found, err := rdx.GetJSON(ctx, key, &c); err == nil && found {
			return &c, nil
		} else if err != nil {
			logging.Logger.Warn("company cache read", zap.String("slug", slug), zap.Error(err))
		}

		err := db.CompaniesCollection.FindOne(ctx, bson.M{"slug": slug}).Decode(&c)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUnknownCompany
		}
		if err != nil {
			return nil, err
		}
		if err := rdx.SetJSON(ctx, key, c, companyCacheTTL); err != nil {
			logging.Logger.Warn("company cache write", zap.String("slug", slug), zap.Error(err))
		}
		return &c, nil
	}
}

// Tenant resolves :companySlug and rejects callers from another company.
// It must run after Authenticate.
func Tenant(resolve CompanyResolver) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			company, err := resolve(r.Context(), ps.ByName("companySlug"))
			if errors.Is(err, ErrUnknownCompany) {
				utils.RespondWithError(w, http.StatusNotFound, "company not found")
				return
			}
			if err != nil {
				logging.Logger.Error("resolve company", zap.String("slug", ps.ByName("companySlug")), zap.Error(err))
				utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if company.ID != utils.GetCompanyIDFromRequest(r) {
				utils.RespondWithError(w, http.StatusForbidden, "forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), globals.CompanyKey, company)
			next(w, r.WithContext(ctx), ps)
		}
	}
}
