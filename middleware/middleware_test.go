package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradedesk/globals"
	"tradedesk/models"
	"tradedesk/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticResolver(c *models.Company) CompanyResolver {
	return func(_ context.Context, slug string) (*models.Company, error) {
		if slug != c.Slug {
			return nil, ErrUnknownCompany
		}
		return c, nil
	}
}

func newRouter(h httprouter.Handle) *httprouter.Router {
	router := httprouter.New()
	router.GET("/api/client/:companySlug/ping", h)
	return router
}

func TestAuthenticateAndTenant(t *testing.T) {
	globals.JwtSecret = []byte("test-secret")
	acme := &models.Company{ID: "c1", Slug: "acme"}

	var seenUser, seenCompany string
	h := Chain(Authenticate, Tenant(staticResolver(acme)), RequireRoles(globals.RoleClient, globals.RoleStaff))(
		func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			seenUser = utils.GetUserIDFromRequest(r)
			seenCompany = utils.GetCompany(r).Slug
			w.WriteHeader(http.StatusNoContent)
		})
	router := newRouter(h)

	tok, err := IssueToken("u1", "c1", globals.RoleClient, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/client/acme/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "u1", seenUser)
	assert.Equal(t, "acme", seenCompany)

	other, err := IssueToken("u2", "c2", globals.RoleClient, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/client/acme/ping", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code, "token from another tenant")

	req = httptest.NewRequest(http.MethodGet, "/api/client/nope/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	globals.JwtSecret = []byte("test-secret")
	router := newRouter(Authenticate(func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/client/acme/ping", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, header)
	}

	expired, err := IssueToken("u1", "c1", globals.RoleClient, -time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/client/acme/ping", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRoles(t *testing.T) {
	globals.JwtSecret = []byte("test-secret")
	router := newRouter(Chain(Authenticate, RequireRoles(globals.RoleStaff))(
		func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		}))

	tok, err := IssueToken("u1", "c1", globals.RoleClient, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/client/acme/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
