package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradedesk/addresses"
	"tradedesk/cart"
	"tradedesk/checkout"
	"tradedesk/globals"
	"tradedesk/magiclink"
	"tradedesk/middleware"
	"tradedesk/models"
	"tradedesk/notify"
	"tradedesk/orders"
	"tradedesk/payments"
	"tradedesk/quotations"
	"tradedesk/ratelim"
	"tradedesk/shipping"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter() *httprouter.Router {
	acme := &models.Company{ID: "c1", Slug: "acme"}
	passThrough := func(next httprouter.Handle) httprouter.Handle { return next }
	return RoutesWrapper(Deps{
		RateLimiter: ratelim.NewRateLimiter(600, 100),
		Resolver: func(_ context.Context, slug string) (*models.Company, error) {
			if slug != acme.Slug {
				return nil, middleware.ErrUnknownCompany
			}
			return acme, nil
		},
		Idempotency: passThrough,
		Hub:         notify.NewHub(),

		Cart:       &cart.Handler{},
		Addresses:  &addresses.Handler{},
		Checkout:   &checkout.Handler{},
		Orders:     &orders.Handler{},
		Quotations: &quotations.Handler{},
		MagicLinks: &magiclink.Handler{},
		Shipping:   &shipping.Handler{},
		Payments:   &payments.Handler{},
	})
}

func TestRouteTable(t *testing.T) {
	var router *httprouter.Router
	require.NotPanics(t, func() { router = testRouter() }, "static and wildcard segments must not collide")
	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodPost, "/api/client/acme/cart/checkout"},
		{http.MethodPatch, "/api/client/acme/orders/o1/receiver"},
		{http.MethodPut, "/api/store/acme/orders/o1/status"},
		{http.MethodPost, "/api/store/acme/quotations/q1/magic-links"},
		{http.MethodPatch, "/api/c/tok/quotations/q1"},
		{http.MethodPost, "/api/store/acme/shipments/s1/media"},
		{http.MethodGet, "/api/store/acme/payment-metrics"},
		{http.MethodGet, "/api/store/acme/payments/p1"},
		{http.MethodPost, "/api/store/acme/payments/p1/status"},
		{http.MethodPost, "/api/client/acme/payments/p1/proof"},
		{http.MethodGet, "/api/store/acme/payments/p1/invoice"},
		{http.MethodGet, "/ws/acme"},
	} {
		h, _, _ := router.Lookup(rt.method, rt.path)
		assert.NotNil(t, h, "%s %s", rt.method, rt.path)
	}
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGuards(t *testing.T) {
	globals.JwtSecret = []byte("routes-secret")
	router := testRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/client/acme/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	tok, err := middleware.IssueToken("u1", "c1", globals.RoleClient, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/store/acme/payments", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code, "clients cannot reach store routes")
}
