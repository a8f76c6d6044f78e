package routes

import (
	"net/http"

	"tradedesk/addresses"
	"tradedesk/cart"
	"tradedesk/checkout"
	"tradedesk/globals"
	"tradedesk/magiclink"
	"tradedesk/middleware"
	"tradedesk/notify"
	"tradedesk/orders"
	"tradedesk/payments"
	"tradedesk/quotations"
	"tradedesk/ratelim"
	"tradedesk/shipping"

	"github.com/julienschmidt/httprouter"
)

// Deps carries the handlers and shared middleware inputs the route table needs.
type Deps struct {
	RateLimiter *ratelim.RateLimiter
	Resolver    middleware.CompanyResolver
	Idempotency middleware.Middleware
	Hub         *notify.Hub
	StaticDir   string

	Cart       *cart.Handler
	Addresses  *addresses.Handler
	Checkout   *checkout.Handler
	Orders     *orders.Handler
	Quotations *quotations.Handler
	MagicLinks *magiclink.Handler
	Shipping   *shipping.Handler
	Payments   *payments.Handler
}

// client routes: any signed-in member of the tenant.
func (d Deps) client() middleware.Middleware {
	return middleware.Chain(
		d.RateLimiter.Limit,
		middleware.Authenticate,
		middleware.Tenant(d.Resolver),
		middleware.RequireRoles(globals.RoleClient, globals.RoleStaff),
	)
}

// store routes: staff of the tenant only.
func (d Deps) store() middleware.Middleware {
	return middleware.Chain(
		d.RateLimiter.Limit,
		middleware.Authenticate,
		middleware.Tenant(d.Resolver),
		middleware.RequireRoles(globals.RoleStaff),
	)
}

func Index(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("200"))
}

func AddStaticRoutes(router *httprouter.Router, dir string) {
	if dir == "" {
		return
	}
	router.ServeFiles("/static/uploads/*filepath", http.Dir(dir))
}

func AddCartRoutes(router *httprouter.Router, d Deps) {
	client := d.client()
	router.GET("/api/client/:companySlug/cart", client(d.Cart.GetCart))
	router.POST("/api/client/:companySlug/cart/items", client(d.Cart.AddToCart))
	router.PUT("/api/client/:companySlug/cart/items/:productId", client(d.Cart.UpdateCartItem))
	router.DELETE("/api/client/:companySlug/cart/items/:productId", client(d.Cart.RemoveCartItem))

	router.POST("/api/client/:companySlug/cart/checkout",
		middleware.Chain(client, d.Idempotency)(d.Checkout.Checkout))
}

func AddAddressRoutes(router *httprouter.Router, d Deps) {
	client := d.client()
	router.GET("/api/client/:companySlug/addresses", client(d.Addresses.ListAddresses))
	router.PUT("/api/client/:companySlug/addresses", client(d.Addresses.SaveAddress))
}

func AddOrderRoutes(router *httprouter.Router, d Deps) {
	client := d.client()
	router.GET("/api/client/:companySlug/orders", client(d.Orders.ListOrders))
	router.GET("/api/client/:companySlug/orders/:id", client(d.Orders.GetOrder))
	router.PATCH("/api/client/:companySlug/orders/:id/receiver", client(d.Orders.UpdateReceiver))
	router.POST("/api/client/:companySlug/orders/:id/receiver-info", client(d.Orders.SubmitReceiverInfo))

	store := d.store()
	router.GET("/api/store/:companySlug/orders", store(d.Orders.ListOrders))
	router.GET("/api/store/:companySlug/orders/:id", store(d.Orders.GetOrder))
	router.PUT("/api/store/:companySlug/orders/:id/status", store(d.Orders.SetStatus))
}

func AddQuotationRoutes(router *httprouter.Router, d Deps) {
	client := d.client()
	router.GET("/api/client/:companySlug/quotations", client(d.Quotations.ListQuotations))
	router.POST("/api/client/:companySlug/quotations", client(d.Quotations.CreateQuotation))
	router.PUT("/api/client/:companySlug/quotations/:id/decision", client(d.Quotations.Decide))

	store := d.store()
	router.GET("/api/store/:companySlug/quotations", store(d.Quotations.ListQuotations))
	router.POST("/api/store/:companySlug/quotations/:id/magic-links", store(d.MagicLinks.IssueLink))
	router.DELETE("/api/store/:companySlug/magic-links/:linkId", store(d.MagicLinks.RevokeLink))

	// token-scoped, no login
	router.GET("/api/c/:token/quotations/:id", d.RateLimiter.Limit(d.MagicLinks.GetQuotation))
	router.PATCH("/api/c/:token/quotations/:id", d.RateLimiter.Limit(d.MagicLinks.PatchQuotation))
}

func AddShippingRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/client/:companySlug/shipments/:id", d.client()(d.Shipping.GetOwnShipment))

	store := d.store()
	router.GET("/api/store/:companySlug/shipments", store(d.Shipping.ListShipments))
	router.GET("/api/store/:companySlug/shipments/:id", store(d.Shipping.GetShipment))
	router.PUT("/api/store/:companySlug/shipments/:id", store(d.Shipping.UpdateShipment))
	router.POST("/api/store/:companySlug/shipments/:id/media", store(d.Shipping.UploadMedia))
	router.DELETE("/api/store/:companySlug/shipments/:id/media", store(d.Shipping.DeleteMedia))
}

func AddNotifyRoutes(router *httprouter.Router, d Deps) {
	router.GET("/ws/:companySlug", middleware.Chain(
		middleware.Authenticate,
		middleware.Tenant(d.Resolver),
	)(notify.WebSocketHandler(d.Hub)))
}
