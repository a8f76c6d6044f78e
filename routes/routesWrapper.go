package routes

import (
	"github.com/julienschmidt/httprouter"
)

// RoutesWrapper registers every route group on a fresh router.
func RoutesWrapper(d Deps) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	AddStaticRoutes(router, d.StaticDir)
	AddCartRoutes(router, d)
	AddAddressRoutes(router, d)
	AddOrderRoutes(router, d)
	AddQuotationRoutes(router, d)
	AddShippingRoutes(router, d)
	AddPayRoutes(router, d)
	AddNotifyRoutes(router, d)
	return router
}
