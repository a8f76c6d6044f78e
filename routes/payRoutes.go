package routes

import (
	"tradedesk/middleware"

	"github.com/julienschmidt/httprouter"
)

// AddPayRoutes wires payment review and proof upload.
func AddPayRoutes(router *httprouter.Router, d Deps) {
	store := d.store()

	router.GET("/api/store/:companySlug/payments", store(d.Payments.ListPayments))
	router.GET("/api/store/:companySlug/payment-metrics", store(d.Payments.GetMetrics))
	router.GET("/api/store/:companySlug/payments/:id", store(d.Payments.GetPayment))
	router.GET("/api/store/:companySlug/payments/:id/invoice", store(d.Payments.DownloadInvoice))

	// status writes replay on a repeated Idempotency-Key
	router.POST("/api/store/:companySlug/payments/:id/status",
		middleware.Chain(store, d.Idempotency)(d.Payments.SetStatus))

	router.POST("/api/client/:companySlug/payments/:id/proof", d.client()(d.Payments.UploadProof))
}
