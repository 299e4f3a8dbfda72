package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"comandas-go/internal/app"
)

const requestTimeout = 60 * time.Second

// NewRouter wires the JSON API. The SSE stream sits outside the request timeout.
func NewRouter(a *app.App) chi.Router {
	h := &Server{App: a}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Use(a.MiddlewareLoadCurrentUser)
	r.Use(a.MiddlewareOnboardingGate)

	r.Get("/health", h.Health)

	r.With(a.RequireAuth).Get("/api/events", h.Events)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		// Public
		r.Post("/api/auth/login", h.Login)
		r.Post("/api/onboarding", h.Onboarding)

		// Any staff member
		r.Group(func(ar chi.Router) {
			ar.Use(a.RequireAuth)

			ar.Get("/api/auth/me", h.Me)
			ar.Get("/api/products", h.ProductList)
			ar.Post("/api/stock/validate", h.StockValidate)

			ar.Get("/api/orders", h.OrderList)
			ar.Get("/api/orders/{id}", h.OrderGet)
			ar.Get("/api/orders/{id}/history", h.OrderHistory)
			ar.Patch("/api/orders/{id}/status", h.OrderStatus)
			ar.Post("/api/orders/{id}/print", h.OrderPrint)

			ar.Get("/api/push/public-key", h.PushPublicKey)
			ar.Post("/api/push/subscriptions", h.PushSubscribe)
			ar.Delete("/api/push/subscriptions", h.PushUnsubscribe)
		})

		// Floor staff (admin allowed)
		r.Group(func(wr chi.Router) {
			wr.Use(a.RequireAnyRole(app.RoleWaiter, app.RoleAdmin))

			wr.Post("/api/orders", h.OrderCreate)
			wr.Patch("/api/orders/{id}/items", h.OrderModify)
		})

		// Admin
		r.Group(func(ad chi.Router) {
			ad.Use(a.RequireRole(app.RoleAdmin))

			ad.Get("/api/approvals/pending", h.ApprovalsPending)
			ad.Post("/api/orders/{id}/approve", h.OrderApprove)
			ad.Post("/api/orders/{id}/reject", h.OrderReject)

			ad.Post("/api/products", h.ProductCreate)
			ad.Patch("/api/products/{id}", h.ProductUpdate)
			ad.Post("/api/products/{id}/stock", h.StockAdjust)
			ad.Get("/api/stock/low", h.StockLow)

			ad.Get("/api/users", h.UserList)
			ad.Post("/api/users", h.UserCreate)
			ad.Post("/api/users/{id}/active", h.UserSetActive)

			ad.Get("/api/admin/settings", h.AdminSettings)
			ad.Post("/api/admin/printer/test", h.PrinterTest)
		})
	})

	r.NotFound(notFound)
	return r
}
