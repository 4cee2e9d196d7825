package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linemk/commerce-core/internal/app/handlers"
	"github.com/linemk/commerce-core/internal/domain/models"
	"github.com/linemk/commerce-core/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/commerce-core/internal/lib/logger/handlers/urllog"
	"github.com/linemk/commerce-core/internal/service"
)

type Services struct {
	Auth   service.AuthServiceInterface
	Carts  service.CartService
	Orders service.OrderService
	Health []handlers.HealthCheck
}

// NewRouter wires every route. Protected routes authenticate first; admin
// routes then check the role.
func NewRouter(log *slog.Logger, requestTimeout time.Duration, verifier jwtmiddleware.TokenVerifier, svc Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	if requestTimeout > 0 {
		router.Use(middleware.Timeout(requestTimeout))
	}

	router.Get("/health", handlers.HealthHandler(log, svc.Health...))

	router.Post("/auth/register", handlers.RegisterHandler(log, svc.Auth))
	router.Post("/auth/login", handlers.LoginHandler(log, svc.Auth))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(log, verifier))

		r.Get("/auth/me", handlers.MeHandler(log, svc.Auth))

		r.Get("/carts", handlers.GetCartHandler(log, svc.Carts))
		r.Delete("/carts", handlers.ClearCartHandler(log, svc.Carts))
		r.Post("/carts/items", handlers.AddCartItemHandler(log, svc.Carts))
		r.Put("/carts/items/{productId}", handlers.UpdateCartItemHandler(log, svc.Carts))
		r.Delete("/carts/items/{productId}", handlers.RemoveCartItemHandler(log, svc.Carts))

		r.Post("/orders", handlers.CreateOrderHandler(log, svc.Orders))
		r.Post("/orders/checkout", handlers.CheckoutHandler(log, svc.Orders))
		r.Get("/orders/my", handlers.MyOrdersHandler(log, svc.Orders))
		r.Get("/orders/{id}", handlers.GetOrderHandler(log, svc.Orders))

		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.RequireRoles(log, models.RoleAdmin))

			r.Get("/carts/all", handlers.ListCartsHandler(log, svc.Carts))
			r.Get("/orders", handlers.ListOrdersHandler(log, svc.Orders))
			r.Put("/orders/{id}/status", handlers.UpdateOrderStatusHandler(log, svc.Orders))
			r.Delete("/orders/{id}", handlers.DeleteOrderHandler(log, svc.Orders))
			r.Patch("/admin/users/{id}/role", handlers.UpdateUserRoleHandler(log, svc.Auth))
		})
	})

	return router
}
