/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the kiosk frontend

ROUTE GROUPS:
  /api/users/*         User management and balance derivation
  /api/products/*      Product management, price/stock/owners derivation
  /api/transactions/*  Log queries and append operations
  /api/params/*        Interest and penalty adjustments
  /api/admin/*         Checkpoint cache maintenance

SECURITY NOTE:
  No authentication middleware. The kiosk runs on a trusted local network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/transactions", h.GetUserTransactions)
		})

		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Get("/barcode/{code}", h.GetProductByBarCode)
			r.Get("/{id}/price", h.GetPrice)
			r.Get("/{id}/stock", h.GetStock)
			r.Get("/{id}/owners", h.GetOwners)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/adjust-balance", h.AdjustBalance)
			r.Post("/transfer", h.Transfer)
			r.Post("/add-product", h.AddProduct)
			r.Post("/buy-product", h.BuyProduct)
			r.Post("/joint-buy", h.JointBuy)
			r.Post("/adjust-stock", h.AdjustStock)
			r.Post("/throw-product", h.ThrowProduct)
		})

		// Economic parameter routes
		r.Route("/params", func(r chi.Router) {
			r.Post("/interest", h.AdjustInterest)
			r.Post("/penalty", h.AdjustPenalty)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/cache", h.UpdateCache)
		})
	})

	return r
}
