package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasalvarezdev/villing-api/internal/config"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/document"
	"github.com/lukasalvarezdev/villing-api/internal/handler"
	"github.com/lukasalvarezdev/villing-api/internal/ledger"
	mw "github.com/lukasalvarezdev/villing-api/internal/middleware"
	"github.com/lukasalvarezdev/villing-api/internal/report"
	"github.com/lukasalvarezdev/villing-api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, org scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://app.villing.io"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	reporter := report.New()

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orgs/{oid}/documents", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	documentService := document.NewService(pool, func(db database.DBTX) document.Store {
		return database.New(db)
	})
	ledgerService := ledger.NewService(pool, func(db database.DBTX) ledger.Store {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Org-scoped routes
		r.Route("/orgs/{oid}", func(r chi.Router) {
			r.Use(mw.RequireOrg)

			// Documents + nested payments
			documentHandler := handler.NewDocumentHandler(queries, documentService, ledgerService, reporter, hub)
			r.Route("/documents", documentHandler.RegisterRoutes)

			// Payment cancellation
			paymentHandler := handler.NewPaymentHandler(documentHandler, ledgerService)
			r.Route("/payments", paymentHandler.RegisterRoutes)

			// Products
			productHandler := handler.NewProductHandler(queries, reporter)
			r.Route("/products", productHandler.RegisterRoutes)

			// Branch stocks
			stockHandler := handler.NewStockHandler(queries, reporter)
			r.Route("/branches/{bid}/stocks", stockHandler.RegisterRoutes)

			// Suppliers with open balances
			supplierHandler := handler.NewSupplierHandler(queries, reporter)
			r.Route("/suppliers", supplierHandler.RegisterRoutes)

			// Spreadsheet exports
			reportHandler := handler.NewReportHandler(queries, reporter)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
