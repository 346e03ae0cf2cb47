package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/readquest/xp-api/internal/api"
	apiMiddleware "github.com/readquest/xp-api/internal/api/middleware"
	"github.com/readquest/xp-api/internal/platform/metrics"
)

// setupRouter creates and configures the application router with all routes and middleware.
// It accepts the application dependencies to create handlers and register routes.
// Returns the configured router.
func (app *application) setupRouter() http.Handler {
	// Create a router
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for improved error handling
	r.Use(metrics.InstrumentHandler)

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(
		app.accountStore,
		app.jwtService,
		app.passwordVerifier,
		&app.config.Auth,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	ledgerHandler := api.NewLedgerHandler(app.ledgerService, app.logger)
	progressionHandler := api.NewProgressionHandler(app.progressionService, app.logger)
	socialHandler := api.NewSocialHandler(app.socialService, app.logger)
	featureHandler := api.NewFeatureHandler(app.featureService, app.logger)
	adminHandler := api.NewAdminHandler(app.flagStore, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Ledger endpoints
			r.Get("/balance", ledgerHandler.GetBalance)
			r.Get("/transactions", ledgerHandler.ListTransactions)

			// Quiz progression endpoints
			r.Post("/quiz/attempts", progressionHandler.SubmitQuizAttempt)
			r.Get("/quiz/attempts", progressionHandler.ListAttempts)
			r.Put("/reading-speed", progressionHandler.SetReadingSpeed)

			// Social economy endpoints
			r.Post("/comments/authorize", socialHandler.AuthorizeComment)
			r.Post("/interactions", socialHandler.RecordInteraction)
			r.Get("/credits", socialHandler.GetCredits)

			// Feature shop endpoints
			r.Get("/features", featureHandler.ListCatalog)
			r.Get("/features/owned", featureHandler.ListOwned)
			r.Post("/features/{featureID}/purchase", featureHandler.Purchase)
			r.Post("/bundles/{bundleID}/purchase", featureHandler.PurchaseBundle)

			// Economy flag review endpoints
			r.Get("/admin/flags", adminHandler.ListFlags)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	return r
}
