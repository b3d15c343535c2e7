package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/benjamin1108/reinvent-insight/internal/api"
	apiMiddleware "github.com/benjamin1108/reinvent-insight/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	analysisHandler := api.NewAnalysisHandler(app.manager, app.engine, app.registry, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyses", analysisHandler.CreateAnalysis)
		r.Get("/analyses/{id}", analysisHandler.GetAnalysis)
		r.Delete("/analyses/{id}", analysisHandler.CancelAnalysis)
		r.Get("/analyses/{id}/events", analysisHandler.StreamEvents)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
