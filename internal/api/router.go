// Package api assembles the HTTP router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/api/handlers"
	"github.com/dvloznov/expense-insights/internal/api/middleware"
)

// Deps carries the handlers the router mounts. Ask and Jobs are optional;
// their routes 404 when nil.
type Deps struct {
	Analysis *handlers.AnalysisHandler
	Ask      *handlers.AskHandler
	Jobs     *handlers.JobsHandler
	Log      zerolog.Logger
}

// NewRouter builds the service router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Log))
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", deps.Analysis.Query)
		r.Post("/summarize", deps.Analysis.Summarize)
		r.Post("/assess", deps.Analysis.Assess)
		r.Post("/tax", deps.Analysis.Tax)
		r.Post("/classify", deps.Analysis.Classify)

		if deps.Ask != nil {
			r.Post("/ask", deps.Ask.Ask)
		}
		if deps.Jobs != nil {
			r.Post("/jobs", deps.Jobs.Enqueue)
			r.Get("/jobs", deps.Jobs.ListJobs)
			r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
				deps.Jobs.GetJob(w, req, chi.URLParam(req, "id"))
			})
		}
	})

	return r
}
