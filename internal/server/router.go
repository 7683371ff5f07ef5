// Package server assembles the HTTP router and its configuration.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newsdeskhq/content-scheduler/internal/api"
	"github.com/newsdeskhq/content-scheduler/internal/core"
)

// Deps carries everything the router serves. An empty APIKey leaves the
// mutating endpoints unauthenticated; main refuses that combination unless
// explicitly allowed.
type Deps struct {
	Service   core.SchedulerService
	Executor  core.ScheduleExecutor
	Processor core.PendingProcessor
	Content   core.ContentRepository
	Health    core.HealthReporter
	APIKey    string
}

// NewRouter builds the HTTP router. Health and metrics are public; everything
// else sits behind the API key when one is configured.
func NewRouter(deps Deps) http.Handler {
	schedules := api.NewScheduleHandler(deps.Service, deps.Executor)
	process := api.NewProcessHandler(deps.Processor)
	content := api.NewContentHandler(deps.Content)
	system := api.NewSystemHandler(deps.Health)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(api.Headers)
	r.Use(api.RequestLogger)
	r.Use(api.LimitBody)
	r.Use(api.ValidateContentType)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", system.Health)
		r.Get("/info", system.Info)

		r.Group(func(r chi.Router) {
			if deps.APIKey != "" {
				r.Use(api.RequireAPIKey(deps.APIKey))
			}

			r.Route("/schedules", func(r chi.Router) {
				r.Post("/", schedules.Create)
				r.Get("/", schedules.List)
				r.Post("/batch", schedules.CreateBatch)
				r.Get("/{id}", schedules.Get)
				r.Post("/{id}/cancel", schedules.Cancel)
				r.Post("/{id}/retry", schedules.Retry)
			})

			r.Post("/process", process.Process)

			r.Route("/content", func(r chi.Router) {
				r.Put("/{type}/{id}", content.Put)
				r.Get("/{type}/{id}", content.Get)
			})
		})
	})

	return r
}
