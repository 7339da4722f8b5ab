package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mediagen/internal/http/handlers"
	"mediagen/internal/infra"
	"mediagen/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger, cfg *infra.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.I18N(cfg.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api/v1/tasks", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/", app.CreateTask)
		r.Get("/{task_id}", app.GetTask)
	})

	return r
}
