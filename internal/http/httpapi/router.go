package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/http/handlers"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/middleware"
)

// Options configures the cross-cutting middleware.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	// Middlewares dasar
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	limit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Route("/v1/tools", func(r chi.Router) {
		r.Get("/", app.ListTools)
		r.Route("/{tool}", func(r chi.Router) {
			r.Get("/", app.GetTool)
			r.Post("/validate", app.ValidateSettings)
			r.With(limit).Post("/runs", app.CreateRun)
		})
	})

	r.Route("/v1/runs/{id}", func(r chi.Router) {
		r.Get("/", app.GetRun)
		r.With(limit).Post("/start", app.StartRun)
		r.Post("/reset", app.ResetRun)
		r.Get("/events", app.RunEvents)
		r.Get("/ws", app.RunStream)
	})

	return r
}
