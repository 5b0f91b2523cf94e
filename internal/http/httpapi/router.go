package httpapi

import (
	stdhttp "net/http"
	"time"

	"genengine/internal/http/handlers"
	"genengine/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the versioned HTTP surface of the API binary. The country
// lookup feeds locale detection and may be nil when no GeoIP database is
// configured.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	if app.Config.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
	}
	if len(app.Config.CORSOrigins) > 0 {
		r.Use(middleware.CORS(app.Config.CORSOrigins))
	}
	r.Use(middleware.I18N("", lookup))

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/stats", app.StatsSummary)

	r.Post("/v1/generate", app.RequestsCreate)
	r.Route("/v1/requests", func(r chi.Router) {
		r.Get("/{id}", app.RequestStatus)
		r.Get("/{id}/bundle", app.RequestBundle)
	})
	r.Route("/v1/assets", func(r chi.Router) {
		r.Get("/", app.ListAssets)
		r.Get("/{id}/download", app.DownloadAsset)
	})

	// Generated files are also reachable directly under the storage base URL.
	if app.Store != nil {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(app.Store.BasePath())))
		r.Handle("/static/*", fs)
	}

	return r
}
