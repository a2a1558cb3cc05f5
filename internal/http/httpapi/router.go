package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fotopro/internal/http/handlers"
	"fotopro/internal/middleware"
)

// NewRouter assembles the HTTP surface: the legacy /api endpoints keep their
// original paths and contracts, everything else lives under /v1.
func NewRouter(app *handlers.App, geo middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.I18N("en", geo),
		middleware.Logger(app.Logger),
	)
	if app.Config.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	// Public endpoints.
	r.Post("/api/enhance", app.Enhance)
	r.Post("/api/webhook", app.StripeWebhook)
	r.Post("/v1/auth/google", app.AuthGoogle)

	r.Route("/v1/guest/enhancements", func(r chi.Router) {
		r.Post("/", app.GuestEnhance)
		r.Get("/", app.GuestGallery)
		r.Delete("/", app.GuestClear)
	})

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))

		r.Get("/v1/me", app.Me)
		r.Route("/v1/enhancements", func(r chi.Router) {
			r.Post("/", app.CreateEnhancement)
			r.Get("/", app.ListEnhancements)
		})
		r.Get("/v1/subscriptions/current", app.CurrentSubscription)
		r.Post("/v1/checkout", app.CreateCheckout)
	})

	// Stored originals and enhanced results.
	fs := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Config.StoragePath)))
	r.Get("/static/*", fs.ServeHTTP)

	return r
}
