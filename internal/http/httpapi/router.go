package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"leafwise/internal/http/handlers"
	"leafwise/internal/infra"
	"leafwise/internal/middleware"
)

// NewRouter wires the API surface. Auth endpoints are public; everything
// touching entitlements requires a session token, guest or registered.
func NewRouter(app *handlers.App, cfg *infra.Config, country middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Locale(country),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/plans", app.PlansList)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/guest", app.AuthGuest)
		r.Post("/signup", app.SignUp)
		r.Post("/signin", app.SignIn)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(cfg.JWTSecret))
			r.Post("/refresh", app.Refresh)
			r.Post("/signout", app.SignOut)
			r.Post("/promote", app.Promote)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Get("/v1/entitlements", app.EntitlementsGet)
		r.Post("/v1/entitlements/consume", app.EntitlementsConsume)
		r.Post("/v1/entitlements/login-bonus", app.LoginBonus)
		r.Post("/v1/plans/subscribe", app.PlansSubscribe)
	})

	return r
}
