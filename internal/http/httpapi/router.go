package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"wordcraft/internal/http/handlers"
	"wordcraft/internal/middleware"
)

// Options configure the cross-cutting middleware.
type Options struct {
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	Country            middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSAllowedOrigins),
		middleware.I18N(opts.Country),
	)

	r.Get("/v1/healthz", app.Health)

	requireSession := middleware.Auth(app.Secret, app.Sessions, app.Now)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			r.Post("/signup", app.SignUp)
			r.Post("/signin", app.SignIn)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/signout", app.SignOut)
			r.Get("/session", app.Session)
			r.Get("/sessions", app.ListSessions)
			r.Get("/events", app.Events)
		})
	})

	r.Route("/v1/profiles/me", func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/", app.ProfileGet)
		r.Patch("/", app.ProfileUpdate)
		r.Delete("/", app.ProfileDelete)
	})

	r.Route("/v1/documents", func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/", app.DocumentsList)
		r.Post("/", app.DocumentCreate)
		r.Patch("/{id}", app.DocumentUpdate)
		r.Delete("/{id}", app.DocumentDelete)
	})

	return r
}
