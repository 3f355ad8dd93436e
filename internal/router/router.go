package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"league-console/internal/access"
	"league-console/internal/config"
	"league-console/internal/handler"
	"league-console/internal/metrics"
	"league-console/internal/middleware"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Console *handler.ConsoleHandler
	Public  *handler.PublicHandler
	Stream  *handler.SessionStreamHandler

	// Optional; nil disables request metrics and the scrape endpoint.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

func New(cfg *config.Config, sessions *middleware.SessionMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", h.MetricsHandler)
	}

	// Long-lived; stays outside the request timeout.
	r.With(sessions.LoadSession).Get("/ws/session", h.Stream.Stream)

	r.Group(func(timed chi.Router) {
		timed.Use(middleware.Timeout(cfg.RequestTimeout))

		timed.Route("/public", func(public chi.Router) {
			public.Get("/leagues", h.Public.Leagues)
			public.Get("/leagues/{id}", h.Public.League)
			public.Get("/leagues/{id}/standings", h.Public.Standings)
			public.Get("/teams", h.Public.Teams)
		})

		timed.Group(func(open chi.Router) {
			open.Use(sessions.LoadSession)

			open.Get(middleware.LoginPath, h.Auth.LoginView)
			open.Get(access.DeniedPath, h.Auth.AccessDenied)
			open.Route("/auth", func(auth chi.Router) {
				auth.Post("/login", h.Auth.Login)
				auth.Post("/logout", h.Auth.Logout)
				auth.Get("/me", h.Auth.Me)
			})
		})

		timed.Group(func(console chi.Router) {
			console.Use(middleware.RequireAuthCookie)
			console.Use(sessions.LoadSession)

			console.With(gate(access.Authenticated)...).Get("/dashboard", h.Console.Home)

			console.With(gate(access.SystemAdminOnly)...).Get("/admin/dashboard", h.Console.AdminDashboard)
			console.With(gate(access.SystemAdminOnly)...).Get("/admin/tenants", h.Console.Tenants)

			console.With(gate(access.TenantAdminOnly)...).Get("/tenant/dashboard", h.Console.TenantDashboard)
			console.With(gate(access.TenantScoped)...).Get("/tenant/leagues", h.Console.TenantLeagues)
			console.With(gate(access.TenantScoped)...).Get("/tenant/posts", h.Console.TenantPosts)

			console.With(gate(access.LeagueAdminOnly)...).Get("/league/dashboard", h.Console.LeagueDashboard)
			console.With(gate(access.LeagueScoped)...).Get("/league/teams", h.Console.LeagueTeams)
			console.With(gate(access.LeagueScoped)...).Get("/league/seasons", h.Console.LeagueSeasons)
			console.With(gate(access.LeagueScoped)...).Get("/league/games", h.Console.LeagueGames)
			console.With(gate(access.LeagueScoped)...).Get("/league/posts", h.Console.LeaguePosts)
			console.With(gate(access.LeagueScoped)...).Post("/league/posts", h.Console.CreateLeaguePost)

			console.With(gate(access.TeamAdminOnly)...).Get("/team/dashboard", h.Console.TeamDashboard)
			console.With(gate(access.TeamScoped)...).Get("/team/players", h.Console.TeamPlayers)
			console.With(gate(access.TeamScoped)...).Get("/team/games", h.Console.TeamGames)
		})
	})

	return r
}

func gate(policy access.Policy) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{middleware.RequireRoles(policy), middleware.ResolveScope}
}
