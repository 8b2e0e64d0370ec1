package routes

import (
	"github.com/floppyflax/beer-pong-league-sub000/handlers"
	"github.com/floppyflax/beer-pong-league-sub000/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes mounts the full HTTP surface on the router. Reads are public;
// account endpoints that act on behalf of a registered user require a JWT.
// Anonymous identities interact through the public write endpoints, passing
// their id in the request body.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	leagueHandler *handlers.LeagueHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	optionalAuth := middleware.OptionalAuthenticate([]byte(jwtSecret))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/anonymous", authHandler.CreateAnonymous)
		r.Get("/claim/receipt", authHandler.ClaimReceipt)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/claim", authHandler.Claim)
		})
	})

	router.Route("/leagues", func(r chi.Router) {
		r.Get("/", leagueHandler.List)
		r.Get("/{leagueID}", leagueHandler.GetByID)
		r.Get("/{leagueID}/ranking", leagueHandler.Ranking)
		r.Get("/{leagueID}/matches", matchHandler.ListLeagueMatches)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Post("/", leagueHandler.Create)
			r.Patch("/{leagueID}", leagueHandler.Rename)
			r.Delete("/{leagueID}", leagueHandler.Delete)
			r.Post("/{leagueID}/players", leagueHandler.AddPlayer)
			r.Post("/{leagueID}/matches", matchHandler.RecordLeagueMatch)
			r.Post("/{leagueID}/logo", leagueHandler.UploadLogo)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.GetByID)
		r.Get("/{tournamentID}/ranking", tournamentHandler.Ranking)
		r.Get("/{tournamentID}/matches", matchHandler.ListTournamentMatches)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Post("/", tournamentHandler.Create)
			r.Post("/{tournamentID}/members", tournamentHandler.AddMember)
			r.Post("/{tournamentID}/matches", matchHandler.RecordTournamentMatch)
			r.Post("/{tournamentID}/finish", tournamentHandler.Finish)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)
		})
	})

	router.Get("/dashboard", dashboardHandler.Stats)
	router.Get("/ws/leagues/{leagueID}", webSocketHandler.ServeLeague)
}
