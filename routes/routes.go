package routes

import (
	"github.com/Dosada05/gauntlet-system/handlers"
	"github.com/Dosada05/gauntlet-system/middleware"
	"github.com/Dosada05/gauntlet-system/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Phase       *handlers.PhaseHandler
	Participant *handlers.ParticipantHandler
	Bracket     *handlers.BracketHandler
	Leaderboard *handlers.LeaderboardHandler
	Analytics   *handlers.AnalyticsHandler
	Proxy       *handlers.ProxyHandler
	WebSocket   *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, authService services.AuthService) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(authService)

	router.Post("/auth/login", h.Auth.LoginHandler)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/auth/users", h.Auth.CreateUserHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/leaderboard", h.Leaderboard.GetHandler)
		r.Get("/{tournamentID}/bracket", h.Bracket.GetHandler)
		r.Get("/{tournamentID}/phases", h.Phase.ListHandler)
		r.Get("/{tournamentID}/participants", h.Participant.ListHandler)
		r.Get("/{tournamentID}/audit", h.Tournament.AuditLogHandler)

		// Admin mutations.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireAdmin)

			r.Post("/", h.Tournament.CreateHandler)
			r.Patch("/{tournamentID}", h.Tournament.UpdateDetailsHandler)
			r.Patch("/{tournamentID}/status", h.Tournament.UpdateStatusHandler)
			r.Put("/{tournamentID}/scoring", h.Tournament.UpdateScoringHandler)
			r.Delete("/{tournamentID}", h.Tournament.DeleteHandler)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogoHandler)

			r.Post("/{tournamentID}/participants", h.Participant.RegisterHandler)
			r.Post("/{tournamentID}/participants/import", h.Participant.BulkImportHandler)
			r.Post("/{tournamentID}/participants/remove", h.Participant.BulkRemoveHandler)

			r.Post("/{tournamentID}/bracket", h.Bracket.GenerateHandler)
			r.Post("/{tournamentID}/bracket/matches/{matchUID}/winner", h.Bracket.ReportWinnerHandler)
		})
	})

	router.Route("/participants", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireAdmin)

		r.Post("/{participantID}/approve", h.Participant.ApproveHandler)
		r.Post("/{participantID}/reject", h.Participant.RejectHandler)
		r.Post("/{participantID}/check-in", h.Participant.CheckInHandler)
		r.Post("/{participantID}/eliminate", h.Participant.EliminateHandler)
		r.Post("/{participantID}/results", h.Participant.RecordResultHandler)
		r.Delete("/{participantID}", h.Participant.RemoveHandler)
	})

	router.Route("/phases", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireAdmin)

		r.Post("/{phaseID}/start", h.Phase.StartHandler)
		r.Post("/{phaseID}/advance", h.Phase.AdvanceHandler)
	})

	router.Get("/analytics/summary", h.Analytics.SummaryHandler)
	router.Get("/analytics/players/{playerID}", h.Analytics.PlayerStatsHandler)
	router.Post("/proxy/gauntlet", h.Proxy.GauntletSearchHandler)

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
