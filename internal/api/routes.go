package api

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/intermernet/scoreboard/internal/metrics"
)

// RegisterRoutes sets up all the API endpoints and middleware for the application.
func (s *Server) RegisterRoutes(r *chi.Mux) {
	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(instrument)
	r.Use(middleware.Recoverer)

	// The public overview lives at the leaderboard endpoint.
	r.Get("/", s.handleOverviewRedirect)
	r.Get("/overview", s.handleOverviewRedirect)

	// --- Static Files & Metrics ---
	logoDir := filepath.Join(s.config.StaticPath, "images", "clusters")
	r.Handle("/static/images/clusters/*", http.StripPrefix("/static/images/clusters/", http.FileServer(http.Dir(logoDir))))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		origins := []string{"http://localhost:5173", "http://localhost:3000"}
		if origin := s.config.FrontendOrigin(); origin != "" {
			origins = append(origins, origin)
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		// Public routes
		r.Get("/leaderboard", s.handleGetLeaderboard)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		// --- Authenticated Routes ---
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/users/me", s.handleGetMyProfile)
			r.Get("/clusters", s.handleGetClusters)

			// Event Routes
			r.Get("/events", s.handleListEvents)
			r.Post("/events", s.handleCreateEvent)
			r.Get("/events/{eventID}", s.handleGetEvent)
			r.Put("/events/{eventID}", s.handleUpdateEvent)
			r.Delete("/events/{eventID}", s.handleDeleteEvent)

			// --- Admin Routes ---
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)

				r.Get("/managers", s.handleListManagers)
				r.Post("/managers", s.handleCreateManager)
				r.Put("/managers/{userID}", s.handleUpdateManager)
				r.Delete("/managers/{userID}", s.handleDeleteManager)

				r.Get("/logs", s.handleListLogs)
			})
		})
	})
}

func (s *Server) handleOverviewRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/api/v1/leaderboard", http.StatusFound)
}
