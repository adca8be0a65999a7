// Package router wires the HTTP routes, middleware, and handlers together.
package router

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/corkboard/backend/internal/config"
	"github.com/corkboard/backend/internal/db"
	"github.com/corkboard/backend/internal/handlers"
	"github.com/corkboard/backend/internal/middleware"
	"github.com/corkboard/backend/internal/realtime"
	"github.com/corkboard/backend/internal/services"
)

// New builds the application router. The hub and publisher are constructed
// in main because the realtime core outlives any single request.
func New(
	cfg *config.Config,
	sqlDB *sql.DB,
	queries *db.Queries,
	authService *services.AuthService,
	accessService *services.AccessService,
	hub *realtime.Hub,
	publisher handlers.EventPublisher,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Handlers
	authHandler := handlers.NewAuthHandler(queries, authService)
	whiteboardHandler := handlers.NewWhiteboardHandler(queries, accessService, publisher)
	noteHandler := handlers.NewNoteHandler(queries, accessService, publisher)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Rate limiter for credential endpoints
	authRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	// The websocket endpoint sits outside the request logger: the connection
	// is hijacked and lives for hours.
	r.Get("/ws", wsHandler.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequestLogger)

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := sqlDB.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded","database":"unhealthy"}`))
				return
			}
			w.Write([]byte(`{"status":"ok","database":"healthy"}`))
		})

		// Accounts
		r.Route("/auth", func(r chi.Router) {
			r.With(authRateLimiter.Middleware).Post("/register", authHandler.Register)
			r.With(authRateLimiter.Middleware).Post("/login", authHandler.Login)

			r.With(middleware.AuthMiddleware(authService)).Get("/me", authHandler.Me)
		})

		// Whiteboards and notes
		r.Route("/whiteboards", func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))

			r.Get("/", whiteboardHandler.List)
			r.Post("/", whiteboardHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", whiteboardHandler.Get)
				r.Put("/", whiteboardHandler.Update)
				r.Delete("/", whiteboardHandler.Delete)

				r.Route("/shares", func(r chi.Router) {
					r.Get("/", whiteboardHandler.ListShares)
					r.Post("/", whiteboardHandler.Share)
					r.Delete("/{userId}", whiteboardHandler.Unshare)
				})

				r.Route("/notes", func(r chi.Router) {
					r.Get("/", noteHandler.List)
					r.Post("/", noteHandler.Create)
					r.Put("/{noteId}", noteHandler.Update)
					r.Delete("/{noteId}", noteHandler.Delete)
				})
			})
		})
	})

	return r
}
