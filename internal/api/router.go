package api

import (
	"net/http"

	"github.com/Rrens/taskboard/internal/ai"
	"github.com/Rrens/taskboard/internal/ai/gemini"
	"github.com/Rrens/taskboard/internal/api/handler"
	customMiddleware "github.com/Rrens/taskboard/internal/api/middleware"
	"github.com/Rrens/taskboard/internal/config"
	"github.com/Rrens/taskboard/internal/identity"
	"github.com/Rrens/taskboard/internal/redis"
	"github.com/Rrens/taskboard/internal/store"
	"github.com/Rrens/taskboard/internal/sync"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the HTTP router. cloud and redisClient may
// be nil when the deployment runs without them.
func NewRouter(cfg *config.Config, log zerolog.Logger, manager *sync.Manager, cloud store.Store, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var planner ai.Planner
	if cfg.AI.Gemini.APIKey != "" {
		log.Info().Str("model", cfg.AI.Gemini.Model).Msg("Registering Gemini subtask planner")
		planner = gemini.NewPlanner(cfg.AI.Gemini)
	} else {
		log.Warn().Msg("Gemini API key is empty, subtask generation disabled")
	}

	verifier := identity.NewVerifier(cfg.Auth.JWTSecret)
	authMiddleware := customMiddleware.NewAuthMiddleware(verifier)

	sessionHandler := handler.NewSessionHandler(manager)
	workspaceHandler := handler.NewWorkspaceHandler(manager)
	boardHandler := handler.NewBoardHandler(manager)
	subtaskHandler := handler.NewSubtaskHandler(manager, planner)
	notificationHandler := handler.NewNotificationHandler(manager)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(cloud))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if redisClient != nil {
				rateLimiter := redis.NewRateLimiter(
					redisClient,
					cfg.Security.RateLimit.RequestsPerMinute,
					cfg.Security.RateLimit.Burst,
				)
				r.Use(customMiddleware.NewRateLimitMiddleware(rateLimiter).Limit)
			}

			r.Get("/session", sessionHandler.Get)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Post("/read", notificationHandler.MarkAllRead)
				r.Delete("/{notificationID}", notificationHandler.Dismiss)
			})

			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspaceHandler.List)
				r.Post("/", workspaceHandler.Create)
				r.Put("/order", workspaceHandler.Reorder)

				r.Route("/{workspaceID}", func(r chi.Router) {
					r.Patch("/", workspaceHandler.Update)
					r.Delete("/", workspaceHandler.Delete)

					r.Get("/state", boardHandler.State)
					r.Put("/tasks", boardHandler.SetTasks)
					r.Put("/projects", boardHandler.SetProjects)
					r.Put("/users", boardHandler.SetUsers)
					r.Post("/users", boardHandler.AddUser)
					r.Put("/messages", boardHandler.SetMessages)
					r.Post("/tasks/{taskID}/move", boardHandler.MoveTask)
					r.Post("/subtasks/generate", subtaskHandler.Generate)
				})
			})
		})
	})

	return r
}
