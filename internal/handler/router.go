package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"repeater-directory/internal/auth"
	"repeater-directory/internal/util"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Gate      *auth.Gate
	Auth      *AuthHandler
	Users     *UserHandler
	Repeaters *RepeaterHandler
	Requests  *RequestHandler
	Health    func(ctx context.Context) error
	Logger    *zap.Logger
}

// NewRouter configures the Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(deps.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device-Id"},
		ExposedHeaders:   []string{"X-New-JWT"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(r.Context()); err != nil {
				util.Warn("Health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":  "degraded",
					"service": "repeater-directory",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "repeater-directory",
		})
	})

	router.Route("/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(deps.Gate))
		deps.Auth.RegisterRoutes(r)
		deps.Users.RegisterRoutes(r)
		deps.Repeaters.RegisterRoutes(r)
		deps.Requests.RegisterRoutes(r)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, KindNotFound, "Endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, KindNotFound, "Method not allowed")
	})

	return router
}
