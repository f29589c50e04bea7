package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/jsvoboda/recipe-api/internal/auth"
	"github.com/jsvoboda/recipe-api/internal/config"
	"github.com/jsvoboda/recipe-api/internal/httputil"
	"github.com/jsvoboda/recipe-api/internal/logging"
	"github.com/jsvoboda/recipe-api/internal/recipe"
	"github.com/jsvoboda/recipe-api/internal/taxonomy"
	"github.com/jsvoboda/recipe-api/internal/user"
)

// Handlers bundles the resource handlers wired into the router.
type Handlers struct {
	User        *user.Handler
	Recipe      *recipe.Handler
	Tags        *taxonomy.Handler
	Ingredients *taxonomy.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, handlers Handlers, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		log.Println("Swagger UI disabled (production mode)")
	}

	// User and token routes (public)
	r.Route("/users", func(r chi.Router) {
		r.Post("/", handlers.User.Register)
		r.Post("/token", handlers.User.Token)
		r.Post("/token/refresh", handlers.User.RefreshToken)
		r.Post("/token/revoke", handlers.User.RevokeToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/me", handlers.User.Me)
			r.Patch("/me", handlers.User.UpdateMe)
		})
	})

	// Protected resources (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", handlers.Recipe.List)
			r.Post("/", handlers.Recipe.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handlers.Recipe.Get)
				r.Put("/", handlers.Recipe.Put)
				r.Patch("/", handlers.Recipe.Patch)
				r.Delete("/", handlers.Recipe.Delete)
				r.Post("/upload-image", handlers.Recipe.UploadImage)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", handlers.Tags.List)
			r.Patch("/{id}", handlers.Tags.Update)
			r.Delete("/{id}", handlers.Tags.Delete)
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", handlers.Ingredients.List)
			r.Patch("/{id}", handlers.Ingredients.Update)
			r.Delete("/{id}", handlers.Ingredients.Delete)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
