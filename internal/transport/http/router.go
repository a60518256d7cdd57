package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"studenthub/internal/handler"
	"studenthub/internal/httputil"
	"studenthub/internal/metrics"
	authmw "studenthub/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	CourseHandler       *handler.CourseHandler
	CommentHandler      *handler.CommentHandler
	CourseFileHandler   *handler.CourseFileHandler
	NotificationHandler *handler.NotificationHandler
	AdminHandler        *handler.AdminHandler
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Student directory and profiles; responses are public but get enriched
	// when the viewer is signed in
	r.Route("/students", func(r chi.Router) {
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/", cfg.UserHandler.Directory)
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/{id}", cfg.UserHandler.GetProfile)
	})

	// Course catalog is browsable without an account
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/courses", cfg.CourseHandler.List)
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/courses/{id}", cfg.CourseHandler.Get)
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/courses/{id}/files", cfg.CourseFileHandler.List)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Patch("/me", cfg.UserHandler.UpdateProfile)

		// Auth actions that require authentication
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		// Enrollment
		r.Post("/courses/{id}/enroll", cfg.CourseHandler.Enroll)
		r.Delete("/courses/{id}/enroll", cfg.CourseHandler.Unenroll)
		r.Get("/courses/{id}/students", cfg.CourseHandler.Roster)

		// Course discussion threads
		r.Route("/courses/{id}/comments", func(r chi.Router) {
			r.Get("/", cfg.CommentHandler.GetThread)
			r.Post("/", cfg.CommentHandler.Create)
			r.Get("/live", cfg.CommentHandler.Live)
			r.Delete("/{commentId}", cfg.CommentHandler.Delete)
			r.Put("/{commentId}/collapse", cfg.CommentHandler.SetCollapsed)
		})

		// Course files (direct-to-R2 presign plus proxied upload)
		r.Post("/courses/{id}/files", cfg.CourseFileHandler.Register)
		r.Post("/courses/{id}/files/upload", cfg.CourseFileHandler.Upload)
		r.Post("/courses/{id}/files/presign", cfg.CourseFileHandler.Presign)
		r.Delete("/courses/{id}/files/{fileId}", cfg.CourseFileHandler.Delete)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.UnreadCount)
			r.Post("/read", cfg.NotificationHandler.MarkRead)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
		})

		// Admin dashboard
		r.Route("/admin", func(r chi.Router) {
			r.Use(authmw.RequireAdmin)
			r.Get("/users", cfg.AdminHandler.ListUsers)
			r.Patch("/users/{id}", cfg.AdminHandler.UpdateUser)
			r.Post("/courses", cfg.CourseHandler.Create)
			r.Patch("/courses/{id}", cfg.CourseHandler.Update)
			r.Delete("/courses/{id}", cfg.CourseHandler.Delete)
		})
	})

	return r
}
