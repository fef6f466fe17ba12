package routes

import (
	"net/http"

	"github.com/templui/formdesk/internal/app"
	"github.com/templui/formdesk/internal/handler"
	"github.com/templui/formdesk/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	submissions := handler.NewSubmissionHandler(app.SubmissionService, app.Cfg.MaxUploadSize)
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg.TrustProxy)
	health := handler.NewHealthHandler(app.DB, app.Cfg.AppEnv)

	// Middleware
	api := middleware.RateLimit(app.APILimiter, app.Cfg.TrustProxy) // every /api/ route
	loginLimit := middleware.RateLimit(app.LoginLimiter, app.Cfg.TrustProxy)
	admin := middleware.RequireAdmin(app.AuthService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", health.Health)

	// Submissions
	mux.HandleFunc("POST /api/v1/submissions/submit", api(submissions.Submit))
	mux.HandleFunc("POST /submit-form", submissions.Submit)

	// Uploaded attachments (local storage only, S3 serves presigned links)
	mux.HandleFunc("GET /uploads/{name}", submissions.ServeUpload)

	// Admin login (rate limited)
	mux.HandleFunc("POST /api/v1/admin/login", api(loginLimit(auth.Login)))
	mux.HandleFunc("POST /admin/login", loginLimit(auth.Login))

	// ============================================================================
	// ADMIN ROUTES (bearer token required)
	// ============================================================================

	mux.HandleFunc("GET /api/v1/admin/submissions", api(admin(submissions.List)))
	mux.HandleFunc("GET /api/v1/admin/submissions/{id}", api(admin(submissions.Get)))
	mux.HandleFunc("DELETE /api/v1/admin/submissions/{id}", api(admin(submissions.Delete)))
	mux.HandleFunc("GET /api/v1/admin/export-csv", api(admin(submissions.ExportCSV)))

	// Unversioned aliases kept for existing clients
	mux.HandleFunc("GET /admin/submissions", admin(submissions.List))
	mux.HandleFunc("GET /admin/submissions/{id}", admin(submissions.Get))
	mux.HandleFunc("DELETE /admin/submissions/{id}", admin(submissions.Delete))
	mux.HandleFunc("GET /admin/export-csv", admin(submissions.ExportCSV))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	if app.Cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(app.Cfg.StaticDir)))
	}
	mux.HandleFunc("/", handler.NotFound)

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recover,
		middleware.SecurityHeaders(app.Cfg.IsProduction()),
		middleware.RequestLogging,
		middleware.Config(app.Cfg),
	)
}
