package handlers

import (
	"net/http"

	"neovidya/internal/models"
)

// Handlers groups the handlers mounted by NewRouter
type Handlers struct {
	Auth     *AuthHandler
	Courses  *CourseHandler
	Progress *ProgressHandler
	Admin    *AdminHandler
	Health   *HealthHandler
	Static   http.Handler
}

// NewRouter registers every route and wraps the mux with the global middleware
func NewRouter(h Handlers, m *Middleware) http.Handler {
	mux := http.NewServeMux()
	api := m.RateLimit
	admin := m.RequireRole(models.RoleAdmin)

	// Health
	mux.HandleFunc("GET /api/health", api(h.Health.Health))
	mux.HandleFunc("GET /api/health/db", api(h.Health.HealthDB))

	// Auth
	mux.HandleFunc("POST /api/auth/register", api(m.Authenticate(h.Auth.Register)))
	mux.HandleFunc("POST /api/auth/login", api(h.Auth.Login))
	mux.HandleFunc("GET /api/auth/me", api(m.RequireAuth(h.Auth.Me)))

	// Course catalogue
	mux.HandleFunc("GET /api/courses", api(h.Courses.ListCourses))
	mux.HandleFunc("GET /api/courses/{key}", api(h.Courses.GetCourse))
	mux.HandleFunc("GET /api/courses/{key}/progress", api(m.RequireAuth(h.Courses.CourseProgress)))

	// Progress ledger and stats
	mux.HandleFunc("GET /api/progress", api(m.RequireAuth(h.Progress.ListProgress)))
	mux.HandleFunc("GET /api/progress/stats", api(m.RequireAuth(h.Progress.GetStats)))
	mux.HandleFunc("POST /api/progress/stats", api(m.RequireAuth(h.Progress.UpdateStats)))
	mux.HandleFunc("POST /api/progress/{subject}/{chapter}/{item}", api(m.RequireAuth(h.Progress.RecordProgress)))

	// Schools and admin
	mux.HandleFunc("GET /api/schools", api(h.Admin.ListSchools))
	mux.HandleFunc("GET /api/admin/users", api(admin(h.Admin.ListUsers)))
	mux.HandleFunc("DELETE /api/admin/schools/{id}", api(admin(h.Admin.DeleteSchool)))
	mux.HandleFunc("GET /api/admin/export", api(admin(h.Admin.ExportDatabase)))
	mux.HandleFunc("GET /api/admin/report", api(admin(h.Admin.ExportReport)))

	// Frontend
	if h.Static != nil {
		mux.Handle("GET /", h.Static)
	}

	return m.Logging(SecurityHeaders(m.CORS(m.BodyLimit(mux))))
}
