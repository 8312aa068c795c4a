package api

import (
	"net/http"
	"strings"

	"github.com/koldby/designsurvey/internal/middleware"
	"github.com/koldby/designsurvey/internal/services"
)

type Router struct {
	sessions *services.SessionService
	surveys  *services.SurveyService
	stats    *services.StatsService
	auth     *services.AuthService
}

func NewRouter(sessions *services.SessionService, surveys *services.SurveyService, stats *services.StatsService, auth *services.AuthService) *Router {
	return &Router{sessions: sessions, surveys: surveys, stats: stats, auth: auth}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/survey/start", rt.handleStart)                // GET
	mux.HandleFunc("/api/survey/questions/", rt.handleQuestions)       // GET /{sessionId}
	mux.HandleFunc("/api/survey/demographics/", rt.handleDemographics) // POST /{sessionId}
	mux.HandleFunc("/api/survey/submit/", rt.handleSubmit)             // POST /{sessionId}
	mux.HandleFunc("/api/survey/complete/", rt.handleComplete)         // POST /{sessionId}

	mux.HandleFunc("/api/admin/login", rt.handleLogin) // POST
	mux.Handle("/api/admin/upload", middleware.RequireAdmin(http.HandlerFunc(rt.handleUpload)))
	mux.Handle("/api/admin/responses", middleware.RequireAdmin(http.HandlerFunc(rt.handleResponses)))
	mux.Handle("/api/admin/responses/", middleware.RequireAdmin(http.HandlerFunc(rt.handleResponseDownload)))
	mux.Handle("/api/admin/stats", middleware.RequireAdmin(http.HandlerFunc(rt.handleStats)))
	mux.Handle("/api/admin/cleanup", middleware.RequireAdmin(http.HandlerFunc(rt.handleCleanup)))
}

// pathParam extracts the trailing path segment after prefix, e.g. the session
// id from /api/survey/questions/{sessionId}.
func pathParam(r *http.Request, prefix string) string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	return strings.Trim(rest, "/")
}
