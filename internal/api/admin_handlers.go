package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/koldby/designsurvey/internal/middleware"
	"github.com/koldby/designsurvey/internal/services"
)

const maxUploadBytes = 10 << 20

// POST /api/admin/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	token, err := rt.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

// POST /api/admin/upload — multipart form with the survey XML under "file".
// The document is validated before it replaces the active one; a rejected
// upload leaves the current survey untouched.
func (rt *Router) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, services.NewInvalidError("No file uploaded"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, services.NewInvalidError("No file uploaded"))
		return
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.surveys.Install(data); err != nil {
		writeError(w, err)
		return
	}
	if admin, ok := middleware.AdminFromContext(r.Context()); ok {
		log.Printf("survey document replaced by %s", admin)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Survey uploaded successfully"})
}

// GET /api/admin/responses
func (rt *Router) handleResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summaries, err := rt.stats.Summaries()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GET /api/admin/responses/{id} — download the raw stored record.
func (rt *Router) handleResponseDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := pathParam(r, "/api/admin/responses/")
	rec, err := rt.sessions.Record(id)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	_, _ = w.Write(data)
}

// GET /api/admin/stats
func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := rt.stats.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// POST /api/admin/cleanup — on-demand sweep; the server also runs one on an
// interval.
func (rt *Router) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	removed, err := rt.sessions.Cleanup()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Cleaned up %d sessions", removed)})
}
