package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/koldby/designsurvey/internal/models"
	"github.com/koldby/designsurvey/internal/services"
)

// flexID accepts a JSON string or number; clients are inconsistent about
// whether website ids are quoted.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// GET /api/survey/start
func (rt *Router) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rec, err := rt.sessions.Start()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": rec.SessionID})
}

// GET /api/survey/questions/{sessionId}
func (rt *Router) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	model, err := rt.sessions.Questions(pathParam(r, "/api/survey/questions/"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

// POST /api/survey/demographics/{sessionId}
func (rt *Router) handleDemographics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Answers map[string]models.AnswerValue `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	if err := rt.sessions.SubmitDemographics(pathParam(r, "/api/survey/demographics/"), req.Answers); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// POST /api/survey/submit/{sessionId}
// { websiteId, answers, viewTime?, partial? }
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		WebsiteID flexID                        `json:"websiteId"`
		Answers   map[string]models.AnswerValue `json:"answers"`
		ViewTime  *float64                      `json:"viewTime"`
		Partial   bool                          `json:"partial"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	err := rt.sessions.SubmitAnswers(pathParam(r, "/api/survey/submit/"), services.SubmitAnswersRequest{
		WebsiteID: strings.TrimSpace(string(req.WebsiteID)),
		Answers:   req.Answers,
		ViewTime:  req.ViewTime,
		Partial:   req.Partial,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// POST /api/survey/complete/{sessionId}
func (rt *Router) handleComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := rt.sessions.Complete(pathParam(r, "/api/survey/complete/")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
