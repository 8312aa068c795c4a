package services

import (
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/koldby/designsurvey/internal/models"
)

// SessionStore abstracts per-session persistence. Lookups return (nil, nil)
// for unknown ids; the service translates that into a not-found failure.
// UpdateSession must serialize mutations for the same session id so that
// concurrent partial saves cannot interleave read-modify-write cycles.
type SessionStore interface {
	CreateSession(rec *models.SessionRecord) error
	GetSession(id string) (*models.SessionRecord, error)
	UpdateSession(id string, mutate func(*models.SessionRecord) error) (*models.SessionRecord, error)
	ListSessions() ([]*models.SessionRecord, error)
	DeleteSession(id string) (bool, error)
}

// sessionRetention is how long any record, completed or not, is kept before
// the cleanup sweep removes it.
const sessionRetention = 24 * time.Hour

// SessionService drives the session lifecycle: create, questions fetch,
// demographic capture, per-website partial/final submissions, completion and
// the cleanup sweep.
type SessionService struct {
	sessions  SessionStore
	surveys   SurveyStore
	now       func() time.Time
	newID     func() string
	shuffle   func(n int, swap func(i, j int))
	retention time.Duration
}

func NewSessionService(sessions SessionStore, surveys SurveyStore) *SessionService {
	return &SessionService{
		sessions:  sessions,
		surveys:   surveys,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		shuffle:   rand.Shuffle,
		retention: sessionRetention,
	}
}

// Start creates a fresh session record and returns it.
func (s *SessionService) Start() (*models.SessionRecord, error) {
	rec := &models.SessionRecord{
		SessionID:    s.newID(),
		StartTime:    s.now(),
		Demographics: map[string]models.AnswerValue{},
		Answers:      []models.WebsiteAnswer{},
	}
	if err := s.sessions.CreateSession(rec); err != nil {
		return nil, err
	}
	log.Printf("created survey session %s", rec.SessionID)
	return rec, nil
}

// Questions verifies the session, loads the active survey document and
// transforms it. The website order is computed at query time: when any group
// requests randomization, every fetch re-rolls the permutation.
func (s *SessionService) Questions(sessionID string) (*models.QuestionModel, error) {
	if sessionID == "" {
		return nil, NewInvalidError("Session ID is required")
	}
	rec, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, NewNotFoundError("Session not found")
	}
	data, err := s.surveys.ActiveSurvey()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, NewNotFoundError("Survey questions not found")
	}
	model, err := TransformSurveyXML(data)
	if err != nil {
		return nil, err
	}
	if model.RandomizeWebsites {
		s.shuffle(len(model.Websites), func(i, j int) {
			model.Websites[i], model.Websites[j] = model.Websites[j], model.Websites[i]
		})
	}
	return model, nil
}

// SubmitDemographics replaces the demographic answers wholesale.
func (s *SessionService) SubmitDemographics(sessionID string, answers map[string]models.AnswerValue) error {
	if sessionID == "" {
		return NewInvalidError("Session ID is required")
	}
	if answers == nil {
		answers = map[string]models.AnswerValue{}
	}
	rec, err := s.sessions.UpdateSession(sessionID, func(rec *models.SessionRecord) error {
		now := s.now()
		rec.Demographics = answers
		rec.LastUpdated = &now
		return nil
	})
	if err != nil {
		return err
	}
	if rec == nil {
		return NewNotFoundError("Session not found")
	}
	return nil
}

// SubmitAnswersRequest carries one partial or final per-website submission.
type SubmitAnswersRequest struct {
	WebsiteID string
	Answers   map[string]models.AnswerValue
	ViewTime  *float64
	Partial   bool
}

// SubmitAnswers upserts the answer entry for the request's website. A record
// holds at most one entry per website id: repeated submissions overwrite the
// responses in place, keep AnsweredAt from the first save, and never regress
// ViewTime to absent.
func (s *SessionService) SubmitAnswers(sessionID string, req SubmitAnswersRequest) error {
	if sessionID == "" || req.WebsiteID == "" {
		return NewInvalidError("Missing required parameters")
	}
	answers := req.Answers
	if answers == nil {
		answers = map[string]models.AnswerValue{}
	}
	rec, err := s.sessions.UpdateSession(sessionID, func(rec *models.SessionRecord) error {
		now := s.now()
		idx := -1
		for i := range rec.Answers {
			if rec.Answers[i].WebsiteID == req.WebsiteID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			entry := &rec.Answers[idx]
			entry.Responses = answers
			entry.IsPartial = req.Partial
			entry.UpdatedAt = now
			if req.ViewTime != nil {
				entry.ViewTime = req.ViewTime
			}
		} else {
			rec.Answers = append(rec.Answers, models.WebsiteAnswer{
				WebsiteID:  req.WebsiteID,
				Responses:  answers,
				ViewTime:   req.ViewTime,
				IsPartial:  req.Partial,
				AnsweredAt: now,
				UpdatedAt:  now,
			})
		}
		rec.LastActivity = &now
		return nil
	})
	if err != nil {
		return err
	}
	if rec == nil {
		return NewNotFoundError("Session not found or invalid")
	}
	return nil
}

// Complete marks the session completed. The operation is idempotent:
// completing an already-completed session leaves CompletedAt untouched.
// Out-of-band completion (client disconnect) goes through the same path.
func (s *SessionService) Complete(sessionID string) error {
	if sessionID == "" {
		return NewInvalidError("Session ID is required")
	}
	rec, err := s.sessions.UpdateSession(sessionID, func(rec *models.SessionRecord) error {
		if rec.Completed {
			return nil
		}
		now := s.now()
		rec.Completed = true
		rec.CompletedAt = &now
		return nil
	})
	if err != nil {
		return err
	}
	if rec == nil {
		return NewNotFoundError("Session not found")
	}
	return nil
}

// Record returns the stored record, for the admin download.
func (s *SessionService) Record(sessionID string) (*models.SessionRecord, error) {
	if sessionID == "" {
		return nil, NewInvalidError("Session ID is required")
	}
	rec, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, NewNotFoundError("Response not found")
	}
	return rec, nil
}

// Cleanup removes incomplete records and records older than the retention
// window, completed or not. Safe to run repeatedly and alongside live
// traffic; a record deleted under a concurrent mutation surfaces to that
// caller as session-not-found.
func (s *SessionService) Cleanup() (int, error) {
	recs, err := s.sessions.ListSessions()
	if err != nil {
		return 0, err
	}
	now := s.now()
	removed := 0
	for _, rec := range recs {
		if rec.Completed && now.Sub(rec.StartTime) <= s.retention {
			continue
		}
		ok, err := s.sessions.DeleteSession(rec.SessionID)
		if err != nil {
			log.Printf("cleanup: failed to remove session %s: %v", rec.SessionID, err)
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		log.Printf("cleanup: removed %d sessions", removed)
	}
	return removed, nil
}
