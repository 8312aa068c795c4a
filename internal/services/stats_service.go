package services

import (
	"github.com/koldby/designsurvey/internal/models"
)

// StatsStore is the read-only view over stored sessions used for admin
// listings and aggregate statistics. Implementations skip and log records
// that fail to parse; a malformed record never fails the scan.
type StatsStore interface {
	ListSessions() ([]*models.SessionRecord, error)
}

// StatsService derives summaries over all stored records.
type StatsService struct {
	store StatsStore
}

func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store}
}

// Summaries lists one row per stored record for the admin dashboard.
func (s *StatsService) Summaries() ([]models.ResponseSummary, error) {
	recs, err := s.store.ListSessions()
	if err != nil {
		return nil, err
	}
	out := make([]models.ResponseSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.ResponseSummary{
			ID:           rec.SessionID,
			StartTime:    rec.StartTime,
			AnswersCount: len(rec.Answers),
		})
	}
	return out, nil
}

// Stats aggregates counts over all stored records. The average is defined as
// zero when there are no responses.
func (s *StatsService) Stats() (*models.SurveyStats, error) {
	recs, err := s.store.ListSessions()
	if err != nil {
		return nil, err
	}
	stats := &models.SurveyStats{}
	for _, rec := range recs {
		stats.TotalResponses++
		stats.TotalAnswers += len(rec.Answers)
	}
	if stats.TotalResponses > 0 {
		stats.AverageAnswersPerResponse = float64(stats.TotalAnswers) / float64(stats.TotalResponses)
	}
	return stats, nil
}
