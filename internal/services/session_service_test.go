package services

import (
	"strings"
	"testing"
	"time"

	"github.com/koldby/designsurvey/internal/models"
)

type stubStore struct {
	sessions map[string]*models.SessionRecord
	order    []string
	survey   []byte
	deleted  []string
}

func newStubStore() *stubStore {
	return &stubStore{sessions: map[string]*models.SessionRecord{}}
}

func (s *stubStore) CreateSession(rec *models.SessionRecord) error {
	cp := *rec
	s.sessions[rec.SessionID] = &cp
	s.order = append(s.order, rec.SessionID)
	return nil
}

func (s *stubStore) GetSession(id string) (*models.SessionRecord, error) {
	rec, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *stubStore) UpdateSession(id string, mutate func(*models.SessionRecord) error) (*models.SessionRecord, error) {
	rec, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	cp := *rec
	return &cp, nil
}

func (s *stubStore) ListSessions() ([]*models.SessionRecord, error) {
	out := make([]*models.SessionRecord, 0, len(s.order))
	for _, id := range s.order {
		if rec, ok := s.sessions[id]; ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubStore) DeleteSession(id string) (bool, error) {
	if _, ok := s.sessions[id]; !ok {
		return false, nil
	}
	delete(s.sessions, id)
	s.deleted = append(s.deleted, id)
	return true, nil
}

func (s *stubStore) InstallSurvey(data []byte) error {
	s.survey = append([]byte(nil), data...)
	return nil
}

func (s *stubStore) ActiveSurvey() ([]byte, error) {
	return s.survey, nil
}

func newTestService(store *stubStore) *SessionService {
	svc := NewSessionService(store, store)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	return svc
}

func expectCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if se.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, se.Code, se.Message)
	}
}

func TestStartCreatesRecord(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	rec, err := svc.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	stored := store.sessions[rec.SessionID]
	if stored == nil {
		t.Fatalf("record not persisted")
	}
	if stored.Completed || len(stored.Answers) != 0 || len(stored.Demographics) != 0 {
		t.Fatalf("fresh record not empty: %+v", stored)
	}
	if stored.StartTime.IsZero() {
		t.Fatalf("start time not set")
	}
}

func TestUnknownSessionEverywhere(t *testing.T) {
	store := newStubStore()
	store.survey = []byte(sampleSurveyXML)
	svc := newTestService(store)

	_, err := svc.Questions("nope")
	expectCode(t, err, ErrorNotFound)
	expectCode(t, svc.SubmitDemographics("nope", nil), ErrorNotFound)
	expectCode(t, svc.SubmitAnswers("nope", SubmitAnswersRequest{WebsiteID: "1"}), ErrorNotFound)
	expectCode(t, svc.Complete("nope"), ErrorNotFound)
	_, err = svc.Record("nope")
	expectCode(t, err, ErrorNotFound)
}

func TestQuestionsWithoutSurveyDocument(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	rec, _ := svc.Start()
	_, err := svc.Questions(rec.SessionID)
	expectCode(t, err, ErrorNotFound)
}

func TestQuestionsReturnsModel(t *testing.T) {
	store := newStubStore()
	store.survey = []byte(sampleSurveyXML)
	svc := newTestService(store)
	rec, _ := svc.Start()
	model, err := svc.Questions(rec.SessionID)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(model.Websites) != 3 {
		t.Fatalf("expected 3 websites, got %d", len(model.Websites))
	}
	if len(model.DemographicQuestions) == 0 || len(model.WebsiteQuestions) == 0 {
		t.Fatalf("expected both partitions populated")
	}
}

func TestQuestionsShuffleComputedPerFetch(t *testing.T) {
	store := newStubStore()
	store.survey = []byte(sampleSurveyXML) // sample requests randomization
	svc := newTestService(store)
	svc.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	rec, _ := svc.Start()
	model, err := svc.Questions(rec.SessionID)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if model.Websites[0].ID != "3" || model.Websites[2].ID != "1" {
		t.Fatalf("expected shuffled order, got %+v", model.Websites)
	}

	// When no group opts in, the fixture order is preserved.
	store.survey = []byte(
		strings.ReplaceAll(sampleSurveyXML, "<tilfældigRækkefølge>true</tilfældigRækkefølge>", "<tilfældigRækkefølge>false</tilfældigRækkefølge>"))
	model, err = svc.Questions(rec.SessionID)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if model.Websites[0].ID != "1" || model.Websites[2].ID != "3" {
		t.Fatalf("expected fixture order, got %+v", model.Websites)
	}
}

func TestSubmitDemographicsReplacesWholesale(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	rec, _ := svc.Start()

	first := map[string]models.AnswerValue{
		"alder": models.NumberAnswer(34),
		"køn":   models.TextAnswer("kvinde"),
	}
	if err := svc.SubmitDemographics(rec.SessionID, first); err != nil {
		t.Fatalf("SubmitDemographics: %v", err)
	}
	second := map[string]models.AnswerValue{"alder": models.NumberAnswer(35)}
	if err := svc.SubmitDemographics(rec.SessionID, second); err != nil {
		t.Fatalf("SubmitDemographics: %v", err)
	}
	stored := store.sessions[rec.SessionID]
	if len(stored.Demographics) != 1 {
		t.Fatalf("expected wholesale replacement, got %d entries", len(stored.Demographics))
	}
	if _, ok := stored.Demographics["køn"]; ok {
		t.Fatalf("old demographic answer survived replacement")
	}
	if stored.LastUpdated == nil {
		t.Fatalf("lastUpdated not set")
	}
}

func TestSubmitAnswersMissingWebsiteID(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	rec, _ := svc.Start()
	expectCode(t, svc.SubmitAnswers(rec.SessionID, SubmitAnswersRequest{}), ErrorInvalid)
	expectCode(t, svc.SubmitAnswers("", SubmitAnswersRequest{WebsiteID: "1"}), ErrorInvalid)
}

func TestSubmitAnswersAtMostOneEntryPerWebsite(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	rec, _ := svc.Start()

	vt := 5.0
	for i := 0; i < 3; i++ {
		err := svc.SubmitAnswers(rec.SessionID, SubmitAnswersRequest{
			WebsiteID: "2",
			Answers:   map[string]models.AnswerValue{"q1": models.NumberAnswer(float64(i))},
			ViewTime:  &vt,
			Partial:   true,
		})
		if err != nil {
			t.Fatalf("partial save %d: %v", i, err)
		}
	}
	err := svc.SubmitAnswers(rec.SessionID, SubmitAnswersRequest{
		WebsiteID: "2",
		Answers:   map[string]models.AnswerValue{"q1": models.NumberAnswer(4)},
		Partial:   false,
	})
	if err != nil {
		t.Fatalf("final save: %v", err)
	}

	stored := store.sessions[rec.SessionID]
	if len(stored.Answers) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(stored.Answers))
	}
	entry := stored.Answers[0]
	if entry.WebsiteID != "2" || entry.IsPartial {
		t.Fatalf("expected final entry for website 2, got %+v", entry)
	}
	if entry.Responses["q1"].Number != 4 {
		t.Fatalf("final responses not applied: %+v", entry.Responses)
	}
}

func TestViewTimeMonotonic(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	rec, _ := svc.Start()

	vt := 12.0
	if err := svc.SubmitAnswers(rec.SessionID, SubmitAnswersRequest{WebsiteID: "1", ViewTime: &vt, Partial: true}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := svc.SubmitAnswers(rec.SessionID, SubmitAnswersRequest{WebsiteID: "1", Partial: true}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	entry := store.sessions[rec.SessionID].Answers[0]
	if entry.ViewTime == nil || *entry.ViewTime != 12 {
		t.Fatalf("viewTime regressed: %+v", entry.ViewTime)
	}
}

func TestAnsweredAtSetOnceUpdatedAtRefreshed(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := base
	svc.now = func() time.Time { return current }

	rec, _ := svc.Start()
	if err := svc.SubmitAnswers(rec.SessionID, SubmitAnswersRequest{WebsiteID: "1", Partial: true}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	current = base.Add(time.Minute)
	if err := svc.SubmitAnswers(rec.SessionID, SubmitAnswersRequest{WebsiteID: "1", Partial: false}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	entry := store.sessions[rec.SessionID].Answers[0]
	if !entry.AnsweredAt.Equal(base) {
		t.Fatalf("answeredAt changed: %v", entry.AnsweredAt)
	}
	if !entry.UpdatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("updatedAt not refreshed: %v", entry.UpdatedAt)
	}
}

func TestCompleteIdempotent(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := base
	svc.now = func() time.Time { return current }

	rec, _ := svc.Start()
	if err := svc.Complete(rec.SessionID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	current = base.Add(time.Hour)
	if err := svc.Complete(rec.SessionID); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	stored := store.sessions[rec.SessionID]
	if !stored.Completed {
		t.Fatalf("not completed")
	}
	if stored.CompletedAt == nil || !stored.CompletedAt.Equal(base) {
		t.Fatalf("completedAt changed on second call: %v", stored.CompletedAt)
	}
}

func TestCleanupRetentionMatrix(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	add := func(id string, age time.Duration, completed bool) {
		rec := &models.SessionRecord{SessionID: id, StartTime: now.Add(-age), Completed: completed}
		store.sessions[id] = rec
		store.order = append(store.order, id)
	}
	add("completed-old", 25*time.Hour, true)
	add("incomplete-new", time.Minute, false)
	add("completed-new", time.Hour, true)

	removed, err := svc.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := store.sessions["completed-new"]; !ok {
		t.Fatalf("completed record within retention was removed")
	}
	if _, ok := store.sessions["completed-old"]; ok {
		t.Fatalf("completed record past retention was kept")
	}
	if _, ok := store.sessions["incomplete-new"]; ok {
		t.Fatalf("incomplete record was kept")
	}
}
