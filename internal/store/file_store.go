package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/koldby/designsurvey/internal/models"
	"github.com/koldby/designsurvey/internal/services"
)

// FileStore persists one JSON document per session under
// <dataDir>/responses/<sessionId>.json and the single active survey document
// at <dataDir>/surveys/survey-questions.xml.
//
// Mutations for the same session are serialized through a per-session mutex,
// and every write goes to a temporary file renamed over the target, so a
// failed write leaves the previous document intact and concurrent readers
// observe either the old or the new document in full.
type FileStore struct {
	responsesDir string
	surveyPath   string

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex

	surveyMu sync.RWMutex
}

func NewFileStore(dataDir string) (*FileStore, error) {
	responsesDir := filepath.Join(dataDir, "responses")
	surveysDir := filepath.Join(dataDir, "surveys")
	for _, dir := range []string{responsesDir, surveysDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	return &FileStore{
		responsesDir: responsesDir,
		surveyPath:   filepath.Join(surveysDir, "survey-questions.xml"),
		locks:        map[string]*sync.Mutex{},
	}, nil
}

func (s *FileStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *FileStore) dropLock(id string) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.responsesDir, id+".json")
}

// validSessionID rejects ids that could escape the responses directory.
// Generated ids are UUIDs; anything else is treated as unknown.
func validSessionID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

func (s *FileStore) CreateSession(rec *models.SessionRecord) error {
	l := s.lockFor(rec.SessionID)
	l.Lock()
	defer l.Unlock()
	return s.writeSession(rec)
}

func (s *FileStore) GetSession(id string) (*models.SessionRecord, error) {
	return s.readSession(id)
}

func (s *FileStore) UpdateSession(id string, mutate func(*models.SessionRecord) error) (*models.SessionRecord, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	rec, err := s.readSession(id)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	if err := s.writeSession(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *FileStore) ListSessions() ([]*models.SessionRecord, error) {
	entries, err := os.ReadDir(s.responsesDir)
	if err != nil {
		return nil, fmt.Errorf("read responses dir: %w", err)
	}
	out := make([]*models.SessionRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := s.readSession(strings.TrimSuffix(name, ".json"))
		if err != nil {
			log.Printf("file store: skipping unreadable session file %s: %v", name, err)
			continue
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *FileStore) DeleteSession(id string) (bool, error) {
	if !validSessionID(id) {
		return false, nil
	}
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	err := os.Remove(s.sessionPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove session %s: %w", id, err)
	}
	s.dropLock(id)
	return true, nil
}

func (s *FileStore) InstallSurvey(data []byte) error {
	s.surveyMu.Lock()
	defer s.surveyMu.Unlock()
	return writeFileAtomic(s.surveyPath, data)
}

func (s *FileStore) ActiveSurvey() ([]byte, error) {
	s.surveyMu.RLock()
	defer s.surveyMu.RUnlock()
	data, err := os.ReadFile(s.surveyPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read survey document: %w", err)
	}
	return data, nil
}

func (s *FileStore) readSession(id string) (*models.SessionRecord, error) {
	if !validSessionID(id) {
		return nil, nil
	}
	data, err := os.ReadFile(s.sessionPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var rec models.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &rec, nil
}

func (s *FileStore) writeSession(rec *models.SessionRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.SessionID, err)
	}
	return writeFileAtomic(s.sessionPath(rec.SessionID), data)
}

// writeFileAtomic writes to a sibling temp file and renames it over the
// target, so readers never observe a torn document.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

var (
	_ services.SessionStore = (*FileStore)(nil)
	_ services.SurveyStore  = (*FileStore)(nil)
	_ services.StatsStore   = (*FileStore)(nil)
)
