package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/koldby/designsurvey/internal/models"
	"github.com/koldby/designsurvey/internal/services"
)

// SQLiteStore keeps the same doc-per-session layout as the file store, one
// JSON document per row. It backs deployments that want everything in a
// single database file instead of a responses directory.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes read-modify-write cycles
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateSession(rec *models.SessionRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.SessionID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, started_at, doc) VALUES (?, ?, ?)`,
		rec.SessionID, rec.StartTime.Format(time.RFC3339Nano), string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(id string) (*models.SessionRecord, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM sessions WHERE session_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	return decodeSessionDoc(id, doc)
}

func (s *SQLiteStore) UpdateSession(id string, mutate func(*models.SessionRecord) error) (*models.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin update for %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var doc string
	err = tx.QueryRow(`SELECT doc FROM sessions WHERE session_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	rec, err := decodeSessionDoc(id, doc)
	if err != nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	updated, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", id, err)
	}
	if _, err := tx.Exec(`UPDATE sessions SET doc = ? WHERE session_id = ?`, string(updated), id); err != nil {
		return nil, fmt.Errorf("update session %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update for %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListSessions() ([]*models.SessionRecord, error) {
	rows, err := s.db.Query(`SELECT session_id, doc FROM sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*models.SessionRecord
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		rec, err := decodeSessionDoc(id, doc)
		if err != nil {
			log.Printf("sqlite store: skipping unreadable session %s: %v", id, err)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteSession(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) InstallSurvey(data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO survey_document (id, doc, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("install survey document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ActiveSurvey() ([]byte, error) {
	var doc []byte
	err := s.db.QueryRow(`SELECT doc FROM survey_document WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read survey document: %w", err)
	}
	return doc, nil
}

func decodeSessionDoc(id, doc string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &rec, nil
}

var (
	_ services.SessionStore = (*SQLiteStore)(nil)
	_ services.SurveyStore  = (*SQLiteStore)(nil)
	_ services.StatsStore   = (*SQLiteStore)(nil)
)
