package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// createdLayout is fixed width so created_at sorts as text.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord is a saved session snapshot and the columns used to list it.
type SessionRecord struct {
	ID        string
	Query     string
	Mode      string
	Status    string
	CreatedAt time.Time
	Snapshot  []byte
}

// SaveSession inserts rec, assigning an id and creation time when missing,
// and returns the stored record. Saving an existing id replaces it.
func (s *Store) SaveSession(rec SessionRecord) (SessionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	query := `INSERT OR REPLACE INTO sessions (id, query, mode, status, created_at, snapshot) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.Exec(query, rec.ID, rec.Query, rec.Mode, rec.Status, rec.CreatedAt.Format(createdLayout), string(rec.Snapshot))
	if err != nil {
		return SessionRecord{}, fmt.Errorf("save session: %w", err)
	}
	return rec, nil
}

// GetSession returns one session including its snapshot.
func (s *Store) GetSession(id string) (SessionRecord, error) {
	row := s.DB.QueryRow(`SELECT id, query, mode, status, created_at, snapshot FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return rec, err
}

// ListSessions returns up to limit sessions, newest first, without snapshots.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.DB.Query(`SELECT id, query, mode, status, created_at FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(id string) error {
	res, err := s.DB.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func scanSession(scan func(dest ...any) error, withSnapshot bool) (SessionRecord, error) {
	var rec SessionRecord
	var created, snapshot string
	dest := []any{&rec.ID, &rec.Query, &rec.Mode, &rec.Status, &created}
	if withSnapshot {
		dest = append(dest, &snapshot)
	}
	if err := scan(dest...); err != nil {
		return SessionRecord{}, err
	}
	t, err := time.Parse(createdLayout, created)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = t
	if withSnapshot {
		rec.Snapshot = []byte(snapshot)
	}
	return rec, nil
}
