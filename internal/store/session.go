package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Session is one run of the capture loop.
type Session struct {
	ID        string     `json:"id"`
	Detector  string     `json:"detector"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a new open session for the named detector.
func (r *SessionRepository) Start(detector string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Detector:  detector,
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, detector, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Detector, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// End marks a session as finished.
func (r *SessionRepository) End(id string) error {
	res, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	err := r.db.QueryRow(
		`SELECT id, detector, started_at, ended_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Detector, &sess.StartedAt, &ended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ended.Valid {
		sess.EndedAt = &ended.Time
	}
	return sess, nil
}

// List returns up to limit sessions, newest first. limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, detector, started_at, ended_at FROM sessions ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var ended sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Detector, &sess.StartedAt, &ended); err != nil {
			return nil, err
		}
		if ended.Valid {
			sess.EndedAt = &ended.Time
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
