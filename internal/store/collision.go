package store

import (
	"database/sql"
	"errors"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
)

// Collision is a stored collision event.
type Collision struct {
	collision.Event
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CollisionFilter narrows List. Zero values match everything.
type CollisionFilter struct {
	SessionID string
	Limit     int
}

// CollisionRepository provides access to collision events.
type CollisionRepository struct {
	db *sql.DB
}

// Collisions returns the collision repository for this store.
func (s *Store) Collisions() *CollisionRepository {
	return &CollisionRepository{db: s.db}
}

// Insert stores ev under sessionID.
func (r *CollisionRepository) Insert(sessionID string, ev collision.Event) (*Collision, error) {
	c := &Collision{Event: ev, SessionID: sessionID, CreatedAt: time.Now().UTC()}
	_, err := r.db.Exec(
		`INSERT INTO collisions (id, session_id, side, impact_speed,
			contact_x, contact_y, contact_z, dir_x, dir_y, dir_z,
			timestamp_ms, synthetic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, sessionID, string(ev.Side), ev.ImpactSpeed,
		ev.ContactPoint.X, ev.ContactPoint.Y, ev.ContactPoint.Z,
		ev.ApproachDirection.X, ev.ApproachDirection.Y, ev.ApproachDirection.Z,
		ev.TimestampMillis, ev.Synthetic, c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

const collisionColumns = `id, session_id, side, impact_speed,
	contact_x, contact_y, contact_z, dir_x, dir_y, dir_z,
	timestamp_ms, synthetic, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCollision(s scanner) (*Collision, error) {
	c := &Collision{}
	var side string
	var contact, dir r3.Vec
	err := s.Scan(&c.ID, &c.SessionID, &side, &c.ImpactSpeed,
		&contact.X, &contact.Y, &contact.Z, &dir.X, &dir.Y, &dir.Z,
		&c.TimestampMillis, &c.Synthetic, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Side = collision.Side(side)
	c.ContactPoint = contact
	c.ApproachDirection = dir
	return c, nil
}

// GetByID retrieves a collision by its event ID.
func (r *CollisionRepository) GetByID(id string) (*Collision, error) {
	c, err := scanCollision(r.db.QueryRow(`SELECT `+collisionColumns+` FROM collisions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns collisions matching f, newest first.
func (r *CollisionRepository) List(f CollisionFilter) ([]*Collision, error) {
	query := `SELECT ` + collisionColumns + ` FROM collisions`
	var args []any
	if f.SessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, f.SessionID)
	}
	query += ` ORDER BY created_at DESC, timestamp_ms DESC LIMIT ?`
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Collision
	for rows.Next() {
		c, err := scanCollision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountBySide returns the number of hits per side in a session. An empty
// sessionID counts across all sessions.
func (r *CollisionRepository) CountBySide(sessionID string) (map[collision.Side]int, error) {
	query := `SELECT side, COUNT(*) FROM collisions`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` GROUP BY side`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[collision.Side]int{collision.SideA: 0, collision.SideB: 0}
	for rows.Next() {
		var side string
		var n int
		if err := rows.Scan(&side, &n); err != nil {
			return nil, err
		}
		counts[collision.Side(side)] = n
	}
	return counts, rows.Err()
}
