package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Well-known settings keys.
const (
	SettingNet      = "net"
	SettingCamera   = "camera"
	SettingSurfaces = "surfaces"
)

// SettingsRepository stores JSON documents by key.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Put stores v as JSON under key, replacing any previous value.
func (r *SettingsRepository) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	_, err = r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC(),
	)
	return err
}

// Get decodes the JSON stored under key into v. It returns ErrNotFound when
// the key is unset.
func (r *SettingsRepository) Get(key string, v any) error {
	var data string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decode setting %q: %w", key, err)
	}
	return nil
}
