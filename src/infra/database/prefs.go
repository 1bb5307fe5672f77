package database

import (
	"context"
	"database/sql"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// GetPref returns the stored value for key, or ErrNotFound.
func (d *SqliteCatalog) GetPref(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", music.ErrNotFound
	}
	return value, err
}

// SetPref upserts a preference value.
func (d *SqliteCatalog) SetPref(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
