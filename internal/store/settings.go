package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SettingsID is the fixed key of the settings singleton
const SettingsID = "app"

// LoadSettings returns the serialized settings document. found is false
// when no record exists yet.
func (d *DB) LoadSettings(ctx context.Context) (data []byte, found bool, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = ?`, SettingsID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load settings: %w", err)
	}
	return data, true, nil
}

// SaveSettings replaces the whole settings document
func (d *DB) SaveSettings(ctx context.Context, data []byte, updatedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, SettingsID, string(data), toMillis(updatedAt))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
