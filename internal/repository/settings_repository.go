package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// SettingsRepository stores system_config rows.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the requested keys that exist. With no keys it returns all rows.
func (r *SettingsRepository) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	var rows *sql.Rows
	var err error
	if len(keys) == 0 {
		rows, err = r.db.QueryContext(ctx, `SELECT key, value FROM system_config`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT key, value FROM system_config WHERE key = ANY($1)`, pq.Array(keys))
	}
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts all values in one transaction.
func (r *SettingsRepository) Set(ctx context.Context, category string, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, v := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO system_config (key, value, category)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, category = EXCLUDED.category, updated_at = NOW()
		`, k, v, category)
		if err != nil {
			return mapError(err)
		}
	}
	return tx.Commit()
}
