package repository

import (
	"context"
	"database/sql"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, a *models.ActivityLog) error {
	details := a.Details
	if len(details) == 0 {
		details = []byte("{}")
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO activity_logs (id, user_id, action, details)
		VALUES ($1, $2, $3, $4)
		RETURNING executed_at
	`, a.ID, a.UserID, a.Action, []byte(details)).Scan(&a.ExecutedAt)
	return mapError(err)
}

func (r *ActivityRepository) List(ctx context.Context, action string, page, limit int) ([]models.ActivityLog, int, error) {
	page, limit = models.PageBounds(page, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs WHERE action = $1`, action).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, details, executed_at FROM activity_logs
		WHERE action = $1 ORDER BY executed_at DESC LIMIT $2 OFFSET $3
	`, action, limit, offset(page, limit))
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	out := []models.ActivityLog{}
	for rows.Next() {
		var a models.ActivityLog
		var details []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &details, &a.ExecutedAt); err != nil {
			return nil, 0, err
		}
		a.Details = details
		out = append(out, a)
	}
	return out, total, rows.Err()
}
