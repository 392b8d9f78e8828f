package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

const taskColumns = `id, discrepancy_id, type, title, description, priority, status,
	assigned_user_id, due_date, created_at, updated_at`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.DiscrepancyID, &t.Type, &t.Title, &t.Description, &t.Priority, &t.Status,
		&t.AssignedUserID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, discrepancy_id, type, title, description, priority, status, assigned_user_id, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, t.ID, t.DiscrepancyID, t.Type, t.Title, t.Description, t.Priority, t.Status, t.AssignedUserID, t.DueDate,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapError(err)
}

func (r *TaskRepository) List(ctx context.Context, f models.TaskFilter) ([]models.Task, int, error) {
	page, limit := models.PageBounds(f.Page, f.Limit)

	var qb queryBuilder
	if f.Status != "" {
		qb.add("status = ?", f.Status)
	}
	if f.Priority != "" {
		qb.add("priority = ?", f.Priority)
	}
	if f.DiscrepancyID != "" {
		qb.add("discrepancy_id = ?", f.DiscrepancyID)
	}
	if f.AssignedUserID != "" {
		qb.add("assigned_user_id = ?", f.AssignedUserID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+qb.clause(), qb.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + qb.clause() +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %s OFFSET %s", qb.next(limit), qb.next(offset(page, limit)))
	out, err := r.query(ctx, query, qb.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *TaskRepository) ListByDiscrepancy(ctx context.Context, discrepancyID string) ([]models.Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE discrepancy_id = $1 ORDER BY created_at DESC`, discrepancyID)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `
		UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING `+taskColumns, status, id))
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}
