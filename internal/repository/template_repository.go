package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

const templateColumns = `id, name, subject, body, type, stage, variables, is_active, created_by_id, created_at, updated_at`

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func scanTemplate(row rowScanner) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.Type, &t.Stage, pq.Array(&t.Variables),
		&t.IsActive, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.Variables == nil {
		t.Variables = []string{}
	}
	return &t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *models.EmailTemplate) error {
	vars := t.Variables
	if vars == nil {
		vars = []string{}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO email_templates (id, name, subject, body, type, stage, variables, is_active, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, t.ID, t.Name, t.Subject, t.Body, t.Type, t.Stage, pq.Array(vars), t.IsActive, t.CreatedByID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapError(err)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.EmailTemplate, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]models.EmailTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.EmailTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) Update(ctx context.Context, t *models.EmailTemplate) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE email_templates SET name = $1, subject = $2, body = $3, type = $4, stage = $5,
			variables = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`, t.Name, t.Subject, t.Body, t.Type, t.Stage, pq.Array(t.Variables), t.IsActive, t.ID,
	).Scan(&t.UpdatedAt)
	return mapError(err)
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ErrNotFound
	}
	return nil
}
