package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

const emailLogColumns = `id, discrepancy_id, customer_id, template_id, sender, recipient, cc, bcc,
	subject, body, status, sent_at, error_message, created_at`

// EmailLogRepository is append-only: there is no update or delete.
type EmailLogRepository struct {
	db *sql.DB
}

func NewEmailLogRepository(db *sql.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

func scanEmailLog(row rowScanner) (*models.EmailLog, error) {
	var l models.EmailLog
	err := row.Scan(&l.ID, &l.DiscrepancyID, &l.CustomerID, &l.TemplateID, &l.Sender, &l.Recipient,
		pq.Array(&l.Cc), pq.Array(&l.Bcc), &l.Subject, &l.Body, &l.Status, &l.SentAt, &l.ErrorMessage, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *EmailLogRepository) Create(ctx context.Context, l *models.EmailLog) error {
	cc, bcc := l.Cc, l.Bcc
	if cc == nil {
		cc = []string{}
	}
	if bcc == nil {
		bcc = []string{}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO email_logs (id, discrepancy_id, customer_id, template_id, sender, recipient, cc, bcc,
			subject, body, status, sent_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`, l.ID, l.DiscrepancyID, l.CustomerID, l.TemplateID, l.Sender, l.Recipient, pq.Array(cc), pq.Array(bcc),
		l.Subject, l.Body, l.Status, l.SentAt, l.ErrorMessage,
	).Scan(&l.CreatedAt)
	return mapError(err)
}

func (r *EmailLogRepository) List(ctx context.Context, f models.EmailLogFilter) ([]models.EmailLog, int, error) {
	page, limit := models.PageBounds(f.Page, f.Limit)

	var qb queryBuilder
	if f.Status != "" {
		qb.add("status = ?", f.Status)
	}
	if f.DiscrepancyID != "" {
		qb.add("discrepancy_id = ?", f.DiscrepancyID)
	}
	if f.CustomerID != "" {
		qb.add("customer_id = ?", f.CustomerID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_logs`+qb.clause(), qb.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT ` + emailLogColumns + ` FROM email_logs` + qb.clause() +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %s OFFSET %s", qb.next(limit), qb.next(offset(page, limit)))
	out, err := r.query(ctx, query, qb.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *EmailLogRepository) ListByDiscrepancy(ctx context.Context, discrepancyID string) ([]models.EmailLog, error) {
	return r.query(ctx, `SELECT `+emailLogColumns+` FROM email_logs WHERE discrepancy_id = $1 ORDER BY created_at DESC`, discrepancyID)
}

func (r *EmailLogRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.EmailLog, error) {
	return r.query(ctx, `SELECT `+emailLogColumns+` FROM email_logs WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2`, customerID, limit)
}

func (r *EmailLogRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.EmailLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.EmailLog{}
	for rows.Next() {
		l, err := scanEmailLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *EmailLogRepository) CountSince(ctx context.Context, status models.EmailStatus, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_logs WHERE status = $1 AND created_at >= $2`, status, since).Scan(&n)
	return n, mapError(err)
}
