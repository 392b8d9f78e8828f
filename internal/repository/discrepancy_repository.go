package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

const discrepancyColumns = `d.id, d.customer_id, d.type, d.status, d.priority, d.intervention_level,
	d.expected_amount, d.actual_amount, d.difference_amount, d.due_date, d.overdue_days,
	d.assigned_user_id, d.assigned_at, d.ai_analysis, d.import_key, d.notes, d.tags, d.version,
	d.created_at, d.updated_at, c.customer_code, c.name, c.email, c.risk_level`

const discrepancyFrom = ` FROM payment_discrepancies d JOIN customers c ON c.id = d.customer_id`

var discrepancySortColumns = map[string]string{
	"createdAt":        "d.created_at",
	"updatedAt":        "d.updated_at",
	"priority":         "d.priority",
	"status":           "d.status",
	"differenceAmount": "d.difference_amount",
	"dueDate":          "d.due_date",
}

type DiscrepancyRepository struct {
	db *sql.DB
}

func NewDiscrepancyRepository(db *sql.DB) *DiscrepancyRepository {
	return &DiscrepancyRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDiscrepancy(row rowScanner) (*models.PaymentDiscrepancy, error) {
	var d models.PaymentDiscrepancy
	var cs models.CustomerSummary
	err := row.Scan(&d.ID, &d.CustomerID, &d.Type, &d.Status, &d.Priority, &d.InterventionLevel,
		&d.ExpectedAmount, &d.ActualAmount, &d.DifferenceAmount, &d.DueDate, &d.OverdueDays,
		&d.AssignedUserID, &d.AssignedAt, &d.AIAnalysis, &d.ImportKey, &d.Notes, pq.Array(&d.Tags), &d.Version,
		&d.CreatedAt, &d.UpdatedAt, &cs.CustomerCode, &cs.Name, &cs.Email, &cs.RiskLevel)
	if err != nil {
		return nil, err
	}
	cs.ID = d.CustomerID
	d.Customer = &cs
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return &d, nil
}

func (r *DiscrepancyRepository) Create(ctx context.Context, d *models.PaymentDiscrepancy) error {
	if d.Version == 0 {
		d.Version = 1
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payment_discrepancies (id, customer_id, type, status, priority, intervention_level,
			expected_amount, actual_amount, difference_amount, due_date, overdue_days,
			assigned_user_id, assigned_at, ai_analysis, import_key, notes, tags, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`, d.ID, d.CustomerID, d.Type, d.Status, d.Priority, d.InterventionLevel,
		d.ExpectedAmount, d.ActualAmount, d.DifferenceAmount, d.DueDate, d.OverdueDays,
		d.AssignedUserID, d.AssignedAt, d.AIAnalysis, d.ImportKey, d.Notes, pq.Array(d.Tags), d.Version,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapError(err)
}

func (r *DiscrepancyRepository) GetByID(ctx context.Context, id string) (*models.PaymentDiscrepancy, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+discrepancyColumns+discrepancyFrom+` WHERE d.id = $1`, id)
	d, err := scanDiscrepancy(row)
	if err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

func (r *DiscrepancyRepository) List(ctx context.Context, f models.DiscrepancyFilter) ([]models.PaymentDiscrepancy, int, error) {
	page, limit := models.PageBounds(f.Page, f.Limit)

	var qb queryBuilder
	if f.Search != "" {
		p := "%" + f.Search + "%"
		qb.add("(c.name ILIKE ? OR c.customer_code ILIKE ? OR d.notes ILIKE ?)", p, p, p)
	}
	if f.Status != "" {
		qb.add("d.status = ?", f.Status)
	}
	if f.Priority != "" {
		qb.add("d.priority = ?", f.Priority)
	}
	if f.Type != "" {
		qb.add("d.type = ?", f.Type)
	}
	if f.InterventionLevel != "" {
		qb.add("d.intervention_level = ?", f.InterventionLevel)
	}
	if f.AssignedUserID != "" {
		qb.add("d.assigned_user_id = ?", f.AssignedUserID)
	}
	if f.CustomerID != "" {
		qb.add("d.customer_id = ?", f.CustomerID)
	}
	if f.StartDate != nil {
		qb.add("d.created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		qb.add("d.created_at <= ?", *f.EndDate)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+discrepancyFrom+qb.clause(), qb.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT ` + discrepancyColumns + discrepancyFrom + qb.clause() +
		orderBy(f.SortBy, f.SortOrder, discrepancySortColumns, "d.created_at") +
		fmt.Sprintf(" LIMIT %s OFFSET %s", qb.next(limit), qb.next(offset(page, limit)))

	out, err := r.query(ctx, query, qb.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *DiscrepancyRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.PaymentDiscrepancy, error) {
	return r.query(ctx, `SELECT `+discrepancyColumns+discrepancyFrom+
		` WHERE d.customer_id = $1 ORDER BY d.created_at DESC LIMIT $2`, customerID, limit)
}

func (r *DiscrepancyRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.PaymentDiscrepancy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.PaymentDiscrepancy{}
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DiscrepancyRepository) Update(ctx context.Context, id string, u models.DiscrepancyUpdate) (*models.PaymentDiscrepancy, error) {
	var sets []string
	var qb queryBuilder
	if u.Status != nil {
		sets = append(sets, "status = "+qb.next(*u.Status))
	}
	if u.Priority != nil {
		sets = append(sets, "priority = "+qb.next(*u.Priority))
	}
	if u.Notes != nil {
		sets = append(sets, "notes = "+qb.next(*u.Notes))
	}
	if u.AssignedUserID != nil {
		sets = append(sets, "assigned_user_id = "+qb.next(*u.AssignedUserID), "assigned_at = NOW()")
	}
	if u.Tags != nil {
		sets = append(sets, "tags = "+qb.next(pq.Array(u.Tags)))
	}
	sets = append(sets, "version = version + 1", "updated_at = NOW()")

	query := `UPDATE payment_discrepancies SET ` + strings.Join(sets, ", ") + ` WHERE id = ` + qb.next(id)
	if u.Version != nil {
		query += ` AND version = ` + qb.next(*u.Version)
	}

	res, err := r.db.ExecContext(ctx, query, qb.args...)
	if err != nil {
		return nil, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if u.Version == nil {
			return nil, apperror.ErrNotFound
		}
		// Distinguish a stale version from a missing row.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperror.ErrConflict
	}
	return r.GetByID(ctx, id)
}

// TransitionStatus is a guarded update: zero rows affected means the
// discrepancy was no longer in status from.
func (r *DiscrepancyRepository) TransitionStatus(ctx context.Context, id string, from, to models.DiscrepancyStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_discrepancies
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

func (r *DiscrepancyRepository) Delete(ctx context.Context, id string, cascade bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if cascade {
		if _, err := tx.ExecContext(ctx, `DELETE FROM email_logs WHERE discrepancy_id = $1`, id); err != nil {
			return mapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE discrepancy_id = $1`, id); err != nil {
			return mapError(err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM payment_discrepancies WHERE id = $1`, id)
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
	return tx.Commit()
}

// CountDependents counts email logs and tasks that reference the discrepancy.
func (r *DiscrepancyRepository) CountDependents(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM email_logs WHERE discrepancy_id = $1)
		     + (SELECT COUNT(*) FROM tasks WHERE discrepancy_id = $1)
	`, id).Scan(&n)
	return n, mapError(err)
}

func (r *DiscrepancyRepository) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_discrepancies WHERE customer_id = $1`, customerID).Scan(&n)
	return n, mapError(err)
}

// HasOverdueOpen reports whether the customer has an unresolved discrepancy
// due before the given day. overdue_days is a snapshot taken at insert, so
// the due date is compared instead.
func (r *DiscrepancyRepository) HasOverdueOpen(ctx context.Context, customerID string, dueBefore time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_discrepancies
			WHERE customer_id = $1 AND status <> $2 AND due_date < $3::date
		)
	`, customerID, models.StatusResolved, dueBefore.Format("2006-01-02")).Scan(&exists)
	return exists, mapError(err)
}

func (r *DiscrepancyRepository) ImportKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT import_key FROM payment_discrepancies WHERE import_key IS NOT NULL`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

var countDimensions = map[string]string{
	"status":            "status",
	"priority":          "priority",
	"type":              "type",
	"interventionLevel": "intervention_level",
}

func (r *DiscrepancyRepository) CountBy(ctx context.Context, dimension string) ([]models.GroupCount, error) {
	col, ok := countDimensions[dimension]
	if !ok {
		return nil, fmt.Errorf("%w: unknown dimension %q", apperror.ErrValidation, dimension)
	}
	return groupCounts(ctx, r.db, `SELECT `+col+`, COUNT(*) FROM payment_discrepancies GROUP BY `+col)
}

func groupCounts(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]models.GroupCount, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.GroupCount
	for rows.Next() {
		var g models.GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DailyCounts returns detected and resolved counts per day for the last days
// days, oldest first. Days without activity are included with zero counts.
func (r *DiscrepancyRepository) DailyCounts(ctx context.Context, days int) ([]models.DailyCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(day, 'YYYY-MM-DD'),
			(SELECT COUNT(*) FROM payment_discrepancies WHERE created_at::date = day),
			(SELECT COUNT(*) FROM payment_discrepancies WHERE status = $2 AND updated_at::date = day)
		FROM generate_series(CURRENT_DATE - ($1::int - 1), CURRENT_DATE, interval '1 day') AS day
		ORDER BY day
	`, days, models.StatusResolved)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []models.DailyCount
	for rows.Next() {
		var dc models.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Detected, &dc.Resolved); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// OutstandingAmount sums the absolute difference of unresolved discrepancies.
func (r *DiscrepancyRepository) OutstandingAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(ABS(difference_amount)) FROM payment_discrepancies WHERE status <> $1
	`, models.StatusResolved).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
