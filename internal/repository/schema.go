package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
)

// InitDB creates tables and indexes when they do not exist yet.
func InitDB(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'USER',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE SEQUENCE IF NOT EXISTS customer_code_seq`,
		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(36) PRIMARY KEY,
			customer_code VARCHAR(50) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(50),
			address TEXT,
			contact_person VARCHAR(255),
			payment_terms INTEGER NOT NULL DEFAULT 30,
			credit_limit NUMERIC(18,2),
			risk_level VARCHAR(20) NOT NULL DEFAULT 'LOW',
			notes TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email)`,
		`CREATE TABLE IF NOT EXISTS payment_discrepancies (
			id VARCHAR(36) PRIMARY KEY,
			customer_id VARCHAR(36) NOT NULL REFERENCES customers(id),
			type VARCHAR(30) NOT NULL,
			status VARCHAR(30) NOT NULL DEFAULT 'DETECTED',
			priority VARCHAR(20) NOT NULL DEFAULT 'MEDIUM',
			intervention_level VARCHAR(30) NOT NULL,
			expected_amount NUMERIC(18,2) NOT NULL,
			actual_amount NUMERIC(18,2) NOT NULL,
			difference_amount NUMERIC(18,2) NOT NULL,
			due_date DATE,
			overdue_days INTEGER,
			assigned_user_id VARCHAR(36) REFERENCES users(id),
			assigned_at TIMESTAMPTZ,
			ai_analysis JSONB NOT NULL DEFAULT '{}',
			import_key VARCHAR(255),
			notes TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_discrepancies_import_key ON payment_discrepancies(import_key) WHERE import_key IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_status ON payment_discrepancies(status)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_customer ON payment_discrepancies(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_created_at ON payment_discrepancies(created_at)`,
		`CREATE TABLE IF NOT EXISTS email_templates (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			type VARCHAR(50) NOT NULL,
			stage VARCHAR(50),
			variables TEXT[] NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_by_id VARCHAR(36) REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS email_logs (
			id VARCHAR(36) PRIMARY KEY,
			discrepancy_id VARCHAR(36) REFERENCES payment_discrepancies(id),
			customer_id VARCHAR(36) REFERENCES customers(id),
			template_id VARCHAR(36) REFERENCES email_templates(id) ON DELETE SET NULL,
			sender VARCHAR(255) NOT NULL,
			recipient VARCHAR(255) NOT NULL,
			cc TEXT[] NOT NULL DEFAULT '{}',
			bcc TEXT[] NOT NULL DEFAULT '{}',
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			sent_at TIMESTAMPTZ,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_logs_discrepancy ON email_logs(discrepancy_id)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id VARCHAR(36) PRIMARY KEY,
			discrepancy_id VARCHAR(36) REFERENCES payment_discrepancies(id),
			type VARCHAR(50) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			assigned_user_id VARCHAR(36) REFERENCES users(id),
			due_date TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_discrepancy ON tasks(discrepancy_id)`,
		`CREATE TABLE IF NOT EXISTS system_config (
			key VARCHAR(100) PRIMARY KEY,
			value TEXT NOT NULL,
			category VARCHAR(50) NOT NULL DEFAULT 'general',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36),
			action VARCHAR(50) NOT NULL,
			details JSONB NOT NULL DEFAULT '{}',
			executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_action ON activity_logs(action, executed_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Postgres error codes mapped onto the shared categories.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", apperror.ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", apperror.ErrConstraint, pqErr.Constraint)
		}
	}
	return err
}

// queryBuilder accumulates WHERE clauses with positional arguments.
type queryBuilder struct {
	where []string
	args  []interface{}
}

func (b *queryBuilder) add(clause string, args ...interface{}) {
	for _, a := range args {
		b.args = append(b.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(b.args)), 1)
	}
	b.where = append(b.where, clause)
}

func (b *queryBuilder) next(arg interface{}) string {
	b.args = append(b.args, arg)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) clause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func orderBy(sortBy, sortOrder string, allowed map[string]string, def string) string {
	col, ok := allowed[sortBy]
	if !ok {
		col = def
	}
	dir := "DESC"
	if sortOrder == "asc" || sortOrder == "ASC" {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

func offset(page, limit int) int {
	return (page - 1) * limit
}
