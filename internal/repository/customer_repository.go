package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

const customerColumns = `id, customer_code, name, email, phone, address, contact_person,
	payment_terms, credit_limit, risk_level, notes, is_active, created_at, updated_at`

var customerSortColumns = map[string]string{
	"createdAt":    "created_at",
	"name":         "name",
	"customerCode": "customer_code",
	"riskLevel":    "risk_level",
}

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.CustomerCode, &c.Name, &c.Email, &c.Phone, &c.Address, &c.ContactPerson,
		&c.PaymentTerms, &c.CreditLimit, &c.RiskLevel, &c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (id, customer_code, name, email, phone, address, contact_person,
			payment_terms, credit_limit, risk_level, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, c.ID, c.CustomerCode, c.Name, c.Email, c.Phone, c.Address, c.ContactPerson,
		c.PaymentTerms, c.CreditLimit, c.RiskLevel, c.Notes, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapError(err)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *CustomerRepository) FindByNameOrEmail(ctx context.Context, name, email string) (*models.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE name = $1 ORDER BY created_at LIMIT 1`, name))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || email == "" {
		return nil, mapError(err)
	}

	c, err = scanCustomer(r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = $1 ORDER BY created_at LIMIT 1`, email))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *CustomerRepository) List(ctx context.Context, f models.CustomerFilter) ([]models.Customer, int, error) {
	page, limit := models.PageBounds(f.Page, f.Limit)

	var qb queryBuilder
	if f.Search != "" {
		p := "%" + f.Search + "%"
		qb.add("(name ILIKE ? OR customer_code ILIKE ? OR email ILIKE ?)", p, p, p)
	}
	if f.RiskLevel != "" {
		qb.add("risk_level = ?", f.RiskLevel)
	}
	if f.IsActive != nil {
		qb.add("is_active = ?", *f.IsActive)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`+qb.clause(), qb.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + qb.clause() +
		orderBy(f.SortBy, f.SortOrder, customerSortColumns, "created_at") +
		fmt.Sprintf(" LIMIT %s OFFSET %s", qb.next(limit), qb.next(offset(page, limit)))

	out, err := r.query(ctx, query, qb.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Search matches name, code or email for autocomplete.
func (r *CustomerRepository) Search(ctx context.Context, q string, limit int) ([]models.Customer, error) {
	p := "%" + q + "%"
	return r.query(ctx, `SELECT `+customerColumns+` FROM customers
		WHERE is_active AND (name ILIKE $1 OR customer_code ILIKE $1 OR email ILIKE $1)
		ORDER BY name LIMIT $2`, p, limit)
}

func (r *CustomerRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE customers SET name = $1, email = $2, phone = $3, address = $4, contact_person = $5,
			payment_terms = $6, credit_limit = $7, risk_level = $8, notes = $9, is_active = $10,
			updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at
	`, c.Name, c.Email, c.Phone, c.Address, c.ContactPerson,
		c.PaymentTerms, c.CreditLimit, c.RiskLevel, c.Notes, c.IsActive, c.ID,
	).Scan(&c.UpdatedAt)
	return mapError(err)
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
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

func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, mapError(err)
}

func (r *CustomerRepository) RiskDistribution(ctx context.Context) ([]models.GroupCount, error) {
	return groupCounts(ctx, r.db, `SELECT risk_level, COUNT(*) FROM customers GROUP BY risk_level`)
}
