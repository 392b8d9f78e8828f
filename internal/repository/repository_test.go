package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, apperror.ErrNotFound},
		{"unique", &pq.Error{Code: "23505"}, apperror.ErrDuplicate},
		{"foreign key", &pq.Error{Code: "23503"}, apperror.ErrConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	other := &pq.Error{Code: "42P01"}
	assert.Equal(t, error(other), mapError(other))
	assert.NoError(t, mapError(nil))
}

func TestQueryBuilder(t *testing.T) {
	var qb queryBuilder
	assert.Equal(t, "", qb.clause())

	qb.add("(a = ? OR b = ?)", 1, 2)
	qb.add("c = ?", 3)
	assert.Equal(t, " WHERE (a = $1 OR b = $2) AND c = $3", qb.clause())
	assert.Equal(t, "$4", qb.next(10))
	assert.Equal(t, []interface{}{1, 2, 3, 10}, qb.args)
}

func TestOrderBy(t *testing.T) {
	allowed := map[string]string{"name": "name"}
	assert.Equal(t, " ORDER BY name ASC", orderBy("name", "asc", allowed, "created_at"))
	assert.Equal(t, " ORDER BY created_at DESC", orderBy("1; DROP", "sideways", allowed, "created_at"))
}

var customerRowColumns = []string{
	"id", "customer_code", "name", "email", "phone", "address", "contact_person",
	"payment_terms", "credit_limit", "risk_level", "notes", "is_active", "created_at", "updated_at",
}

func customerRow(id, name string, email interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(customerRowColumns).
		AddRow(id, "CUST001", name, email, nil, nil, nil, 30, nil, "LOW", nil, true, now, now)
}

func TestCustomerRepository_FindByNameOrEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCustomerRepository(db)

	mock.ExpectQuery(`FROM customers WHERE name = \$1`).
		WithArgs("Acme").
		WillReturnRows(sqlmock.NewRows(customerRowColumns))
	mock.ExpectQuery(`FROM customers WHERE email = \$1 ORDER BY`).
		WithArgs("ar@acme.test").
		WillReturnRows(customerRow("cust-9", "Acme Holdings", "ar@acme.test"))

	c, err := repo.FindByNameOrEmail(context.Background(), "Acme", "ar@acme.test")
	require.NoError(t, err)
	assert.Equal(t, "cust-9", c.ID)
	require.NotNil(t, c.Email)
	assert.Equal(t, "ar@acme.test", *c.Email)
	assert.Nil(t, c.CreditLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_FindByNameWithoutEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCustomerRepository(db)

	mock.ExpectQuery(`FROM customers WHERE name = \$1`).
		WithArgs("Nobody").
		WillReturnRows(sqlmock.NewRows(customerRowColumns))

	_, err = repo.FindByNameOrEmail(context.Background(), "Nobody", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_Set(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSettingsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO system_config`).
		WithArgs("smtp_host", "mail.example.com", "email").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.Set(context.Background(), "email", map[string]string{"smtp_host": "mail.example.com"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(`SELECT key, value FROM system_config WHERE key = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow("smtp_port", "465"))

	got, err := repo.Get(context.Background(), "smtp_port", "smtp_host")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"smtp_port": "465"}, got)
}

func TestPostgresCodeSequence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT nextval\('customer_code_seq'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(7)))

	n, err := NewPostgresCodeSequence(db).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestTaskRepository_UpdateStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE tasks SET status = \$1`).
		WithArgs(models.TaskCompleted, "task-x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewTaskRepository(db).UpdateStatus(context.Background(), "task-x", models.TaskCompleted)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLocalKeyClaimer(t *testing.T) {
	release, err := LocalKeyClaimer{}.Claim(context.Background(), "any")
	require.NoError(t, err)
	release()
}
