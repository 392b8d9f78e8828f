package interfaces

//go:generate mockgen -destination=mocks/mock_repositories.go -package=mocks -source=repositories.go

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

// CustomerRepository defines the contract for customer data access
type CustomerRepository interface {
	Create(ctx context.Context, c *models.Customer) error
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	// FindByNameOrEmail returns the customer whose name matches exactly, else
	// the one whose email matches, else apperror.ErrNotFound.
	FindByNameOrEmail(ctx context.Context, name, email string) (*models.Customer, error)
	List(ctx context.Context, f models.CustomerFilter) ([]models.Customer, int, error)
	Search(ctx context.Context, q string, limit int) ([]models.Customer, error)
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	RiskDistribution(ctx context.Context) ([]models.GroupCount, error)
}

// DiscrepancyRepository defines the contract for discrepancy data access
type DiscrepancyRepository interface {
	Create(ctx context.Context, d *models.PaymentDiscrepancy) error
	GetByID(ctx context.Context, id string) (*models.PaymentDiscrepancy, error)
	List(ctx context.Context, f models.DiscrepancyFilter) ([]models.PaymentDiscrepancy, int, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.PaymentDiscrepancy, error)
	// Update applies a partial edit. With u.Version set it fails with
	// apperror.ErrConflict when the stored version differs.
	Update(ctx context.Context, id string, u models.DiscrepancyUpdate) (*models.PaymentDiscrepancy, error)
	// TransitionStatus moves id from -> to only if the current status is from.
	TransitionStatus(ctx context.Context, id string, from, to models.DiscrepancyStatus) (int64, error)
	Delete(ctx context.Context, id string, cascade bool) error
	CountDependents(ctx context.Context, id string) (int, error)
	CountByCustomer(ctx context.Context, customerID string) (int, error)
	HasOverdueOpen(ctx context.Context, customerID string, dueBefore time.Time) (bool, error)
	ImportKeys(ctx context.Context) ([]string, error)
	CountBy(ctx context.Context, dimension string) ([]models.GroupCount, error)
	DailyCounts(ctx context.Context, days int) ([]models.DailyCount, error)
	OutstandingAmount(ctx context.Context) (decimal.Decimal, error)
}

// EmailLogRepository defines the contract for the append-only email log
type EmailLogRepository interface {
	Create(ctx context.Context, l *models.EmailLog) error
	List(ctx context.Context, f models.EmailLogFilter) ([]models.EmailLog, int, error)
	ListByDiscrepancy(ctx context.Context, discrepancyID string) ([]models.EmailLog, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.EmailLog, error)
	CountSince(ctx context.Context, status models.EmailStatus, since time.Time) (int, error)
}

// TaskRepository defines the contract for task data access
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	List(ctx context.Context, f models.TaskFilter) ([]models.Task, int, error)
	ListByDiscrepancy(ctx context.Context, discrepancyID string) ([]models.Task, error)
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error)
}

// TemplateRepository defines the contract for email template data access
type TemplateRepository interface {
	Create(ctx context.Context, t *models.EmailTemplate) error
	GetByID(ctx context.Context, id string) (*models.EmailTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]models.EmailTemplate, error)
	Update(ctx context.Context, t *models.EmailTemplate) error
	Delete(ctx context.Context, id string) error
}

// SettingsRepository reads and writes system_config key/value pairs
type SettingsRepository interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, category string, values map[string]string) error
}

// UserRepository defines the contract for user data access
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// ActivityRepository records audit entries such as imports
type ActivityRepository interface {
	Create(ctx context.Context, a *models.ActivityLog) error
	List(ctx context.Context, action string, page, limit int) ([]models.ActivityLog, int, error)
}
