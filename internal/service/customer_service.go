package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

const (
	manualCodePrefix = "CUST"
	autoCodePrefix   = "AUTO_"
	maxCodeAttempts  = 5

	minSearchLength  = 2
	searchLimit      = 10
	recentItemsLimit = 10
)

// ErrCustomerNotFound is reported for import rows whose customer is unknown
// while auto-creation is off.
var ErrCustomerNotFound = errors.New("customer not found and auto-create disabled")

type CustomerInput struct {
	CustomerCode  string
	Name          string
	Email         *string
	Phone         *string
	Address       *string
	ContactPerson *string
	PaymentTerms  *int
	CreditLimit   *decimal.Decimal
	RiskLevel     models.RiskTier
	Notes         *string
	IsActive      *bool
}

type CustomerService struct {
	customers     interfaces.CustomerRepository
	discrepancies interfaces.DiscrepancyRepository
	emailLogs     interfaces.EmailLogRepository
	codes         interfaces.CodeSequence
}

func NewCustomerService(
	customers interfaces.CustomerRepository,
	discrepancies interfaces.DiscrepancyRepository,
	emailLogs interfaces.EmailLogRepository,
	codes interfaces.CodeSequence,
) *CustomerService {
	return &CustomerService{
		customers:     customers,
		discrepancies: discrepancies,
		emailLogs:     emailLogs,
		codes:         codes,
	}
}

// Resolve finds a customer by exact name, then by email. When neither
// matches and allowCreate is set, a LOW risk customer with an AUTO_ code
// is created. The bool result reports whether a customer was created.
func (s *CustomerService) Resolve(ctx context.Context, name, email string, allowCreate bool) (*models.Customer, bool, error) {
	c, err := s.customers.FindByNameOrEmail(ctx, name, email)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, err
	}
	if !allowCreate {
		return nil, false, ErrCustomerNotFound
	}

	c = &models.Customer{
		ID:           uuid.NewString(),
		Name:         name,
		PaymentTerms: models.DefaultPaymentTerms,
		RiskLevel:    models.RiskLow,
		IsActive:     true,
	}
	if email != "" {
		c.Email = &email
	}
	if err := s.createWithCode(ctx, c, autoCodePrefix); err != nil {
		return nil, false, err
	}
	telemetry.Logger.Info("Customer auto-created",
		zap.String("customer_id", c.ID),
		zap.String("customer_code", c.CustomerCode),
	)
	return c, true, nil
}

// createWithCode draws codes from the sequence until one is free. A code
// taken by a manual entry collides on the unique index and is skipped.
func (s *CustomerService) createWithCode(ctx context.Context, c *models.Customer, prefix string) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		n, err := s.codes.Next(ctx)
		if err != nil {
			return fmt.Errorf("next customer code: %w", err)
		}
		c.CustomerCode = fmt.Sprintf("%s%03d", prefix, n)

		err = s.customers.Create(ctx, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperror.ErrDuplicate) {
			return err
		}
		telemetry.Logger.Warn("Customer code collision",
			zap.String("customer_code", c.CustomerCode),
			zap.Int("attempt", attempt),
		)
	}
	return apperror.Conflict("CODE_ALLOCATION_FAILED", "Could not allocate a unique customer code")
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound("Customer")
	}
	return c, err
}

func (s *CustomerService) Get(ctx context.Context, id string) (*models.CustomerDetail, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.discrepancies.CountByCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.discrepancies.ListByCustomer(ctx, id, recentItemsLimit)
	if err != nil {
		return nil, err
	}
	emails, err := s.emailLogs.ListByCustomer(ctx, id, recentItemsLimit)
	if err != nil {
		return nil, err
	}
	return &models.CustomerDetail{
		Customer:            *c,
		DiscrepancyCount:    count,
		RecentDiscrepancies: recent,
		RecentEmails:        emails,
	}, nil
}

func (s *CustomerService) List(ctx context.Context, f models.CustomerFilter) ([]models.Customer, models.Pagination, error) {
	f.Page, f.Limit = models.PageBounds(f.Page, f.Limit)
	items, total, err := s.customers.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(total, f.Page, f.Limit), nil
}

// Search backs autocomplete. Queries shorter than two characters match nothing.
func (s *CustomerService) Search(ctx context.Context, q string) ([]models.Customer, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minSearchLength {
		return []models.Customer{}, nil
	}
	return s.customers.Search(ctx, q, searchLimit)
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	c := &models.Customer{
		ID:           uuid.NewString(),
		PaymentTerms: models.DefaultPaymentTerms,
		RiskLevel:    models.RiskLow,
		IsActive:     true,
	}
	applyCustomerInput(c, in)

	if in.CustomerCode != "" {
		c.CustomerCode = in.CustomerCode
		if err := s.customers.Create(ctx, c); err != nil {
			if errors.Is(err, apperror.ErrDuplicate) {
				return nil, apperror.Conflict("DUPLICATE", "Customer code already exists")
			}
			return nil, err
		}
		return c, nil
	}
	if err := s.createWithCode(ctx, c, manualCodePrefix); err != nil {
		return nil, err
	}
	return c, nil
}

// Update edits a customer. The customer code never changes.
func (s *CustomerService) Update(ctx context.Context, id string, in CustomerInput) (*models.Customer, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.CustomerCode != "" && in.CustomerCode != c.CustomerCode {
		return nil, apperror.BadRequest("CODE_IMMUTABLE", "Customer code cannot be changed")
	}
	applyCustomerInput(c, in)
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.HasRole(models.RoleAdmin, models.RoleManager) {
		return apperror.Forbidden("Insufficient permissions")
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.discrepancies.CountByCustomer(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.BadRequest("CUSTOMER_HAS_DISCREPANCIES",
			fmt.Sprintf("Customer has %d discrepancies and cannot be deleted", n))
	}
	return s.customers.Delete(ctx, id)
}

func applyCustomerInput(c *models.Customer, in CustomerInput) {
	if in.Name != "" {
		c.Name = in.Name
	}
	if in.Email != nil {
		c.Email = in.Email
	}
	if in.Phone != nil {
		c.Phone = in.Phone
	}
	if in.Address != nil {
		c.Address = in.Address
	}
	if in.ContactPerson != nil {
		c.ContactPerson = in.ContactPerson
	}
	if in.PaymentTerms != nil {
		c.PaymentTerms = *in.PaymentTerms
	}
	if in.CreditLimit != nil {
		c.CreditLimit = in.CreditLimit
	}
	if in.RiskLevel != "" {
		c.RiskLevel = in.RiskLevel
	}
	if in.Notes != nil {
		c.Notes = in.Notes
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}
