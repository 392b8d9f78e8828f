package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/akylbek/ar-system/discrepancy-service/internal/config"
	"github.com/akylbek/ar-system/discrepancy-service/internal/ingest"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces/mocks"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/scoring"
	"github.com/akylbek/ar-system/discrepancy-service/internal/spreadsheet"
)

var fixedNow = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	discrepancies *mocks.MockDiscrepancyRepository
	customerRepo  *mocks.MockCustomerRepository
	emailLogs     *mocks.MockEmailLogRepository
	tasks         *mocks.MockTaskRepository
	templates     *mocks.MockTemplateRepository
	settings      *mocks.MockSettingsRepository
	activity      *mocks.MockActivityRepository
	codes         *mocks.MockCodeSequence
	claims        *mocks.MockKeyClaimer
	events        *mocks.MockEventPublisher
	transport     *mocks.MockMailTransport

	customers *CustomerService
	email     *EmailService
	service   *DiscrepancyService
	imports   *ImportService
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		discrepancies: mocks.NewMockDiscrepancyRepository(ctrl),
		customerRepo:  mocks.NewMockCustomerRepository(ctrl),
		emailLogs:     mocks.NewMockEmailLogRepository(ctrl),
		tasks:         mocks.NewMockTaskRepository(ctrl),
		templates:     mocks.NewMockTemplateRepository(ctrl),
		settings:      mocks.NewMockSettingsRepository(ctrl),
		activity:      mocks.NewMockActivityRepository(ctrl),
		codes:         mocks.NewMockCodeSequence(ctrl),
		claims:        mocks.NewMockKeyClaimer(ctrl),
		events:        mocks.NewMockEventPublisher(ctrl),
		transport:     mocks.NewMockMailTransport(ctrl),
	}

	f.customers = NewCustomerService(f.customerRepo, f.discrepancies, f.emailLogs, f.codes)
	f.email = NewEmailService(f.settings, f.templates, f.emailLogs, f.transport, models.SMTPSettings{
		Host:      "smtp.example.test",
		Port:      587,
		FromName:  "AR Team",
		FromEmail: "ar@example.test",
	}, "Example KK")
	f.email.now = func() time.Time { return fixedNow }
	f.service = NewDiscrepancyService(f.discrepancies, f.tasks, f.emailLogs, f.customers, f.email, f.events)
	f.service.now = func() time.Time { return fixedNow }

	h := config.DefaultHeuristics()
	f.imports = NewImportService(
		spreadsheet.NewResolver(h),
		ingest.NewNormalizer(h),
		scoring.DefaultCalculator(),
		f.discrepancies,
		f.customers,
		f.service,
		f.claims,
		f.activity,
	)
	f.imports.now = func() time.Time { return fixedNow }
	return f
}

func strPtr(s string) *string { return &s }

func lowRiskCustomer() *models.Customer {
	return &models.Customer{
		ID:           "cust-1",
		CustomerCode: "CUST001",
		Name:         "Acme Trading Ltd",
		Email:        strPtr("ap@acme.test"),
		PaymentTerms: models.DefaultPaymentTerms,
		RiskLevel:    models.RiskLow,
		IsActive:     true,
	}
}

func admin() models.Actor {
	return models.Actor{UserID: "user-admin", Email: "admin@example.test", Role: models.RoleAdmin}
}
