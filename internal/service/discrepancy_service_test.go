package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/mailer"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/scoring"
)

func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.Status)
	if code != "" {
		assert.Equal(t, code, appErr.Code)
	}
}

func detected(id string) *models.PaymentDiscrepancy {
	return &models.PaymentDiscrepancy{
		ID:                id,
		CustomerID:        "cust-1",
		Type:              models.TypeUnpaid,
		Status:            models.StatusDetected,
		Priority:          models.PriorityMedium,
		InterventionLevel: models.InterventionAutonomous,
		ExpectedAmount:    decimal.NewFromInt(5000),
		ActualAmount:      decimal.Zero,
		DifferenceAmount:  decimal.NewFromInt(-5000),
		Version:           1,
	}
}

func TestCreateManualDiscrepancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := lowRiskCustomer()

	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(customer, nil)
	f.discrepancies.EXPECT().HasOverdueOpen(gomock.Any(), "cust-1", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)).Return(false, nil)

	var stored *models.PaymentDiscrepancy
	f.discrepancies.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d *models.PaymentDiscrepancy) error {
			stored = d
			return nil
		})
	var task *models.Task
	f.tasks.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tk *models.Task) error {
			task = tk
			return nil
		})
	// publish failures never fail the create
	f.events.EXPECT().PublishCreated(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	view, err := f.service.Create(ctx, admin(), CreateDiscrepancyInput{
		CustomerID:     "cust-1",
		Type:           models.TypeUnpaid,
		ExpectedAmount: decimal.NewFromInt(120000),
		ActualAmount:   decimal.Zero,
	})
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.True(t, decimal.NewFromInt(-120000).Equal(view.DifferenceAmount))
	assert.Equal(t, models.StatusDetected, view.Status)
	// 0.50 base, LOW risk +0.20, good history +0.10
	assert.Equal(t, 0.80, view.AIAnalysis.Confidence)
	assert.Equal(t, models.InterventionAssisted, view.InterventionLevel)
	assert.Equal(t, "user-admin", *stored.AssignedUserID)
	assert.Equal(t, "CUST001", stored.Customer.CustomerCode)

	require.NotNil(t, task)
	assert.Equal(t, "UNPAID_DETECTION", task.Type)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, stored.ID, *task.DiscrepancyID)
}

func TestCreateWithoutGoodHistoryWhenCustomerIsLate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := lowRiskCustomer()
	customer.RiskLevel = models.RiskMedium

	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(customer, nil)
	f.discrepancies.EXPECT().HasOverdueOpen(gomock.Any(), "cust-1", gomock.Any()).Return(true, nil)
	f.discrepancies.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.tasks.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.events.EXPECT().PublishCreated(gomock.Any(), gomock.Any()).Return(nil)

	view, err := f.service.Create(ctx, admin(), CreateDiscrepancyInput{
		CustomerID:     "cust-1",
		Type:           models.TypeUnpaid,
		ExpectedAmount: decimal.NewFromInt(5000),
		ActualAmount:   decimal.Zero,
	})
	require.NoError(t, err)
	// 0.50 base, small amount +0.20, MEDIUM risk +0.10, no history bonus
	assert.Equal(t, 0.80, view.AIAnalysis.Confidence)
	assert.Equal(t, models.InterventionAssisted, view.InterventionLevel)
}

func TestLateCutoff(t *testing.T) {
	cutoff := lateCutoff(fixedNow)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), cutoff)

	// due the day before the cutoff is 31 whole days overdue, the cutoff itself 30
	before := cutoff.AddDate(0, 0, -1)
	assert.Equal(t, 31, *scoring.OverdueDays(&before, fixedNow))
	assert.Equal(t, 30, *scoring.OverdueDays(&cutoff, fixedNow))
}

func TestCreateRejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), admin(), CreateDiscrepancyInput{
		CustomerID: "cust-1",
		Type:       "REFUNDED",
	})
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestSendEmailMovesDetectedToEmailSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(detected("d-1"), nil)
	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(lowRiskCustomer(), nil)
	f.settings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(map[string]string{}, nil)
	f.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s models.SMTPSettings, m models.EmailMessage) error {
			assert.Equal(t, "ap@acme.test", m.To)
			assert.Contains(t, m.Subject, "Acme Trading Ltd")
			return nil
		})
	f.emailLogs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.discrepancies.EXPECT().TransitionStatus(gomock.Any(), "d-1", models.StatusDetected, models.StatusEmailSent).Return(int64(1), nil)
	f.events.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e models.StatusChangedEvent) error {
			assert.Equal(t, models.StatusDetected, e.From)
			assert.Equal(t, models.StatusEmailSent, e.To)
			return nil
		})

	res, err := f.service.SendEmail(ctx, admin(), "d-1", SendRequest{Kind: mailer.KindReminder})
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.True(t, res.StatusChanged)
	assert.Equal(t, models.StatusDetected, res.PreviousStatus)
	assert.Equal(t, models.StatusEmailSent, res.CurrentStatus)
}

func TestSendEmailLeavesLaterStatusAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := detected("d-1")
	d.Status = models.StatusCustomerContacted

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(d, nil)
	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(lowRiskCustomer(), nil)
	f.settings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(map[string]string{}, nil)
	f.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.emailLogs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	res, err := f.service.SendEmail(ctx, admin(), "d-1", SendRequest{Kind: mailer.KindInquiry})
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.False(t, res.StatusChanged)
	assert.Equal(t, models.StatusCustomerContacted, res.CurrentStatus)
}

func TestSendEmailLosesRaceWithoutDoubleTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(detected("d-1"), nil)
	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(lowRiskCustomer(), nil)
	f.settings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(map[string]string{}, nil)
	f.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.emailLogs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.discrepancies.EXPECT().TransitionStatus(gomock.Any(), "d-1", models.StatusDetected, models.StatusEmailSent).Return(int64(0), nil)

	res, err := f.service.SendEmail(ctx, admin(), "d-1", SendRequest{Kind: mailer.KindReminder})
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.False(t, res.StatusChanged)
}

func TestSendEmailFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(detected("d-1"), nil)
	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(lowRiskCustomer(), nil)
	f.settings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(map[string]string{}, nil)
	f.transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("535 authentication failed"))
	f.emailLogs.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, l *models.EmailLog) error {
			assert.Equal(t, models.EmailFailed, l.Status)
			require.NotNil(t, l.ErrorMessage)
			assert.Contains(t, *l.ErrorMessage, "535")
			return nil
		})

	res, err := f.service.SendEmail(ctx, admin(), "d-1", SendRequest{Kind: mailer.KindReminder})
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, models.EmailFailed, res.Status)
	assert.Equal(t, models.StatusDetected, res.CurrentStatus)
}

func TestSendEmailWithoutCustomerEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := lowRiskCustomer()
	customer.Email = nil

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(detected("d-1"), nil)
	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(customer, nil)

	_, err := f.service.SendEmail(ctx, admin(), "d-1", SendRequest{Kind: mailer.KindReminder})
	requireAppError(t, err, http.StatusBadRequest, "CUSTOMER_EMAIL_MISSING")
}

func TestUpdateVersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	status := models.StatusProcessing
	version := 1

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(detected("d-1"), nil)
	f.discrepancies.EXPECT().Update(gomock.Any(), "d-1", gomock.Any()).Return(nil, apperror.ErrConflict)

	_, err := f.service.Update(ctx, admin(), "d-1", models.DiscrepancyUpdate{Status: &status, Version: &version})
	requireAppError(t, err, http.StatusConflict, "VERSION_CONFLICT")
}

func TestUpdateManualStatusPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	status := models.StatusResolved
	updated := detected("d-1")
	updated.Status = models.StatusResolved
	updated.Version = 2

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(detected("d-1"), nil)
	f.discrepancies.EXPECT().Update(gomock.Any(), "d-1", gomock.Any()).Return(updated, nil)
	f.events.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(nil)

	view, err := f.service.Update(ctx, admin(), "d-1", models.DiscrepancyUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, view.Status)
	assert.Equal(t, 100, view.Progress)
}

func TestDeletePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.Delete(ctx, models.Actor{UserID: "u", Role: models.RoleUser}, "d-1", false)
	requireAppError(t, err, http.StatusForbidden, "")
}

func TestDeleteWithDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := models.Actor{UserID: "m", Role: models.RoleManager}

	f.discrepancies.EXPECT().GetByID(gomock.Any(), "d-1").Return(detected("d-1"), nil).Times(2)
	f.discrepancies.EXPECT().CountDependents(gomock.Any(), "d-1").Return(2, nil)

	err := f.service.Delete(ctx, manager, "d-1", false)
	requireAppError(t, err, http.StatusConflict, "HAS_DEPENDENTS")

	f.discrepancies.EXPECT().Delete(gomock.Any(), "d-1", true).Return(nil)
	require.NoError(t, f.service.Delete(ctx, manager, "d-1", true))
}

func TestStatisticsRates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.discrepancies.EXPECT().CountBy(gomock.Any(), "interventionLevel").Return([]models.GroupCount{
		{Key: string(models.InterventionAutonomous), Count: 2},
		{Key: string(models.InterventionHuman), Count: 1},
	}, nil)
	f.discrepancies.EXPECT().CountBy(gomock.Any(), "status").Return([]models.GroupCount{
		{Key: string(models.StatusDetected), Count: 2},
		{Key: string(models.StatusResolved), Count: 1},
	}, nil)

	stats, err := f.service.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 66.7, stats.AutonomousRate)
	assert.Equal(t, 33.3, stats.ResolutionRate)
	assert.Equal(t, 70.0, stats.TargetAutonomousRate)
}
