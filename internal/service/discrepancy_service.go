package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/lifecycle"
	"github.com/akylbek/ar-system/discrepancy-service/internal/mailer"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/scoring"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

const (
	// A customer with an open discrepancy more than this many days overdue
	// has no good payment history.
	goodHistoryOverdueDays = 30

	targetAutonomousRate = 70

	sourceManual = "manual"
	sourceImport = "excel-import"
)

type CreateDiscrepancyInput struct {
	CustomerID         string
	CustomerName       string
	CustomerEmail      string
	Type               models.DiscrepancyType
	ExpectedAmount     decimal.Decimal
	ActualAmount       decimal.Decimal
	DueDate            *time.Time
	Notes              string
	Tags               []string
	Priority           *models.Priority
	GoodPaymentHistory *bool
}

type DiscrepancyService struct {
	repo      interfaces.DiscrepancyRepository
	tasks     interfaces.TaskRepository
	emailLogs interfaces.EmailLogRepository
	customers *CustomerService
	email     *EmailService
	events    interfaces.EventPublisher
	now       func() time.Time
}

func NewDiscrepancyService(
	repo interfaces.DiscrepancyRepository,
	tasks interfaces.TaskRepository,
	emailLogs interfaces.EmailLogRepository,
	customers *CustomerService,
	email *EmailService,
	events interfaces.EventPublisher,
) *DiscrepancyService {
	return &DiscrepancyService{
		repo:      repo,
		tasks:     tasks,
		emailLogs: emailLogs,
		customers: customers,
		email:     email,
		events:    events,
		now:       time.Now,
	}
}

func (s *DiscrepancyService) List(ctx context.Context, f models.DiscrepancyFilter) ([]models.DiscrepancyView, models.Pagination, error) {
	f.Page, f.Limit = models.PageBounds(f.Page, f.Limit)
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	views := make([]models.DiscrepancyView, 0, len(items))
	for _, d := range items {
		views = append(views, lifecycle.View(d))
	}
	return views, models.NewPagination(total, f.Page, f.Limit), nil
}

func (s *DiscrepancyService) getByID(ctx context.Context, id string) (*models.PaymentDiscrepancy, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound("Discrepancy")
	}
	return d, err
}

func (s *DiscrepancyService) Get(ctx context.Context, id string) (*models.DiscrepancyDetail, error) {
	d, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.emailLogs.ListByDiscrepancy(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByDiscrepancy(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.DiscrepancyDetail{
		DiscrepancyView: lifecycle.View(*d),
		EmailLogs:       logs,
		Tasks:           tasks,
	}, nil
}

// Create records a manually entered discrepancy. The customer is taken by id
// or resolved by name and email, creating it when unknown.
func (s *DiscrepancyService) Create(ctx context.Context, actor models.Actor, in CreateDiscrepancyInput) (*models.DiscrepancyView, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "DiscrepancyService.Create")
	defer span.End()

	if !in.Type.Valid() {
		return nil, apperror.Validation("Invalid discrepancy type", map[string]string{"type": "invalid"})
	}

	var customer *models.Customer
	var err error
	switch {
	case in.CustomerID != "":
		customer, err = s.customers.GetByID(ctx, in.CustomerID)
	case in.CustomerName != "" || in.CustomerEmail != "":
		customer, _, err = s.customers.Resolve(ctx, in.CustomerName, in.CustomerEmail, true)
	default:
		err = apperror.Validation("customerId or customerName is required", nil)
	}
	if err != nil {
		return nil, err
	}

	difference := in.ActualAmount.Sub(in.ExpectedAmount)
	overdue := scoring.OverdueDays(in.DueDate, s.now())

	goodHistory := false
	if in.GoodPaymentHistory != nil {
		goodHistory = *in.GoodPaymentHistory
	} else {
		late, err := s.repo.HasOverdueOpen(ctx, customer.ID, lateCutoff(s.now()))
		if err != nil {
			return nil, err
		}
		goodHistory = !late
	}

	assessment, analysis := scoring.Analyze(scoring.AnalysisInput{
		Type:               in.Type,
		Amount:             difference,
		RiskTier:           customer.RiskLevel,
		GoodPaymentHistory: goodHistory,
		ImportSource:       sourceManual,
	})

	priority := scoring.Priority(difference, overdue)
	if in.Priority != nil {
		priority = *in.Priority
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	d := &models.PaymentDiscrepancy{
		ID:                uuid.NewString(),
		CustomerID:        customer.ID,
		Type:              in.Type,
		Status:            models.StatusDetected,
		Priority:          priority,
		InterventionLevel: assessment.Level,
		ExpectedAmount:    in.ExpectedAmount,
		ActualAmount:      in.ActualAmount,
		DifferenceAmount:  difference,
		DueDate:           in.DueDate,
		OverdueDays:       overdue,
		AIAnalysis:        analysis,
		Notes:             in.Notes,
		Tags:              tags,
	}
	if err := s.record(ctx, actor, d, customer, sourceManual); err != nil {
		return nil, err
	}
	view := lifecycle.View(*d)
	return &view, nil
}

// record stores a new discrepancy with its detection task and announces it.
func (s *DiscrepancyService) record(ctx context.Context, actor models.Actor, d *models.PaymentDiscrepancy, customer *models.Customer, source string) error {
	now := s.now()
	if actor.UserID != "" {
		d.AssignedUserID = &actor.UserID
		d.AssignedAt = &now
	}
	d.Customer = customer.Summary()

	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}

	abs := d.DifferenceAmount.Abs()
	task := &models.Task{
		ID:             uuid.NewString(),
		DiscrepancyID:  &d.ID,
		Type:           fmt.Sprintf("%s_DETECTION", d.Type),
		Title:          fmt.Sprintf("Handle %s discrepancy", d.Type),
		Description:    fmt.Sprintf("%s discrepancy of %s detected for %s.", d.Type, mailer.FormatAmount(abs), customer.Name),
		Priority:       scoring.TaskPriority(abs),
		Status:         models.TaskPending,
		AssignedUserID: d.AssignedUserID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return err
	}

	telemetry.DiscrepanciesCreated.WithLabelValues(source, string(d.InterventionLevel)).Inc()
	telemetry.ConfidenceScores.Observe(d.AIAnalysis.Confidence)

	if err := s.events.PublishCreated(ctx, models.DiscrepancyCreatedEvent{
		DiscrepancyID:     d.ID,
		CustomerID:        d.CustomerID,
		Type:              d.Type,
		InterventionLevel: d.InterventionLevel,
		Confidence:        d.AIAnalysis.Confidence,
		DifferenceAmount:  d.DifferenceAmount,
		Source:            source,
		CreatedAt:         d.CreatedAt,
	}); err != nil {
		telemetry.Logger.Warn("Failed to publish discrepancy created event",
			zap.String("discrepancy_id", d.ID),
			zap.Error(err),
		)
	}

	telemetry.Logger.Info("Discrepancy created",
		zap.String("discrepancy_id", d.ID),
		zap.String("customer_id", d.CustomerID),
		zap.String("type", string(d.Type)),
		zap.String("intervention_level", string(d.InterventionLevel)),
		zap.String("source", source),
	)
	return nil
}

// Update applies a manual edit. Any status may be set by hand.
func (s *DiscrepancyService) Update(ctx context.Context, actor models.Actor, id string, u models.DiscrepancyUpdate) (*models.DiscrepancyView, error) {
	current, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status != nil && !lifecycle.Allowed(current.Status, *u.Status, lifecycle.TriggerManual) {
		return nil, apperror.Validation("Invalid status", map[string]string{"status": string(*u.Status)})
	}
	if u.Priority != nil && !u.Priority.Valid() {
		return nil, apperror.Validation("Invalid priority", map[string]string{"priority": string(*u.Priority)})
	}

	updated, err := s.repo.Update(ctx, id, u)
	if errors.Is(err, apperror.ErrConflict) {
		return nil, apperror.Conflict("VERSION_CONFLICT", "Discrepancy was modified by someone else")
	}
	if err != nil {
		return nil, err
	}

	if u.Status != nil && current.Status != updated.Status {
		s.statusChanged(ctx, actor, updated, current.Status, lifecycle.TriggerManual)
	}
	view := lifecycle.View(*updated)
	return &view, nil
}

func (s *DiscrepancyService) statusChanged(ctx context.Context, actor models.Actor, d *models.PaymentDiscrepancy, from models.DiscrepancyStatus, trigger lifecycle.Trigger) {
	telemetry.StatusTransitions.WithLabelValues(string(from), string(d.Status), string(trigger)).Inc()

	if err := s.events.PublishStatusChanged(ctx, models.StatusChangedEvent{
		DiscrepancyID: d.ID,
		CustomerID:    d.CustomerID,
		From:          from,
		To:            d.Status,
		Trigger:       string(trigger),
		ActorID:       actor.UserID,
		ChangedAt:     s.now(),
	}); err != nil {
		telemetry.Logger.Warn("Failed to publish status change",
			zap.String("discrepancy_id", d.ID),
			zap.Error(err),
		)
	}

	telemetry.Logger.Info("Discrepancy status transition",
		zap.String("discrepancy_id", d.ID),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(d.Status)),
		zap.String("trigger", string(trigger)),
	)
}

// Delete removes a discrepancy. Email logs and tasks block the delete
// unless cascade is set.
func (s *DiscrepancyService) Delete(ctx context.Context, actor models.Actor, id string, cascade bool) error {
	if !actor.HasRole(models.RoleAdmin, models.RoleManager) {
		return apperror.Forbidden("Insufficient permissions")
	}
	if _, err := s.getByID(ctx, id); err != nil {
		return err
	}
	if !cascade {
		n, err := s.repo.CountDependents(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.Conflict("HAS_DEPENDENTS",
				fmt.Sprintf("Discrepancy has %d email logs or tasks; retry with cascade=true", n))
		}
	}
	if err := s.repo.Delete(ctx, id, cascade); err != nil {
		return err
	}
	telemetry.Logger.Info("Discrepancy deleted", zap.String("discrepancy_id", id), zap.Bool("cascade", cascade))
	return nil
}

// SendEmail sends a message about the discrepancy. A successful send moves a
// DETECTED discrepancy to EMAIL_SENT; later statuses are left alone.
func (s *DiscrepancyService) SendEmail(ctx context.Context, actor models.Actor, id string, req SendRequest) (*models.SendEmailResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "DiscrepancyService.SendEmail")
	defer span.End()
	span.SetAttributes(attribute.String("discrepancy.id", id))

	d, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.GetByID(ctx, d.CustomerID)
	if err != nil {
		return nil, err
	}

	log, err := s.email.SendForDiscrepancy(ctx, d, customer, req)
	if err != nil {
		return nil, err
	}

	result := &models.SendEmailResult{
		Sent:           log.Status == models.EmailSent,
		EmailLogID:     log.ID,
		Status:         log.Status,
		PreviousStatus: d.Status,
		CurrentStatus:  d.Status,
	}
	if log.ErrorMessage != nil {
		result.Error = *log.ErrorMessage
	}
	if !result.Sent {
		return result, nil
	}

	next, ok := lifecycle.AfterEmailSent(d.Status)
	if !ok {
		return result, nil
	}
	rows, err := s.repo.TransitionStatus(ctx, d.ID, d.Status, next)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Someone else moved it on between the read and the guarded update.
		telemetry.Logger.Info("Status already advanced", zap.String("discrepancy_id", d.ID))
		return result, nil
	}

	from := d.Status
	d.Status = next
	result.CurrentStatus = next
	result.StatusChanged = true
	s.statusChanged(ctx, actor, d, from, lifecycle.TriggerEmailSent)
	return result, nil
}

func (s *DiscrepancyService) Statistics(ctx context.Context) (*models.DiscrepancyStatistics, error) {
	byLevel, err := s.repo.CountBy(ctx, "interventionLevel")
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repo.CountBy(ctx, "status")
	if err != nil {
		return nil, err
	}

	stats := &models.DiscrepancyStatistics{
		TargetAutonomousRate: targetAutonomousRate,
		StatusBreakdown:      make(map[string]int, len(byStatus)),
	}
	for _, g := range byStatus {
		stats.StatusBreakdown[g.Key] = g.Count
		stats.Total += g.Count
		if g.Key == string(models.StatusResolved) {
			stats.Resolved = g.Count
		}
	}
	for _, g := range byLevel {
		switch models.InterventionLevel(g.Key) {
		case models.InterventionAutonomous:
			stats.Autonomous = g.Count
		case models.InterventionAssisted:
			stats.Assisted = g.Count
		case models.InterventionHuman:
			stats.HumanRequired = g.Count
		}
	}
	stats.AutonomousRate = percent(stats.Autonomous, stats.Total)
	stats.ResolutionRate = percent(stats.Resolved, stats.Total)
	return stats, nil
}

// percent is part/total as a percentage rounded to one decimal.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

// lateCutoff is the first due date that is not yet more than
// goodHistoryOverdueDays whole days overdue at now.
func lateCutoff(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -goodHistoryOverdueDays)
}
