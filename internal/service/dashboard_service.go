package service

import (
	"context"
	"time"

	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

const timelineDays = 30

type DashboardService struct {
	discrepancies interfaces.DiscrepancyRepository
	customers     interfaces.CustomerRepository
	emailLogs     interfaces.EmailLogRepository
	now           func() time.Time
}

func NewDashboardService(discrepancies interfaces.DiscrepancyRepository, customers interfaces.CustomerRepository, emailLogs interfaces.EmailLogRepository) *DashboardService {
	return &DashboardService{
		discrepancies: discrepancies,
		customers:     customers,
		emailLogs:     emailLogs,
		now:           time.Now,
	}
}

func toMap(groups []models.GroupCount) map[string]int {
	out := make(map[string]int, len(groups))
	for _, g := range groups {
		out[g.Key] = g.Count
	}
	return out
}

func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "DashboardService.Stats")
	defer span.End()

	stats := &models.DashboardStats{}
	for dimension, dst := range map[string]*map[string]int{
		"status":            &stats.ByStatus,
		"interventionLevel": &stats.ByIntervention,
		"priority":          &stats.ByPriority,
	} {
		groups, err := s.discrepancies.CountBy(ctx, dimension)
		if err != nil {
			return nil, err
		}
		*dst = toMap(groups)
	}

	risk, err := s.customers.RiskDistribution(ctx)
	if err != nil {
		return nil, err
	}
	stats.RiskDistribution = toMap(risk)

	if stats.TotalCustomers, err = s.customers.Count(ctx); err != nil {
		return nil, err
	}
	if stats.OutstandingAmount, err = s.discrepancies.OutstandingAmount(ctx); err != nil {
		return nil, err
	}
	if stats.Timeline, err = s.discrepancies.DailyCounts(ctx, timelineDays); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -timelineDays)
	if stats.EmailsSentLast30Days, err = s.emailLogs.CountSince(ctx, models.EmailSent, since); err != nil {
		return nil, err
	}

	for status, n := range stats.ByStatus {
		stats.TotalDiscrepancies += n
		if models.DiscrepancyStatus(status) != models.StatusResolved {
			stats.OpenDiscrepancies += n
		}
	}
	stats.AutonomousRate = percent(stats.ByIntervention[string(models.InterventionAutonomous)], stats.TotalDiscrepancies)
	stats.ResolutionRate = percent(stats.ByStatus[string(models.StatusResolved)], stats.TotalDiscrepancies)
	return stats, nil
}
