package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

var taskMediumAmount = decimal.NewFromInt(50_000)

// Priority ranks a discrepancy by overdue days first, then by size.
func Priority(amount decimal.Decimal, overdueDays *int) models.Priority {
	if overdueDays != nil && *overdueDays > 30 {
		return models.PriorityUrgent
	}
	abs := amount.Abs()
	switch {
	case abs.GreaterThan(MediumAmount):
		return models.PriorityHigh
	case abs.LessThan(SmallAmount):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

// TaskPriority is the coarser ranking used for detection tasks.
func TaskPriority(amount decimal.Decimal) models.Priority {
	abs := amount.Abs()
	switch {
	case abs.GreaterThan(MediumAmount):
		return models.PriorityHigh
	case abs.GreaterThan(taskMediumAmount):
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

const (
	ActionFirstReminder = "send_first_reminder"
	ActionInquiryEmail  = "send_inquiry_email"
	ActionPrepareDraft  = "prepare_draft_email"
	ActionEscalate      = "escalate_to_human"
)

func RecommendedAction(t models.DiscrepancyType, level models.InterventionLevel) string {
	switch level {
	case models.InterventionAutonomous:
		if t == models.TypeUnpaid {
			return ActionFirstReminder
		}
		return ActionInquiryEmail
	case models.InterventionAssisted:
		return ActionPrepareDraft
	default:
		return ActionEscalate
	}
}

type AnalysisInput struct {
	Type               models.DiscrepancyType
	Amount             decimal.Decimal
	RiskTier           models.RiskTier
	GoodPaymentHistory bool
	ImportSource       string
	HeaderOffset       *int
	Extensions         map[string]string
}

// Analyze scores the input and builds the stored analysis record.
func Analyze(in AnalysisInput) (Assessment, models.AIAnalysis) {
	a := Score(Input{Amount: in.Amount, RiskTier: in.RiskTier, GoodPaymentHistory: in.GoodPaymentHistory})
	analysis := models.AIAnalysis{
		Confidence:        a.Confidence,
		RecommendedAction: RecommendedAction(in.Type, a.Level),
		Reasoning: fmt.Sprintf("%s discrepancy of %s for a %s risk customer; confidence %.0f%% maps to %s.",
			in.Type, in.Amount.Abs().StringFixed(0), in.RiskTier, a.Confidence*100, a.Level),
		Factors: models.AnalysisFactors{
			Amount:             in.Amount.Abs(),
			CustomerRiskLevel:  in.RiskTier,
			Type:               in.Type,
			GoodPaymentHistory: in.GoodPaymentHistory,
			ImportSource:       in.ImportSource,
			HeaderOffset:       in.HeaderOffset,
		},
		Extensions: in.Extensions,
	}
	return a, analysis
}
