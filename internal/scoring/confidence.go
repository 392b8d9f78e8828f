package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

// Fixed policy thresholds.
var (
	SmallAmount  = decimal.NewFromInt(10_000)
	MediumAmount = decimal.NewFromInt(100_000)
	LargeAmount  = decimal.NewFromInt(500_000)
)

const (
	AutonomousThreshold = 0.90
	AssistedThreshold   = 0.70
)

// Confidence is accumulated in hundredths so that thresholds compare exactly.
const (
	basePoints = 50
	minPoints  = 10
	maxPoints  = 99
)

type Input struct {
	Amount             decimal.Decimal
	RiskTier           models.RiskTier
	GoodPaymentHistory bool
}

type Assessment struct {
	Confidence float64
	Level      models.InterventionLevel
}

func Score(in Input) Assessment {
	conf := Confidence(in.Amount, in.RiskTier, in.GoodPaymentHistory)
	return Assessment{Confidence: conf, Level: Intervention(conf)}
}

// Confidence is bounded to [0.10, 0.99]. The sign of amount is ignored.
func Confidence(amount decimal.Decimal, tier models.RiskTier, goodPaymentHistory bool) float64 {
	abs := amount.Abs()
	points := basePoints

	switch {
	case abs.LessThan(SmallAmount):
		points += 20
	case abs.LessThan(MediumAmount):
		points += 10
	case abs.GreaterThanOrEqual(LargeAmount):
		points -= 20
	}

	switch tier {
	case models.RiskLow:
		points += 20
	case models.RiskMedium:
		points += 10
	case models.RiskHigh:
		points -= 10
	case models.RiskCritical:
		points -= 30
	}

	if goodPaymentHistory {
		points += 10
	}

	if points < minPoints {
		points = minPoints
	}
	if points > maxPoints {
		points = maxPoints
	}
	return float64(points) / 100
}

func Intervention(confidence float64) models.InterventionLevel {
	switch {
	case confidence >= AutonomousThreshold:
		return models.InterventionAutonomous
	case confidence >= AssistedThreshold:
		return models.InterventionAssisted
	default:
		return models.InterventionHuman
	}
}
