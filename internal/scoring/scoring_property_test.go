package scoring

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

var tiers = []models.RiskTier{models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical}

// Property: 0.10 <= confidence <= 0.99 for any amount, tier and history flag.
func TestConfidenceBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("confidence stays within bounds", prop.ForAll(
		func(amount int64, tier int, good bool) bool {
			c := Confidence(decimal.NewFromInt(amount), tiers[tier], good)
			return c >= 0.10 && c <= 0.99
		},
		gen.Int64Range(-10_000_000, 10_000_000),
		gen.IntRange(0, len(tiers)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: a larger |amount| never raises confidence for the same tier.
func TestConfidenceMonotonicInAmount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("confidence is non-increasing in |amount|", prop.ForAll(
		func(a, b int64, tier int, good bool) bool {
			if a > b {
				a, b = b, a
			}
			ca := Confidence(decimal.NewFromInt(a), tiers[tier], good)
			cb := Confidence(decimal.NewFromInt(b), tiers[tier], good)
			return ca >= cb
		},
		gen.Int64Range(0, 2_000_000),
		gen.Int64Range(0, 2_000_000),
		gen.IntRange(0, len(tiers)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: each type reconciles to its fixed share of the supplied amount.
func TestReconciliationByType(t *testing.T) {
	calc := DefaultCalculator()
	cases := []struct {
		typ        models.DiscrepancyType
		expected   string
		actual     string
		difference string
	}{
		{models.TypeUnpaid, "1", "0", "-1"},
		{models.TypeOverpaid, "0.8", "1", "0.2"},
		{models.TypePartial, "1.25", "1", "-0.25"},
		{models.TypeMultipleInvoices, "0.7", "1", "0.3"},
	}

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("amounts follow the per-type shares", prop.ForAll(
		func(cents int64, i int) bool {
			tc := cases[i]
			amount := decimal.New(cents, -2)
			got, err := calc.Reconcile(tc.typ, amount)
			if err != nil {
				return false
			}
			share := func(s string) decimal.Decimal { return amount.Mul(decimal.RequireFromString(s)) }
			return got.Expected.Equal(share(tc.expected)) &&
				got.Actual.Equal(share(tc.actual)) &&
				got.Difference.Equal(share(tc.difference))
		},
		gen.Int64Range(0, 1_000_000_000),
		gen.IntRange(0, len(cases)-1),
	))

	properties.TestingRun(t)
}
