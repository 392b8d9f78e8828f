package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/config"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

// Amounts is the reconciled view of one supplied amount. Difference is
// always Actual - Expected.
type Amounts struct {
	Expected   decimal.Decimal
	Actual     decimal.Decimal
	Difference decimal.Decimal
}

// Calculator back-calculates the expected amount from the observed payment.
// UNPAID rows carry the invoiced amount and an actual payment of zero.
type Calculator struct {
	ratios config.Ratios
}

func NewCalculator(ratios config.Ratios) *Calculator {
	return &Calculator{ratios: ratios}
}

func DefaultCalculator() *Calculator {
	return NewCalculator(config.Ratios{
		OverpaidExpected:         decimal.RequireFromString("0.8"),
		PartialExpected:          decimal.RequireFromString("1.25"),
		MultipleInvoicesExpected: decimal.RequireFromString("0.7"),
	})
}

func (c *Calculator) Reconcile(t models.DiscrepancyType, amount decimal.Decimal) (Amounts, error) {
	if amount.IsNegative() {
		return Amounts{}, fmt.Errorf("amount must not be negative: %s", amount)
	}

	var out Amounts
	switch t {
	case models.TypeUnpaid:
		out.Expected = amount
		out.Actual = decimal.Zero
	case models.TypeOverpaid:
		out.Expected = amount.Mul(c.ratios.OverpaidExpected)
		out.Actual = amount
	case models.TypePartial:
		out.Expected = amount.Mul(c.ratios.PartialExpected)
		out.Actual = amount
	case models.TypeMultipleInvoices:
		out.Expected = amount.Mul(c.ratios.MultipleInvoicesExpected)
		out.Actual = amount
	default:
		return Amounts{}, fmt.Errorf("unknown discrepancy type %q", t)
	}
	out.Difference = out.Actual.Sub(out.Expected)
	return out, nil
}

// OverdueDays returns whole days elapsed since due, floored at zero, or nil
// when there is no due date.
func OverdueDays(due *time.Time, now time.Time) *int {
	if due == nil {
		return nil
	}
	days := int(math.Floor(now.Sub(*due).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days
}
