// Package ingest validates resolved spreadsheet rows and turns them into
// import rows.
package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/akylbek/ar-system/discrepancy-service/internal/config"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/spreadsheet"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Excel serials outside this range are not dates (1900-01-01 .. 9999-12-31).
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006.01.02",
	"2006年1月2日",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04",
	time.RFC3339,
}

const (
	ErrEmptyRow        = "row is empty"
	ErrCategoryMissing = "category is required"
	ErrCompanyMissing  = "company name is required"
	ErrAmountMissing   = "amount is required"
	ErrAmountInvalid   = "amount must be a number"
	ErrAmountNegative  = "amount must not be negative"
	ErrEmailMissing    = "email is required"
	ErrEmailInvalid    = "invalid email format"
)

// Outcome is the result of normalizing one row. Row is only meaningful when
// Errors is empty.
type Outcome struct {
	Row      models.ImportRow
	Errors   []string
	Warnings []string
}

func (o Outcome) Valid() bool { return len(o.Errors) == 0 }

type Normalizer struct {
	categories    map[string]models.DiscrepancyType
	defaultUnpaid bool
}

func NewNormalizer(h *config.Heuristics) *Normalizer {
	n := &Normalizer{
		categories:    make(map[string]models.DiscrepancyType, len(h.Categories)+4),
		defaultUnpaid: h.UnknownCategory == config.UnknownCategoryDefaultUnpaid,
	}
	for _, t := range []models.DiscrepancyType{models.TypeUnpaid, models.TypeOverpaid, models.TypePartial, models.TypeMultipleInvoices} {
		n.categories[spreadsheet.Fold(string(t))] = t
	}
	for label, t := range h.Categories {
		n.categories[spreadsheet.Fold(label)] = models.DiscrepancyType(t)
	}
	return n
}

// Category maps a localized label to a discrepancy type.
func (n *Normalizer) Category(label string) (models.DiscrepancyType, bool) {
	t, ok := n.categories[spreadsheet.Fold(label)]
	return t, ok
}

// Normalize checks every rule and reports all failures of the row at once.
func (n *Normalizer) Normalize(rec spreadsheet.Record, l *spreadsheet.Layout, mode models.ImportMode) Outcome {
	out := Outcome{Row: models.ImportRow{Row: rec.Row}}
	if rec.IsEmpty() {
		out.Errors = append(out.Errors, ErrEmptyRow)
		return out
	}

	label := rec.Get(l.Column(spreadsheet.RoleType)).Text
	out.Row.CategoryLabel = label
	switch t, ok := n.Category(label); {
	case ok:
		out.Row.Type = t
	case n.defaultUnpaid:
		out.Row.Type = models.TypeUnpaid
		out.Warnings = append(out.Warnings, fmt.Sprintf("row %d: category %q not recognised, treated as UNPAID", rec.Row, label))
	case label == "":
		out.Errors = append(out.Errors, ErrCategoryMissing)
	default:
		out.Errors = append(out.Errors, fmt.Sprintf("unknown category %q", label))
	}

	out.Row.Company = strings.TrimSpace(rec.Get(l.Column(spreadsheet.RoleCompany)).Text)
	if out.Row.Company == "" {
		out.Errors = append(out.Errors, ErrCompanyMissing)
	}

	if amount, msg := parseAmount(rec.Get(l.Column(spreadsheet.RoleAmount))); msg != "" {
		out.Errors = append(out.Errors, msg)
	} else {
		out.Row.Amount = amount
	}

	email := strings.TrimSpace(rec.Get(l.Column(spreadsheet.RoleEmail)).Text)
	switch {
	case email == "" && mode == models.ImportStrict:
		out.Errors = append(out.Errors, ErrEmailMissing)
	case email != "" && !emailPattern.MatchString(email):
		out.Errors = append(out.Errors, ErrEmailInvalid)
	default:
		out.Row.Email = email
	}

	out.Row.DueDate = ParseDate(rec.Get(l.Column(spreadsheet.RoleDueDate)))

	var notes []string
	for _, col := range l.NotesColumns {
		if v := rec.Get(col).Text; v != "" {
			notes = append(notes, v)
		}
	}
	out.Row.Notes = strings.Join(notes, "\n")
	out.Row.DedupKey = strings.TrimSpace(rec.Get(l.Column(spreadsheet.RoleDedupKey)).Text)

	return out
}

func parseAmount(c spreadsheet.Cell) (decimal.Decimal, string) {
	if c.IsEmpty() {
		return decimal.Zero, ErrAmountMissing
	}
	d, err := decimal.NewFromString(spreadsheet.CleanNumber(c.Text))
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}
	if d.IsNegative() {
		return decimal.Zero, ErrAmountNegative
	}
	return d, ""
}

// ParseDate reads a calendar date from a cell. Anything it cannot read is
// treated as absent.
func ParseDate(c spreadsheet.Cell) *time.Time {
	switch c.Kind {
	case spreadsheet.KindNumber:
		if c.Number < minExcelSerial || c.Number > maxExcelSerial {
			return nil
		}
		t, err := spreadsheet.ExcelDate(c.Number)
		if err != nil {
			return nil
		}
		return dateOnly(t)
	case spreadsheet.KindText:
		s := norm.NFKC.String(c.Text)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dateOnly(t)
			}
		}
	}
	return nil
}

func dateOnly(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
