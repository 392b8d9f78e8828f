package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/ingest"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/mailer"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/scoring"
	"github.com/akylbek/ar-system/discrepancy-service/internal/spreadsheet"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

const previewRows = 10

// Upload is a spreadsheet received over HTTP.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type ImportService struct {
	resolver      *spreadsheet.Resolver
	normalizer    *ingest.Normalizer
	calculator    *scoring.Calculator
	repo          interfaces.DiscrepancyRepository
	customers     *CustomerService
	discrepancies *DiscrepancyService
	claims        interfaces.KeyClaimer
	activity      interfaces.ActivityRepository
	now           func() time.Time
}

func NewImportService(
	resolver *spreadsheet.Resolver,
	normalizer *ingest.Normalizer,
	calculator *scoring.Calculator,
	repo interfaces.DiscrepancyRepository,
	customers *CustomerService,
	discrepancies *DiscrepancyService,
	claims interfaces.KeyClaimer,
	activity interfaces.ActivityRepository,
) *ImportService {
	return &ImportService{
		resolver:      resolver,
		normalizer:    normalizer,
		calculator:    calculator,
		repo:          repo,
		customers:     customers,
		discrepancies: discrepancies,
		claims:        claims,
		activity:      activity,
		now:           time.Now,
	}
}

func (s *ImportService) load(u Upload) (*spreadsheet.Layout, error) {
	format, err := spreadsheet.DetectFormat(u.Filename, u.ContentType)
	if err != nil {
		return nil, apperror.BadRequest("UNSUPPORTED_FILE", err.Error())
	}
	grid, err := spreadsheet.Read(u.Body, format)
	switch {
	case errors.Is(err, spreadsheet.ErrEmptyWorkbook):
		return nil, apperror.BadRequest("EMPTY_FILE", "The file contains no data")
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		return nil, apperror.BadRequest("UNSUPPORTED_FILE", err.Error())
	case err != nil:
		return nil, apperror.BadRequest("INVALID_FILE", fmt.Sprintf("Could not read the file: %v", err))
	}
	return s.resolver.Resolve(grid), nil
}

// Analyze is a dry run: it reports what an import of the file would do
// without writing anything.
func (s *ImportService) Analyze(ctx context.Context, u Upload, mode models.ImportMode) (*models.AnalysisResult, error) {
	_, span := telemetry.Tracer.Start(ctx, "ImportService.Analyze")
	defer span.End()

	layout, err := s.load(u)
	if err != nil {
		return nil, err
	}
	return s.analyze(layout, mode), nil
}

// Validate runs the normalizer over rows that are already keyed by column name.
func (s *ImportService) Validate(ctx context.Context, rows []map[string]interface{}, mode models.ImportMode) (*models.AnalysisResult, error) {
	_, span := telemetry.Tracer.Start(ctx, "ImportService.Validate")
	defer span.End()

	if len(rows) == 0 {
		return nil, apperror.Validation("rows must not be empty", nil)
	}
	layout := s.resolver.ResolveAt(gridFromRecords(rows), 0)
	return s.analyze(layout, mode), nil
}

func (s *ImportService) analyze(layout *spreadsheet.Layout, mode models.ImportMode) *models.AnalysisResult {
	res := &models.AnalysisResult{
		TotalRows:       len(layout.Records),
		HeaderOffset:    layout.HeaderOffset,
		Detection:       string(layout.Detection),
		Columns:         layout.Columns,
		DetectedColumns: layout.DetectedColumns(),
		RequiredColumns: requiredColumns(mode),
		OptionalColumns: optionalColumns(mode),
		Errors:          []models.RowError{},
		Warnings:        []string{},
		Preview:         []models.ImportRow{},
	}
	for _, role := range []spreadsheet.Role{spreadsheet.RoleType, spreadsheet.RoleCompany, spreadsheet.RoleAmount} {
		if layout.Column(role) == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("no column found for %s", role))
		}
	}

	seen := make(map[string]int)
	for _, rec := range layout.Records {
		out := s.normalizer.Normalize(rec, layout, mode)
		res.Warnings = append(res.Warnings, out.Warnings...)
		if !out.Valid() {
			res.InvalidRows++
			res.Errors = append(res.Errors, models.RowError{Row: rec.Row, Errors: out.Errors, Data: rec.Strings()})
			continue
		}
		res.ValidRows++
		if key := out.Row.DedupKey; key != "" {
			if first, dup := seen[key]; dup {
				res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: duplicate key %q (first seen in row %d)", rec.Row, key, first))
			} else {
				seen[key] = rec.Row
			}
		}
		if len(res.Preview) < previewRows {
			res.Preview = append(res.Preview, out.Row)
		}
	}
	return res
}

// Import commits every valid row. Rows are handled in file order and a
// failing row never stops the rest.
func (s *ImportService) Import(ctx context.Context, actor models.Actor, u Upload, opts models.ImportOptions) (*models.ImportResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "ImportService.Import")
	defer span.End()

	if !opts.Mode.Valid() {
		opts.Mode = models.ImportFlexible
	}
	layout, err := s.load(u)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("import.rows", len(layout.Records)),
		attribute.Int("import.header_offset", layout.HeaderOffset),
	)

	known, err := s.repo.ImportKeys(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		seen[k] = true
	}

	res := &models.ImportResult{
		TotalRows:            len(layout.Records),
		HeaderOffset:         layout.HeaderOffset,
		Errors:               []models.RowError{},
		Warnings:             []string{},
		CreatedDiscrepancies: []string{},
	}

	for _, rec := range layout.Records {
		res.Processed++
		out := s.normalizer.Normalize(rec, layout, opts.Mode)
		res.Warnings = append(res.Warnings, out.Warnings...)
		if !out.Valid() {
			s.rowFailed(res, rec, out.Errors...)
			continue
		}

		row := out.Row
		if row.DedupKey != "" && seen[row.DedupKey] {
			if opts.SkipDuplicates {
				res.Skipped++
				res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: duplicate key %q skipped", row.Row, row.DedupKey))
				telemetry.ImportRows.WithLabelValues("skipped").Inc()
				continue
			}
			s.rowFailed(res, rec, fmt.Sprintf("duplicate key %q", row.DedupKey))
			continue
		}

		d, createdCustomer, err := s.importRow(ctx, actor, row, layout.HeaderOffset, opts.CreateNewCustomers)
		if err != nil {
			if errors.Is(err, interfaces.ErrAlreadyClaimed) || errors.Is(err, apperror.ErrDuplicate) {
				if opts.SkipDuplicates {
					res.Skipped++
					res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: duplicate key %q skipped", row.Row, row.DedupKey))
					telemetry.ImportRows.WithLabelValues("skipped").Inc()
					continue
				}
			}
			telemetry.Logger.Warn("Import row failed", zap.Int("row", row.Row), zap.Error(err))
			s.rowFailed(res, rec, rowErrorMessage(err))
			continue
		}

		if row.DedupKey != "" {
			seen[row.DedupKey] = true
		}
		if createdCustomer {
			res.Created++
		}
		res.SuccessCount++
		res.CreatedDiscrepancies = append(res.CreatedDiscrepancies, d.ID)
		telemetry.ImportRows.WithLabelValues("created").Inc()

		if opts.EmailNotification && d.InterventionLevel == models.InterventionAutonomous {
			s.notify(ctx, actor, d, res)
		}
	}

	s.recordActivity(ctx, actor, u.Filename, opts, res)

	telemetry.Logger.Info("Import finished",
		zap.String("file", u.Filename),
		zap.Int("total_rows", res.TotalRows),
		zap.Int("success", res.SuccessCount),
		zap.Int("errors", res.ErrorCount),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *ImportService) rowFailed(res *models.ImportResult, rec spreadsheet.Record, errs ...string) {
	res.ErrorCount++
	res.Errors = append(res.Errors, models.RowError{Row: rec.Row, Errors: errs, Data: rec.Strings()})
	telemetry.ImportRows.WithLabelValues("error").Inc()
}

func rowErrorMessage(err error) string {
	var appErr *apperror.AppError
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return err.Error()
	case errors.As(err, &appErr) && appErr.Status < 500:
		return appErr.Message
	default:
		return "failed to save row"
	}
}

func (s *ImportService) importRow(ctx context.Context, actor models.Actor, row models.ImportRow, headerOffset int, allowCreate bool) (*models.PaymentDiscrepancy, bool, error) {
	if row.DedupKey != "" {
		release, err := s.claims.Claim(ctx, row.DedupKey)
		if err != nil {
			return nil, false, err
		}
		defer release()
	}

	customer, created, err := s.customers.Resolve(ctx, row.Company, row.Email, allowCreate)
	if err != nil {
		return nil, false, err
	}

	amounts, err := s.calculator.Reconcile(row.Type, row.Amount)
	if err != nil {
		return nil, created, apperror.Validation(err.Error(), nil)
	}
	overdue := scoring.OverdueDays(row.DueDate, s.now())

	offset := headerOffset
	assessment, analysis := scoring.Analyze(scoring.AnalysisInput{
		Type:         row.Type,
		Amount:       amounts.Difference,
		RiskTier:     customer.RiskLevel,
		ImportSource: sourceImport,
		HeaderOffset: &offset,
		Extensions:   importExtensions(row),
	})

	tags := []string{sourceImport}
	if row.CategoryLabel != "" {
		tags = append(tags, row.CategoryLabel)
	}
	d := &models.PaymentDiscrepancy{
		ID:                uuid.NewString(),
		CustomerID:        customer.ID,
		Type:              row.Type,
		Status:            models.StatusDetected,
		Priority:          scoring.Priority(amounts.Difference, overdue),
		InterventionLevel: assessment.Level,
		ExpectedAmount:    amounts.Expected,
		ActualAmount:      amounts.Actual,
		DifferenceAmount:  amounts.Difference,
		DueDate:           row.DueDate,
		OverdueDays:       overdue,
		AIAnalysis:        analysis,
		Notes:             row.Notes,
		Tags:              tags,
	}
	if row.DedupKey != "" {
		key := row.DedupKey
		d.ImportKey = &key
	}
	if err := s.discrepancies.record(ctx, actor, d, customer, sourceImport); err != nil {
		return nil, created, err
	}
	return d, created, nil
}

// importExtensions records where in the sheet the discrepancy came from.
func importExtensions(row models.ImportRow) map[string]string {
	ext := map[string]string{"sheetRow": strconv.Itoa(row.Row)}
	if row.CategoryLabel != "" {
		ext["categoryLabel"] = row.CategoryLabel
	}
	if row.DedupKey != "" {
		ext["importKey"] = row.DedupKey
	}
	return ext
}

func (s *ImportService) notify(ctx context.Context, actor models.Actor, d *models.PaymentDiscrepancy, res *models.ImportResult) {
	result, err := s.discrepancies.SendEmail(ctx, actor, d.ID, SendRequest{Kind: mailer.KindReminder})
	switch {
	case err != nil:
		res.Warnings = append(res.Warnings, fmt.Sprintf("discrepancy %s: reminder not sent: %s", d.ID, rowErrorMessage(err)))
	case !result.Sent:
		res.Warnings = append(res.Warnings, fmt.Sprintf("discrepancy %s: reminder failed: %s", d.ID, result.Error))
	default:
		res.EmailsSent++
	}
}

func (s *ImportService) recordActivity(ctx context.Context, actor models.Actor, filename string, opts models.ImportOptions, res *models.ImportResult) {
	details, err := json.Marshal(map[string]interface{}{
		"filename":         filename,
		"mode":             opts.Mode,
		"totalRows":        res.TotalRows,
		"successCount":     res.SuccessCount,
		"errorCount":       res.ErrorCount,
		"skipped":          res.Skipped,
		"createdCustomers": res.Created,
		"headerOffset":     res.HeaderOffset,
	})
	if err != nil {
		return
	}
	entry := &models.ActivityLog{
		ID:      uuid.NewString(),
		Action:  models.ActivityDataImport,
		Details: details,
	}
	if actor.UserID != "" {
		entry.UserID = &actor.UserID
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		telemetry.Logger.Warn("Failed to record import activity", zap.Error(err))
	}
}

func (s *ImportService) History(ctx context.Context, page, limit int) ([]models.ActivityLog, models.Pagination, error) {
	page, limit = models.PageBounds(page, limit)
	items, total, err := s.activity.List(ctx, models.ActivityDataImport, page, limit)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(total, page, limit), nil
}

func requiredColumns(mode models.ImportMode) []string {
	cols := []string{string(spreadsheet.RoleType), string(spreadsheet.RoleCompany), string(spreadsheet.RoleAmount)}
	if mode == models.ImportStrict {
		cols = append(cols, string(spreadsheet.RoleEmail))
	}
	return cols
}

func optionalColumns(mode models.ImportMode) []string {
	var cols []string
	if mode != models.ImportStrict {
		cols = append(cols, string(spreadsheet.RoleEmail))
	}
	return append(cols, string(spreadsheet.RoleDueDate), string(spreadsheet.RoleNotes), string(spreadsheet.RoleDedupKey))
}

// gridFromRecords lays keyed rows out as a sheet with a header row. Columns
// are ordered by first appearance, keys within a row alphabetically.
func gridFromRecords(rows []map[string]interface{}) spreadsheet.Grid {
	var header []string
	index := make(map[string]int)
	for _, r := range rows {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := index[k]; !ok {
				index[k] = len(header)
				header = append(header, k)
			}
		}
	}

	raw := make([][]string, 0, len(rows)+1)
	raw = append(raw, header)
	for _, r := range rows {
		line := make([]string, len(header))
		for k, v := range r {
			line[index[k]] = stringify(v)
		}
		raw = append(raw, line)
	}
	return spreadsheet.GridFromStrings(raw)
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
