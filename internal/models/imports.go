package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImportMode selects how strictly spreadsheet rows are validated.
type ImportMode string

const (
	ImportStrict   ImportMode = "strict"
	ImportFlexible ImportMode = "flexible"
)

func (m ImportMode) Valid() bool {
	return m == ImportStrict || m == ImportFlexible
}

type ImportOptions struct {
	CreateNewCustomers bool       `json:"createNewCustomers"`
	SkipDuplicates     bool       `json:"skipDuplicates"`
	EmailNotification  bool       `json:"emailNotification"`
	Mode               ImportMode `json:"mode"`
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		CreateNewCustomers: true,
		SkipDuplicates:     true,
		EmailNotification:  false,
		Mode:               ImportFlexible,
	}
}

// ImportRow is a spreadsheet row that passed validation.
type ImportRow struct {
	Row           int             `json:"row"`
	Type          DiscrepancyType `json:"type"`
	CategoryLabel string          `json:"categoryLabel"`
	Company       string          `json:"company"`
	Amount        decimal.Decimal `json:"amount"`
	Email         string          `json:"email,omitempty"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	DedupKey      string          `json:"dedupKey,omitempty"`
}

type RowError struct {
	Row    int               `json:"row"`
	Errors []string          `json:"errors"`
	Data   map[string]string `json:"data,omitempty"`
}

type ImportResult struct {
	TotalRows            int        `json:"totalRows"`
	Processed            int        `json:"processed"`
	SuccessCount         int        `json:"successCount"`
	ErrorCount           int        `json:"errorCount"`
	Created              int        `json:"created"`
	Updated              int        `json:"updated"`
	Skipped              int        `json:"skipped"`
	EmailsSent           int        `json:"emailsSent"`
	HeaderOffset         int        `json:"headerOffset"`
	Errors               []RowError `json:"errors"`
	Warnings             []string   `json:"warnings"`
	CreatedDiscrepancies []string   `json:"createdDiscrepancies"`
}

type AnalysisResult struct {
	TotalRows       int               `json:"totalRows"`
	ValidRows       int               `json:"validRows"`
	InvalidRows     int               `json:"invalidRows"`
	HeaderOffset    int               `json:"headerOffset"`
	Detection       string            `json:"detection"`
	Columns         []string          `json:"columns"`
	DetectedColumns map[string]string `json:"detectedColumns"`
	RequiredColumns []string          `json:"requiredColumns"`
	OptionalColumns []string          `json:"optionalColumns"`
	Errors          []RowError        `json:"errors"`
	Warnings        []string          `json:"warnings"`
	Preview         []ImportRow       `json:"preview"`
}
