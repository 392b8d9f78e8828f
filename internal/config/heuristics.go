package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed heuristics.yaml
var defaultHeuristics []byte

// Unknown category policies.
const (
	UnknownCategoryReject        = "reject"
	UnknownCategoryDefaultUnpaid = "default_unpaid"
)

// Heuristics holds the tables that drive spreadsheet header detection,
// column mapping and category resolution.
type Heuristics struct {
	HeaderOffsets        []int             `yaml:"header_offsets"`
	FallbackScanRows     int               `yaml:"fallback_scan_rows"`
	MinDetectedColumns   int               `yaml:"min_detected_columns"`
	MinCompanyNameLength int               `yaml:"min_company_name_length"`
	FallbackTextLength   int               `yaml:"fallback_text_length"`
	StructuralTextLength int               `yaml:"structural_text_length"`
	DecorationSubstrings []string          `yaml:"decoration_substrings"`
	BannerTokens         []string          `yaml:"banner_tokens"`
	PlaceholderPrefix    string            `yaml:"placeholder_prefix"`
	PlaceholderKeys      []string          `yaml:"placeholder_keys"`
	KnownCompanyMarkers  []string          `yaml:"known_company_markers"`
	Roles                RoleSynonyms      `yaml:"roles"`
	Categories           map[string]string `yaml:"categories"`
	UnknownCategory      string            `yaml:"unknown_category"`
	Reconciliation       RatioConfig       `yaml:"reconciliation"`
}

type RoleSynonyms struct {
	Type     []string `yaml:"type"`
	Company  []string `yaml:"company"`
	Amount   []string `yaml:"amount"`
	Email    []string `yaml:"email"`
	DueDate  []string `yaml:"due_date"`
	Notes    []string `yaml:"notes"`
	DedupKey []string `yaml:"dedup_key"`
}

// All returns every synonym of every role.
func (r RoleSynonyms) All() []string {
	var out []string
	for _, l := range [][]string{r.Type, r.Company, r.Amount, r.Email, r.DueDate, r.Notes, r.DedupKey} {
		out = append(out, l...)
	}
	return out
}

type RatioConfig struct {
	OverpaidExpected         string `yaml:"overpaid_expected_ratio"`
	PartialExpected          string `yaml:"partial_expected_ratio"`
	MultipleInvoicesExpected string `yaml:"multiple_invoices_expected_ratio"`
}

// Ratios are the parsed expected-amount multipliers.
type Ratios struct {
	OverpaidExpected         decimal.Decimal
	PartialExpected          decimal.Decimal
	MultipleInvoicesExpected decimal.Decimal
}

func (r RatioConfig) Parse() (Ratios, error) {
	var out Ratios
	var err error
	if out.OverpaidExpected, err = decimal.NewFromString(r.OverpaidExpected); err != nil {
		return out, fmt.Errorf("overpaid_expected_ratio: %w", err)
	}
	if out.PartialExpected, err = decimal.NewFromString(r.PartialExpected); err != nil {
		return out, fmt.Errorf("partial_expected_ratio: %w", err)
	}
	if out.MultipleInvoicesExpected, err = decimal.NewFromString(r.MultipleInvoicesExpected); err != nil {
		return out, fmt.Errorf("multiple_invoices_expected_ratio: %w", err)
	}
	return out, nil
}

// DefaultHeuristics returns the embedded tables.
func DefaultHeuristics() *Heuristics {
	h, err := ParseHeuristics(defaultHeuristics)
	if err != nil {
		panic(fmt.Sprintf("embedded heuristics: %v", err))
	}
	return h
}

// LoadHeuristics reads path when set and falls back to the embedded tables.
func LoadHeuristics(path string) (*Heuristics, error) {
	if path == "" {
		return DefaultHeuristics(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load heuristics %q: %w", path, err)
	}
	h, err := ParseHeuristics(data)
	if err != nil {
		return nil, fmt.Errorf("parse heuristics %q: %w", path, err)
	}
	return h, nil
}

func ParseHeuristics(data []byte) (*Heuristics, error) {
	var h Heuristics
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *Heuristics) Validate() error {
	if len(h.HeaderOffsets) == 0 {
		return fmt.Errorf("header_offsets must not be empty")
	}
	if len(h.Roles.Company) == 0 || len(h.Roles.Amount) == 0 {
		return fmt.Errorf("company and amount synonyms are required")
	}
	if len(h.Categories) == 0 {
		return fmt.Errorf("categories must not be empty")
	}
	switch h.UnknownCategory {
	case "":
		h.UnknownCategory = UnknownCategoryReject
	case UnknownCategoryReject, UnknownCategoryDefaultUnpaid:
	default:
		return fmt.Errorf("unknown_category %q is not supported", h.UnknownCategory)
	}
	if h.PlaceholderPrefix == "" {
		h.PlaceholderPrefix = "__EMPTY"
	}
	defaultInt(&h.FallbackScanRows, 15)
	defaultInt(&h.MinDetectedColumns, 6)
	defaultInt(&h.MinCompanyNameLength, 4)
	defaultInt(&h.FallbackTextLength, 5)
	defaultInt(&h.StructuralTextLength, 6)
	if _, err := h.Reconciliation.Parse(); err != nil {
		return err
	}
	return nil
}

func defaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
