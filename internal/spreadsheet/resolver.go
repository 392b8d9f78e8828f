package spreadsheet

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akylbek/ar-system/discrepancy-service/internal/config"
)

type Role string

const (
	RoleType     Role = "type"
	RoleCompany  Role = "company"
	RoleAmount   Role = "amount"
	RoleEmail    Role = "email"
	RoleDueDate  Role = "dueDate"
	RoleNotes    Role = "notes"
	RoleDedupKey Role = "dedupKey"
)

// Detection tells how the header row was chosen.
type Detection string

const (
	DetectionFixed   Detection = "fixed"
	DetectionScan    Detection = "scan"
	DetectionDefault Detection = "default"
	DetectionGiven   Detection = "given"
)

// Record is one data row keyed by header name. Row is the 1-based sheet row.
type Record struct {
	Row    int
	Values map[string]Cell
}

func (r Record) Get(key string) Cell {
	if key == "" {
		return Cell{}
	}
	return r.Values[key]
}

func (r Record) IsEmpty() bool {
	for _, v := range r.Values {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

// Strings flattens the record for error reports.
func (r Record) Strings() map[string]string {
	out := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		out[k] = v.Text
	}
	return out
}

// Layout is the resolved shape of a sheet.
type Layout struct {
	HeaderOffset int
	Detection    Detection
	Columns      []string
	Roles        map[Role]string
	NotesColumns []string
	Records      []Record
}

func (l *Layout) Column(role Role) string {
	return l.Roles[role]
}

// DetectedColumns maps role names to column keys for API responses.
func (l *Layout) DetectedColumns() map[string]string {
	out := make(map[string]string, len(l.Roles)+1)
	for role, col := range l.Roles {
		out[string(role)] = col
	}
	if len(l.NotesColumns) > 0 {
		out[string(RoleNotes)] = strings.Join(l.NotesColumns, ", ")
	}
	return out
}

// Resolver finds the header row of a sheet and maps semantic roles onto its
// columns. It never fails; a sheet it cannot make sense of is parsed with
// row 0 as header.
type Resolver struct {
	h            *config.Heuristics
	bannerTokens map[string]struct{}
	placeholders map[string]struct{}
}

func NewResolver(h *config.Heuristics) *Resolver {
	r := &Resolver{
		h:            h,
		bannerTokens: make(map[string]struct{}),
		placeholders: make(map[string]struct{}),
	}
	// Header vocabulary is never a company name.
	for _, t := range append(append([]string{}, h.BannerTokens...), h.Roles.All()...) {
		r.bannerTokens[Fold(t)] = struct{}{}
	}
	for _, p := range h.PlaceholderKeys {
		r.placeholders[p] = struct{}{}
	}
	return r
}

func (r *Resolver) Resolve(g Grid) *Layout {
	offset, detection := r.headerOffset(g)
	columns, records := sheetAt(g, offset, r.h.PlaceholderPrefix)

	l := &Layout{
		HeaderOffset: offset,
		Detection:    detection,
		Columns:      columns,
		Roles:        make(map[Role]string),
		Records:      records,
	}
	r.mapRoles(l)
	return l
}

// ResolveAt maps roles with a known header row.
func (r *Resolver) ResolveAt(g Grid, offset int) *Layout {
	columns, records := sheetAt(g, offset, r.h.PlaceholderPrefix)
	l := &Layout{
		HeaderOffset: offset,
		Detection:    DetectionGiven,
		Columns:      columns,
		Roles:        make(map[Role]string),
		Records:      records,
	}
	r.mapRoles(l)
	return l
}

func (r *Resolver) headerOffset(g Grid) (int, Detection) {
	for _, offset := range r.h.HeaderOffsets {
		if offset < 0 || offset >= len(g) {
			continue
		}
		_, records := sheetAt(g, offset, r.h.PlaceholderPrefix)
		if first, ok := firstData(records); ok && r.acceptable(first) {
			return offset, DetectionFixed
		}
	}

	for offset := 0; offset <= r.h.FallbackScanRows && offset < len(g); offset++ {
		_, records := sheetAt(g, offset, r.h.PlaceholderPrefix)
		first, ok := firstData(records)
		if !ok {
			continue
		}
		for _, v := range first.Values {
			if v.Kind == KindText && v.Len() >= r.h.FallbackTextLength && !r.decorated(v.Text) {
				return offset, DetectionScan
			}
		}
	}

	return 0, DetectionDefault
}

// acceptable applies the header test to the first data row under a
// candidate header.
func (r *Resolver) acceptable(first Record) bool {
	if len(first.Values) < r.h.MinDetectedColumns {
		return false
	}

	hasCompany := false
	for _, v := range first.Values {
		if v.Kind != KindText {
			continue
		}
		if r.knownCompany(v.Text) {
			hasCompany = true
			break
		}
		if v.Len() >= r.h.MinCompanyNameLength && !r.decorated(v.Text) && !r.bannerToken(v.Text) {
			hasCompany = true
			break
		}
	}
	if !hasCompany {
		return false
	}

	for key := range first.Values {
		if !r.placeholder(key) {
			return true
		}
	}
	return false
}

func (r *Resolver) decorated(s string) bool {
	for _, d := range r.h.DecorationSubstrings {
		if strings.Contains(s, d) {
			return true
		}
	}
	return false
}

func (r *Resolver) bannerToken(s string) bool {
	_, ok := r.bannerTokens[Fold(s)]
	return ok
}

func (r *Resolver) knownCompany(s string) bool {
	for _, m := range r.h.KnownCompanyMarkers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (r *Resolver) placeholder(key string) bool {
	if strings.HasPrefix(key, r.h.PlaceholderPrefix) {
		return true
	}
	_, ok := r.placeholders[key]
	return ok
}

func (r *Resolver) mapRoles(l *Layout) {
	claimed := make(map[string]bool)
	named := []struct {
		role     Role
		synonyms []string
	}{
		{RoleType, r.h.Roles.Type},
		{RoleCompany, r.h.Roles.Company},
		{RoleAmount, r.h.Roles.Amount},
		{RoleEmail, r.h.Roles.Email},
		{RoleDueDate, r.h.Roles.DueDate},
		{RoleDedupKey, r.h.Roles.DedupKey},
	}
	for _, n := range named {
		for _, col := range l.Columns {
			if claimed[col] || r.placeholder(col) {
				continue
			}
			if matchesAny(col, n.synonyms) {
				l.Roles[n.role] = col
				claimed[col] = true
				break
			}
		}
	}
	for _, col := range l.Columns {
		if !claimed[col] && !r.placeholder(col) && matchesAny(col, r.h.Roles.Notes) {
			l.NotesColumns = append(l.NotesColumns, col)
			claimed[col] = true
		}
	}

	sample, ok := firstData(l.Records)
	if !ok {
		return
	}
	if _, found := l.Roles[RoleCompany]; !found {
		for _, col := range l.Columns {
			v := sample.Get(col)
			if !claimed[col] && v.Kind == KindText && !v.LooksNumeric() && v.Len() >= r.h.StructuralTextLength && !r.decorated(v.Text) {
				l.Roles[RoleCompany] = col
				claimed[col] = true
				break
			}
		}
	}
	if _, found := l.Roles[RoleAmount]; !found {
		for _, col := range l.Columns {
			if !claimed[col] && sample.Get(col).LooksNumeric() {
				l.Roles[RoleAmount] = col
				claimed[col] = true
				break
			}
		}
	}
}

// matchesAny does case-insensitive substring matching. ASCII synonyms of one
// or two letters, such as "to", must equal the whole column name.
func matchesAny(column string, synonyms []string) bool {
	c := Fold(column)
	for _, s := range synonyms {
		f := Fold(s)
		if f == "" {
			continue
		}
		if len(f) <= 2 && utf8.RuneCountInString(f) == len(f) {
			if c == f {
				return true
			}
			continue
		}
		if strings.Contains(c, f) {
			return true
		}
	}
	return false
}

// sheetAt reads the grid with row offset as the header. Empty header cells
// get placeholder keys and repeated names get a numeric suffix. Trailing
// blank rows are dropped; blank rows between data rows are kept so they can
// be reported.
func sheetAt(g Grid, offset int, placeholderPrefix string) ([]string, []Record) {
	if offset < 0 || offset >= len(g) {
		return nil, nil
	}

	width := g.width(offset)
	columns := make([]string, width)
	seen := make(map[string]int)
	for j := 0; j < width; j++ {
		name := g.cell(offset, j).Text
		if name == "" {
			name = placeholderPrefix
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 0
		}
		columns[j] = name
	}

	last := len(g) - 1
	for last > offset && g.blankRow(last) {
		last--
	}

	var records []Record
	for i := offset + 1; i <= last; i++ {
		values := make(map[string]Cell)
		for j := 0; j < width; j++ {
			if c := g.cell(i, j); !c.IsEmpty() {
				values[columns[j]] = c
			}
		}
		records = append(records, Record{Row: i + 1, Values: values})
	}
	return columns, records
}

func firstData(records []Record) (Record, bool) {
	for _, rec := range records {
		if len(rec.Values) > 0 {
			return rec, true
		}
	}
	return Record{}, false
}
