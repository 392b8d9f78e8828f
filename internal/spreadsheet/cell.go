package spreadsheet

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
)

// Cell is one grid value. Text always holds the trimmed source text.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
}

// ParseCell classifies raw cell text. Workbook cells are read unformatted,
// so dates arrive as serial numbers.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{Kind: KindEmpty}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Cell{Kind: KindNumber, Text: s, Number: f}
	}
	return Cell{Kind: KindText, Text: s}
}

func (c Cell) IsEmpty() bool { return c.Kind == KindEmpty }

func (c Cell) String() string { return c.Text }

// Len is the length in characters, not bytes.
func (c Cell) Len() int { return utf8.RuneCountInString(c.Text) }

type Grid [][]Cell

func (g Grid) width(from int) int {
	w := 0
	for i := from; i < len(g); i++ {
		if len(g[i]) > w {
			w = len(g[i])
		}
	}
	return w
}

func (g Grid) cell(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}
	}
	return g[row][col]
}

func (g Grid) blankRow(row int) bool {
	for _, c := range g[row] {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// GridFromStrings builds a grid from already-split rows.
func GridFromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		g[i] = make([]Cell, len(row))
		for j, v := range row {
			g[i][j] = ParseCell(v)
		}
	}
	return g
}

// Fold normalizes a label for matching: NFKC width folding, trimmed, lower case.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

var numericNoise = strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "", " ", "", "$", "")

// CleanNumber strips grouping and currency marks and folds full-width digits.
func CleanNumber(s string) string {
	return numericNoise.Replace(norm.NFKC.String(strings.TrimSpace(s)))
}

// ParseNumber accepts grouped and currency-marked amounts such as "¥120,000"
// or full-width digits.
func ParseNumber(s string) (float64, bool) {
	cleaned := CleanNumber(s)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// LooksNumeric reports whether a cell carries a number, formatted or not.
func (c Cell) LooksNumeric() bool {
	if c.Kind == KindNumber {
		return true
	}
	if c.Kind != KindText {
		return false
	}
	_, ok := ParseNumber(c.Text)
	return ok
}
