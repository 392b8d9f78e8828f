package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const MaxUploadBytes = 10 << 20

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrEmptyWorkbook     = errors.New("workbook has no sheets")
)

var allowedTypes = map[string]Format{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
	"application/vnd.ms-excel": FormatXLS,
	"text/csv":                 FormatCSV,
}

var extensions = map[string]Format{
	".xlsx": FormatXLSX,
	".xlsm": FormatXLSX,
	".xls":  FormatXLS,
	".csv":  FormatCSV,
}

// DetectFormat checks the declared MIME type and picks the parser from the
// file extension. Browsers often label .csv files as application/vnd.ms-excel,
// so the extension wins when both are known.
func DetectFormat(filename, contentType string) (Format, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	byType, ok := allowedTypes[mediaType]
	if !ok {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	}
	if byExt, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt, nil
	}
	return byType, nil
}

// Read extracts the first sheet as a grid.
func Read(r io.Reader, format Format) (Grid, error) {
	switch format {
	case FormatXLSX:
		return readWorkbook(r)
	case FormatXLS:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read workbook: %w", err)
		}
		if bytes.HasPrefix(data, ole2Magic) {
			return readLegacyWorkbook(data)
		}
		// Some exporters write OOXML under an .xls name.
		return readWorkbook(bytes.NewReader(data))
	case FormatCSV:
		return readCSV(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

func readWorkbook(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return GridFromStrings(rows), nil
}

var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// readLegacyWorkbook reads a BIFF8 .xls. Cells come back as displayed text.
func readLegacyWorkbook(data []byte) (g Grid, err error) {
	// The BIFF parser panics on truncated streams.
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("parse legacy workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrEmptyWorkbook
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyWorkbook
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return GridFromStrings(rows), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV accepts UTF-8 (with or without BOM) and falls back to Shift_JIS,
// which is what Excel writes for Japanese locales.
func readCSV(r io.Reader) (Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return GridFromStrings(rows), nil
}

// ExcelDate converts an Excel serial day number to a time.
func ExcelDate(serial float64) (time.Time, error) {
	return excelize.ExcelDateToTime(serial, false)
}
