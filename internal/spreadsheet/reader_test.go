package spreadsheet

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        Format
		wantErr     bool
	}{
		{"xlsx", "ar.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX, false},
		{"csv labelled as excel", "ar.csv", "application/vnd.ms-excel", FormatCSV, false},
		{"csv with charset", "ar.csv", "text/csv; charset=utf-8", FormatCSV, false},
		{"unknown extension uses mime", "export", "text/csv", FormatCSV, false},
		{"pdf rejected", "ar.pdf", "application/pdf", "", true},
		{"xlsx name with wrong mime", "ar.xlsx", "application/zip", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"分類", "会社名", "金額"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"未入金", "株式会社サンプル", 120000}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	g, err := Read(bytes.NewReader(buf.Bytes()), FormatXLSX)
	require.NoError(t, err)

	require.Len(t, g, 2)
	assert.Equal(t, "会社名", g[0][1].Text)
	assert.Equal(t, KindNumber, g[1][2].Kind)
	assert.Equal(t, float64(120000), g[1][2].Number)
}

func TestReadCSVWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("分類,会社名,金額\n未入金,株式会社サンプル,\"120,000\"\n")...)

	g, err := Read(bytes.NewReader(data), FormatCSV)
	require.NoError(t, err)

	require.Len(t, g, 2)
	assert.Equal(t, "分類", g[0][0].Text)
	assert.Equal(t, KindText, g[1][2].Kind)
	assert.True(t, g[1][2].LooksNumeric())
}

func TestReadCSVShiftJIS(t *testing.T) {
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("会社名,金額\n株式会社テスト,5000\n"))
	require.NoError(t, err)

	g, err := Read(bytes.NewReader(encoded), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "会社名", g[0][0].Text)
	assert.Equal(t, "株式会社テスト", g[1][0].Text)
}

func TestReadLegacyXLS(t *testing.T) {
	data, err := os.ReadFile("testdata/receivables.xls")
	require.NoError(t, err)

	g, err := Read(bytes.NewReader(data), FormatXLS)
	require.NoError(t, err)

	require.Len(t, g, 3)
	assert.Equal(t, "Customer Name", g[0][1].Text)
	assert.Equal(t, "Acme Trading Ltd", g[1][1].Text)
	assert.Equal(t, KindNumber, g[1][2].Kind)
	assert.Equal(t, float64(5000), g[1][2].Number)
	assert.Equal(t, 12500.5, g[2][2].Number)
}

func TestReadXLSNamedOOXML(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]interface{}{"会社名", "金額"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	g, err := Read(bytes.NewReader(buf.Bytes()), FormatXLS)
	require.NoError(t, err)
	assert.Equal(t, "金額", g[0][1].Text)
}

func TestReadTruncatedXLS(t *testing.T) {
	data, err := os.ReadFile("testdata/receivables.xls")
	require.NoError(t, err)

	// header, allocation table and directory, but no workbook stream
	_, err = Read(bytes.NewReader(data[:1536]), FormatXLS)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseNumber(t *testing.T) {
	tests := map[string]float64{
		"120000":   120000,
		"¥120,000": 120000,
		"１２０００":    12000,
		"5,000円":   5000,
	}
	for in, want := range tests {
		got, ok := ParseNumber(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseNumber("abc")
	assert.False(t, ok)
	_, ok = ParseNumber("Inf")
	assert.False(t, ok)
}
