package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/config"
)

var japaneseHeader = []string{"分類", "会社名", "金額", "to", "決済期日", "未入金内訳", "Key", "備考"}

func bannerSheet() [][]string {
	return [][]string{
		{"★ 売掛金差異一覧 ★"},
		{},
		{"締め日: 2024/03/31"},
		{},
		{"▼ペースト", "", "SLACK"},
		{},
		{"No", "Key"},
		japaneseHeader,
		{"未入金", "株式会社サンプル商事", "120000", "billing@sample.co.jp", "45382", "3月分", "K-001", ""},
		{"過入金", "テスト工業株式会社", "80000", "ar@test-kogyo.jp", "", "", "K-002", "確認中"},
	}
}

func TestResolveSkipsBannerRows(t *testing.T) {
	r := NewResolver(config.DefaultHeuristics())

	l := r.Resolve(GridFromStrings(bannerSheet()))

	assert.Equal(t, 7, l.HeaderOffset)
	assert.Equal(t, DetectionFixed, l.Detection)
	assert.Equal(t, "分類", l.Column(RoleType))
	assert.Equal(t, "会社名", l.Column(RoleCompany))
	assert.Equal(t, "金額", l.Column(RoleAmount))
	assert.Equal(t, "to", l.Column(RoleEmail))
	assert.Equal(t, "決済期日", l.Column(RoleDueDate))
	assert.Equal(t, "Key", l.Column(RoleDedupKey))
	assert.Equal(t, []string{"未入金内訳", "備考"}, l.NotesColumns)

	require.Len(t, l.Records, 2)
	assert.Equal(t, 9, l.Records[0].Row)
	assert.Equal(t, "株式会社サンプル商事", l.Records[0].Get("会社名").Text)
	assert.Equal(t, KindNumber, l.Records[0].Get("金額").Kind)
}

func TestResolveHeaderAtRowZero(t *testing.T) {
	r := NewResolver(config.DefaultHeuristics())

	l := r.Resolve(GridFromStrings([][]string{
		{"Category", "Customer Name", "Amount", "Email", "Due Date", "Notes"},
		{"unpaid", "Acme Trading Ltd", "5000", "ap@acme.test", "2024-03-01", "late"},
	}))

	assert.Equal(t, 0, l.HeaderOffset)
	assert.Equal(t, DetectionFixed, l.Detection)
	assert.Equal(t, "Category", l.Column(RoleType))
	assert.Equal(t, "Customer Name", l.Column(RoleCompany))
	assert.Equal(t, "Amount", l.Column(RoleAmount))
	assert.Equal(t, "Email", l.Column(RoleEmail))
	assert.Equal(t, "Due Date", l.Column(RoleDueDate))
	assert.Equal(t, []string{"Notes"}, l.NotesColumns)
	assert.Equal(t, 2, l.Records[0].Row)
}

func TestResolveFallbackScan(t *testing.T) {
	r := NewResolver(config.DefaultHeuristics())

	// too few columns for any fixed offset
	l := r.Resolve(GridFromStrings([][]string{
		{"★"},
		{"取引先", "請求額"},
		{"Globex Corporation", "250000"},
	}))

	assert.Equal(t, 1, l.HeaderOffset)
	assert.Equal(t, DetectionScan, l.Detection)
	assert.Equal(t, "取引先", l.Column(RoleCompany))
	assert.Equal(t, "請求額", l.Column(RoleAmount))
}

func TestResolveDefaultsToRowZero(t *testing.T) {
	r := NewResolver(config.DefaultHeuristics())

	l := r.Resolve(GridFromStrings([][]string{
		{"a", "b"},
		{"1", "2"},
	}))

	assert.Equal(t, 0, l.HeaderOffset)
	assert.Equal(t, DetectionDefault, l.Detection)
}

func TestResolveEmptyGrid(t *testing.T) {
	r := NewResolver(config.DefaultHeuristics())

	l := r.Resolve(nil)

	assert.Equal(t, DetectionDefault, l.Detection)
	assert.Empty(t, l.Records)
}

func TestStructuralFallback(t *testing.T) {
	r := NewResolver(config.DefaultHeuristics())

	l := r.Resolve(GridFromStrings([][]string{
		{"区分", "相手先", "請求", "連絡先", "メモ欄", "担当"},
		{"未入金", "Initech Holdings", "¥45,000", "x", "y", "z"},
	}))

	assert.Equal(t, "相手先", l.Column(RoleCompany))
	assert.Equal(t, "請求", l.Column(RoleAmount))
}

func TestShortSynonymNeedsExactMatch(t *testing.T) {
	r := NewResolver(config.DefaultHeuristics())

	l := r.Resolve(GridFromStrings([][]string{
		{"Type", "Company", "Total", "Contact", "Region", "Owner"},
		{"unpaid", "Umbrella Corp", "1000", "x", "y", "z"},
	}))

	_, hasEmail := l.Roles[RoleEmail]
	assert.False(t, hasEmail)
	assert.Equal(t, "Total", l.Column(RoleAmount), "structural fallback picks the numeric column")
}

func TestPlaceholderAndDuplicateKeys(t *testing.T) {
	columns, records := sheetAt(GridFromStrings([][]string{
		{"name", "", "name", ""},
		{"a", "b", "c", "d"},
		{},
		{"e"},
		{},
	}), 0, "__EMPTY")

	assert.Equal(t, []string{"name", "__EMPTY", "name_1", "__EMPTY_1"}, columns)
	require.Len(t, records, 3, "trailing blank rows are dropped")
	assert.True(t, records[1].IsEmpty())
	assert.Equal(t, 4, records[2].Row)
}

func TestFullWidthHeadersMatch(t *testing.T) {
	assert.True(t, matchesAny("ＥＭＡＩＬ", []string{"email"}))
	assert.True(t, matchesAny(" Billing Amount ", []string{"amount"}))
	assert.False(t, matchesAny("Tokyo", []string{"to"}))
}

func TestJapaneseSynonymSubstring(t *testing.T) {
	assert.True(t, matchesAny("請求金額", []string{"金額"}))
}
