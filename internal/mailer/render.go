package mailer

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Email kinds accepted by the send endpoints.
const (
	KindReminder = "reminder"
	KindInquiry  = "inquiry"
	KindCustom   = "custom"
)

const (
	unsetDueDate    = "未設定"
	noCustomMessage = "カスタムメッセージが設定されていません。"
)

// Render substitutes {{name}} placeholders. Unknown names are left as they are.
func Render(tmpl string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Variables returns the template variables of a discrepancy.
func Variables(d *models.PaymentDiscrepancy, customer *models.Customer, senderName, companyName string) map[string]string {
	vars := map[string]string{
		"senderName":       senderName,
		"companyName":      companyName,
		"invoiceNumber":    InvoiceNumber(d.ID),
		"amount":           FormatAmount(d.ExpectedAmount),
		"expectedAmount":   FormatAmount(d.ExpectedAmount),
		"actualAmount":     FormatAmount(d.ActualAmount),
		"differenceAmount": FormatAmount(d.DifferenceAmount.Abs()),
		"dueDate":          unsetDueDate,
		"overdueDays":      "0",
		"discrepancyType":  string(d.Type),
	}
	if customer != nil {
		vars["customerName"] = customer.Name
		vars["customerCode"] = customer.CustomerCode
	}
	if d.DueDate != nil {
		vars["dueDate"] = d.DueDate.Format("2006/01/02")
	}
	if d.OverdueDays != nil {
		vars["overdueDays"] = strconv.Itoa(*d.OverdueDays)
	}
	for k, v := range vars {
		vars[k] = html.EscapeString(v)
	}
	return vars
}

// InvoiceNumber derives a display invoice number from the last six
// characters of an id.
func InvoiceNumber(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return "INV-" + id
}

var amountPrinter = message.NewPrinter(language.Japanese)

// FormatAmount renders an amount with digit grouping, e.g. 1,234,567.
func FormatAmount(d decimal.Decimal) string {
	return amountPrinter.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}

// Builtin returns the subject and body used when no stored template is chosen.
func Builtin(kind, customMessage string) (subject, body string) {
	switch kind {
	case KindInquiry:
		return "お支払い状況の確認 - {{customerName}}様",
			"{{customerName}}様\n\nお支払い状況についてご確認させていただきたく、ご連絡いたします。\n\n金額: ¥{{differenceAmount}}\n請求番号: {{invoiceNumber}}\n\nご不明な点がございましたら、お気軽にお問い合わせください。"
	case KindCustom:
		if customMessage == "" {
			customMessage = noCustomMessage
		}
		return "ご連絡 - {{customerName}}様", customMessage
	default:
		return "お支払いのお願い - {{customerName}}様",
			"{{customerName}}様\n\nいつもお世話になっております。\n\n未払い金額: ¥{{differenceAmount}}\n期日: {{dueDate}}\n請求番号: {{invoiceNumber}}\n\nお支払いのご確認をお願いいたします。"
	}
}

// Compose prepends the custom message and appends the signature.
func Compose(customMessage, body, signature string) string {
	if customMessage != "" {
		body = customMessage + "\n\n" + body
	}
	if signature != "" {
		body += "\n\n" + signature
	}
	return body
}

func ToHTML(body string) string {
	return strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "<br>")
}

// SplitAddresses parses a comma or semicolon separated address list.
func SplitAddresses(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Placeholders lists the distinct variable names used in the given texts.
func Placeholders(texts ...string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range texts {
		for _, m := range placeholderRe.FindAllStringSubmatch(t, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}
