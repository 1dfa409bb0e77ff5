package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// invoiceTemplate is the HTML layout of an invoice
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.Number}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 12px; color: #222; }
  header { display: flex; justify-content: space-between; border-bottom: 2px solid #222; padding-bottom: 8px; }
  h1 { font-size: 22px; margin: 0; }
  .muted { color: #666; }
  .addresses { display: flex; justify-content: space-between; margin: 16px 0; }
  table { width: 100%; border-collapse: collapse; }
  th, td { padding: 6px 4px; border-bottom: 1px solid #ddd; text-align: left; }
  td.num, th.num { text-align: right; }
  .totals td { border: none; }
  .totals .grand td { font-weight: bold; border-top: 2px solid #222; }
  .status { text-transform: uppercase; font-weight: bold; }
</style>
</head>
<body>
<header>
  <div>
    <h1>{{.CompanyName}}</h1>
    {{with .CompanyAddress}}<div class="muted">{{.}}</div>{{end}}
  </div>
  <div>
    <div><strong>Invoice</strong> {{.Number}}</div>
    <div class="muted">Date {{formatDate .PlacedAt}}</div>
    <div class="status">{{title .Status}}</div>
  </div>
</header>
<section class="addresses">
  <div>
    <div class="muted">Ship to</div>
    <div>{{.Address.Recipient}}</div>
    <div>{{.Address.Line1}}</div>
    {{with .Address.Line2}}<div>{{.}}</div>{{end}}
    <div>{{.Address.City}}{{with .Address.State}}, {{.}}{{end}} {{.Address.PostalCode}}</div>
    <div>{{.Address.Country}}</div>
    <div class="muted">{{.Address.Phone}}</div>
  </div>
</section>
<table>
  <thead>
    <tr><th>SKU</th><th>Item</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr>
  </thead>
  <tbody>
  {{range .Lines}}
    <tr>
      <td>{{.SKU}}</td>
      <td>{{.Name}}</td>
      <td class="num">{{.Quantity}}</td>
      <td class="num">{{money .UnitPrice}}</td>
      <td class="num">{{money .LineTotal}}</td>
    </tr>
  {{end}}
  </tbody>
</table>
<table class="totals">
  <tr><td class="num">Subtotal</td><td class="num">{{money .Subtotal}}</td></tr>
  <tr><td class="num">Shipping</td><td class="num">{{if .ShippingFee.IsZero}}Free{{else}}{{money .ShippingFee}}{{end}}</td></tr>
  <tr class="grand"><td class="num">Total</td><td class="num">{{money .Total}}</td></tr>
</table>
{{with .Notes}}<p class="muted">Notes: {{.}}</p>{{end}}
</body>
</html>`

// invoiceLine is one row of the item table
type invoiceLine struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// invoiceAddress is the printed shipping address
type invoiceAddress struct {
	Recipient  string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// invoiceData is the template input
type invoiceData struct {
	CompanyName    string
	CompanyAddress string
	Number         string
	Status         string
	PlacedAt       time.Time
	Address        invoiceAddress
	Lines          []invoiceLine
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	Total          decimal.Decimal
	Notes          string
}

// TemplateEngine executes the invoice template
type TemplateEngine struct {
	tmpl *template.Template
}

// NewTemplateEngine parses the invoice template. currency is printed in
// front of every amount.
func NewTemplateEngine(currency string) (*TemplateEngine, error) {
	funcs := template.FuncMap{
		"money":      func(d decimal.Decimal) string { return formatMoney(currency, d) },
		"formatDate": formatDate,
		"title":      titleCase,
	}
	tmpl, err := template.New("invoice").Funcs(funcs).Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrTemplate, err)
	}
	return &TemplateEngine{tmpl: tmpl}, nil
}

// Execute renders data to HTML
func (e *TemplateEngine) Execute(data invoiceData) (string, error) {
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: execute: %w", ErrTemplate, err)
	}
	return buf.String(), nil
}

// formatMoney prints an amount with thousand separators and two decimals.
// Example: ("USD", 1234.5) -> "USD 1,234.50"
func formatMoney(currency string, d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")
	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteRune(',')
		}
		grouped.WriteRune(c)
	}

	amount := sign + grouped.String() + "." + decPart
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// titleCase converts string to title case using proper Unicode handling
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
