package export

import (
	"bytes"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

var reportHTMLTmpl = template.Must(template.New("sales-report").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"pct":   func(v float64) string { return decimal.NewFromFloat(v).StringFixed(1) + "%" },
	"ratio": func(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) },
	"date":  func(r domain.DateRange) string { return r.StartDate.Format("02 Jan 2006") + " to " + r.EndDate.Format("02 Jan 2006") },
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Sales Report {{.Range.Label}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Sales Report: {{.Range.Label}}</h2>
  <p>{{date .Range}}</p>
  <p>Revenue: {{money .TotalRevenue}} | Cost: {{money .TotalCost}} | Profit: {{money .TotalProfit}} | Margin: {{pct .Metrics.ProfitMarginPercent}}</p>
  <p>Orders: {{.Metrics.TotalOrders}} | Avg order: {{money .Metrics.AverageOrderValue}} | Items/order: {{ratio .Metrics.AvgItemsPerOrder}} | Growth: {{pct .Metrics.RevenueGrowth}}</p>
  <p>Customers: {{.Metrics.UniqueCustomers}} | Inventory value: {{money .Metrics.InventoryValue}} | Turnover: {{ratio .Metrics.InventoryTurnover}} | Low stock: {{.Inventory.LowStock}} | Out of stock: {{.Inventory.OutOfStock}}</p>

  <h3>Top Products by Revenue</h3>
  <table>
    <thead><tr><th>Product</th><th>Quantity</th><th>Revenue</th></tr></thead>
    <tbody>{{range .TopProductsByRevenue}}<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .Revenue}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Products by Quantity</h3>
  <table>
    <thead><tr><th>Product</th><th>Quantity</th><th>Revenue</th></tr></thead>
    <tbody>{{range .TopProductsByQuantity}}<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .Revenue}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Customers</h3>
  <table>
    <thead><tr><th>Customer</th><th>Orders</th><th>Revenue</th></tr></thead>
    <tbody>{{range .TopCustomers}}<tr><td>{{.Name}}</td><td class="num">{{.Orders}}</td><td class="num">{{money .Revenue}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Daily Revenue</h3>
  <table>
    <thead><tr><th>Date</th><th>Revenue</th></tr></thead>
    <tbody>{{range .DailyRevenue}}<tr><td>{{.Date}}</td><td class="num">{{money .Revenue}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

// HTML renders a printable page. Names are escaped by html/template.
func HTML(rep domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportHTMLTmpl.Execute(&buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
