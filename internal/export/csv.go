package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

// CSV flattens a report into section,key,value rows.
func CSV(rep domain.Report) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	row := func(section string, key string, value string) {
		_ = w.Write([]string{section, key, value})
	}

	m := rep.Metrics
	row("section", "key", "value")
	row("summary", "range", string(rep.Range.Kind))
	row("summary", "label", rep.Range.Label)
	row("summary", "start_date", rep.Range.StartDate.Format(time.RFC3339))
	row("summary", "end_date", rep.Range.EndDate.Format(time.RFC3339))
	row("summary", "generated_at", rep.GeneratedAt.Format(time.RFC3339))
	row("summary", "total_revenue", rep.TotalRevenue.StringFixed(2))
	row("summary", "total_cost", rep.TotalCost.StringFixed(2))
	row("summary", "total_profit", rep.TotalProfit.StringFixed(2))
	row("metrics", "total_orders", strconv.Itoa(m.TotalOrders))
	row("metrics", "average_order_value", m.AverageOrderValue.StringFixed(2))
	row("metrics", "total_items_sold", m.TotalItemsSold.String())
	row("metrics", "avg_items_per_order", formatFloat(m.AvgItemsPerOrder))
	row("metrics", "inventory_value", m.InventoryValue.StringFixed(2))
	row("metrics", "inventory_turnover", formatFloat(m.InventoryTurnover))
	row("metrics", "profit_margin_percent", formatFloat(m.ProfitMarginPercent))
	row("metrics", "days_in_range", strconv.Itoa(m.DaysInRange))
	row("metrics", "sales_per_day", formatFloat(m.SalesPerDay))
	row("metrics", "revenue_per_day", m.RevenuePerDay.StringFixed(2))
	row("metrics", "revenue_growth", formatFloat(m.RevenueGrowth))
	row("metrics", "previous_revenue", m.PreviousRevenue.StringFixed(2))
	row("metrics", "unique_customers", strconv.Itoa(m.UniqueCustomers))
	row("metrics", "avg_revenue_per_customer", m.AvgRevenuePerCustomer.StringFixed(2))
	row("inventory", "products", strconv.Itoa(rep.Inventory.Products))
	row("inventory", "units_in_stock", strconv.Itoa(rep.Inventory.UnitsInStock))
	row("inventory", "low_stock", strconv.Itoa(rep.Inventory.LowStock))
	row("inventory", "out_of_stock", strconv.Itoa(rep.Inventory.OutOfStock))

	for _, p := range rep.DailyRevenue {
		row("daily", p.Date, p.Revenue.StringFixed(2))
	}
	for _, p := range rep.TopProductsByRevenue {
		row("top_product_revenue", p.Name, p.Revenue.StringFixed(2))
	}
	for _, p := range rep.TopProductsByQuantity {
		row("top_product_quantity", p.Name, p.Quantity.String())
	}
	for _, c := range rep.TopCustomers {
		row("top_customer", c.Name, c.Revenue.StringFixed(2))
	}

	w.Flush()
	return buf.Bytes()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
