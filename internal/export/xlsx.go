package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

const (
	SheetSummary   = "Summary"
	SheetDaily     = "Daily"
	SheetProducts  = "Products"
	SheetCustomers = "Customers"
)

// XLSX builds a workbook with one sheet per report section.
func XLSX(rep domain.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetDaily, SheetProducts, SheetCustomers} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	m := rep.Metrics
	summary := [][]any{
		{"Metric", "Value"},
		{"Range", rep.Range.Label},
		{"Start", rep.Range.StartDate.Format("2006-01-02")},
		{"End", rep.Range.EndDate.Format("2006-01-02")},
		{"Total revenue", rep.TotalRevenue.InexactFloat64()},
		{"Total cost", rep.TotalCost.InexactFloat64()},
		{"Total profit", rep.TotalProfit.InexactFloat64()},
		{"Profit margin %", m.ProfitMarginPercent},
		{"Orders", m.TotalOrders},
		{"Average order value", m.AverageOrderValue.InexactFloat64()},
		{"Items sold", m.TotalItemsSold.InexactFloat64()},
		{"Items per order", m.AvgItemsPerOrder},
		{"Revenue growth %", m.RevenueGrowth},
		{"Previous revenue", m.PreviousRevenue.InexactFloat64()},
		{"Revenue per day", m.RevenuePerDay.InexactFloat64()},
		{"Sales per day", m.SalesPerDay},
		{"Unique customers", m.UniqueCustomers},
		{"Revenue per customer", m.AvgRevenuePerCustomer.InexactFloat64()},
		{"Inventory value", m.InventoryValue.InexactFloat64()},
		{"Inventory turnover", m.InventoryTurnover},
		{"Low stock products", rep.Inventory.LowStock},
		{"Out of stock products", rep.Inventory.OutOfStock},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}

	daily := make([][]any, 0, len(rep.DailyRevenue)+1)
	daily = append(daily, []any{"Date", "Revenue"})
	for _, p := range rep.DailyRevenue {
		daily = append(daily, []any{p.Date, p.Revenue.InexactFloat64()})
	}
	if err := writeRows(f, SheetDaily, daily); err != nil {
		return nil, err
	}

	products := make([][]any, 0, len(rep.TopProductsByRevenue)+1)
	products = append(products, []any{"Product ID", "Name", "Quantity", "Revenue"})
	for _, p := range rep.TopProductsByRevenue {
		products = append(products, []any{p.ProductID, p.Name, p.Quantity.InexactFloat64(), p.Revenue.InexactFloat64()})
	}
	if err := writeRows(f, SheetProducts, products); err != nil {
		return nil, err
	}

	customers := make([][]any, 0, len(rep.TopCustomers)+1)
	customers = append(customers, []any{"Customer ID", "Name", "Orders", "Revenue"})
	for _, c := range rep.TopCustomers {
		customers = append(customers, []any{c.CustomerID, c.Name, c.Orders, c.Revenue.InexactFloat64()})
	}
	if err := writeRows(f, SheetCustomers, customers); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
