package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

const (
	defaultTopN              = 10
	defaultLowStockThreshold = 10
)

var hundred = decimal.NewFromInt(100)

type RankBy string

const (
	ByRevenue  RankBy = "revenue"
	ByQuantity RankBy = "quantity"
)

// DatedSale is a sale whose CreatedAt parsed successfully. Day is the local
// calendar day used for bucketing.
type DatedSale struct {
	Sale domain.Sale
	At   time.Time
	Day  string
}

// Aggregation holds the running totals of one pass over in-range sales.
// Products and Customers are in first-seen order.
type Aggregation struct {
	Revenue        decimal.Decimal
	TotalCost      decimal.Decimal
	TotalItemsSold decimal.Decimal
	Orders         int
	DailyRevenue   map[string]decimal.Decimal
	Products       []domain.ProductRollup
	Customers      []domain.CustomerRollup
}

type Options struct {
	Location          *time.Location
	Now               func() time.Time
	TopN              int
	LowStockThreshold int
}

// Aggregator builds reports from raw snapshots. It holds no state between
// calls besides its configuration.
type Aggregator struct {
	loc               *time.Location
	now               func() time.Time
	topN              int
	lowStockThreshold int
}

func NewAggregator(opts Options) *Aggregator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TopN < 1 {
		opts.TopN = defaultTopN
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = defaultLowStockThreshold
	}
	return &Aggregator{
		loc:               opts.Location,
		now:               opts.Now,
		topN:              opts.TopN,
		lowStockThreshold: opts.LowStockThreshold,
	}
}

func (a *Aggregator) Location() *time.Location {
	return a.loc
}

func (a *Aggregator) ResolveDateRange(kind domain.RangeKind) domain.DateRange {
	return ResolveDateRange(kind, a.now().In(a.loc))
}

// Build runs the full report pipeline for one range over snapshot. limit < 1
// uses the configured top-N.
func (a *Aggregator) Build(snapshot domain.Snapshot, kind domain.RangeKind, limit int) domain.Report {
	if limit < 1 {
		limit = a.topN
	}
	dateRange := a.ResolveDateRange(kind)
	start, end := dateRange.StartDate, dateRange.EndDate

	dated := ParseSales(snapshot.Sales, a.loc)
	filtered := inRange(dated, start, end)
	agg := Aggregate(filtered, snapshot.Products, snapshot.Customers)

	growth, prevRevenue := PreviousPeriodGrowth(dated, start, end, agg.Revenue)
	metrics := ComputeBusinessMetrics(agg, snapshot.Products, DaysInRange(start, end))
	metrics.RevenueGrowth = growth
	metrics.PreviousRevenue = prevRevenue

	return domain.Report{
		Range:                 dateRange,
		GeneratedAt:           a.now().In(a.loc),
		TotalRevenue:          agg.Revenue,
		TotalCost:             agg.TotalCost,
		TotalProfit:           agg.Revenue.Sub(agg.TotalCost),
		DailyRevenue:          BuildDailySeries(agg.DailyRevenue, start, end),
		TopProductsByRevenue:  RankTopProducts(agg.Products, ByRevenue, limit),
		TopProductsByQuantity: RankTopProducts(agg.Products, ByQuantity, limit),
		TopCustomers:          RankTopCustomers(agg.Customers, limit),
		Metrics:               metrics,
		Inventory:             SummarizeInventory(snapshot.Products, a.lowStockThreshold),
	}
}

// ParseSales drops sales without a usable timestamp and stamps the rest with
// their local calendar day.
func ParseSales(sales []domain.Sale, loc *time.Location) []DatedSale {
	if loc == nil {
		loc = time.Local
	}
	dated := make([]DatedSale, 0, len(sales))
	for _, sale := range sales {
		at, ok := domain.ParseTimestamp(sale.CreatedAt, loc)
		if !ok {
			continue
		}
		local := at.In(loc)
		dated = append(dated, DatedSale{Sale: sale, At: local, Day: local.Format(dayLayout)})
	}
	return dated
}

// FilterSalesInRange keeps sales whose timestamp parses and falls within
// [start, end], both ends inclusive.
func FilterSalesInRange(sales []domain.Sale, start time.Time, end time.Time, loc *time.Location) []DatedSale {
	return inRange(ParseSales(sales, loc), start, end)
}

func inRange(sales []DatedSale, start time.Time, end time.Time) []DatedSale {
	kept := make([]DatedSale, 0, len(sales))
	for _, sale := range sales {
		if sale.At.Before(start) || sale.At.After(end) {
			continue
		}
		kept = append(kept, sale)
	}
	return kept
}

// Aggregate folds in-range sales into revenue, cost, daily buckets and
// per-product / per-customer rollups. Lookups are built from the full product
// and customer collections; items or customers that do not resolve are
// skipped without error.
func Aggregate(sales []DatedSale, products []domain.Product, customers []domain.Customer) Aggregation {
	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	agg := Aggregation{
		Revenue:        decimal.Zero,
		TotalCost:      decimal.Zero,
		TotalItemsSold: decimal.Zero,
		DailyRevenue:   make(map[string]decimal.Decimal),
	}
	productIdx := make(map[string]int)
	customerIdx := make(map[string]int)

	for _, ds := range sales {
		total := ds.Sale.Total.Decimal()
		agg.Orders++
		agg.Revenue = agg.Revenue.Add(total)
		agg.DailyRevenue[ds.Day] = agg.DailyRevenue[ds.Day].Add(total)

		for _, item := range domain.ParseLineItems(ds.Sale.Items) {
			product, ok := productMap[item.ProductID]
			if !ok {
				continue
			}
			qty := item.Quantity.Decimal()
			lineRevenue := item.Price.Decimal().Mul(qty)

			idx, seen := productIdx[product.ID]
			if !seen {
				idx = len(agg.Products)
				productIdx[product.ID] = idx
				agg.Products = append(agg.Products, domain.ProductRollup{
					ProductID: product.ID,
					Name:      product.Name,
					Revenue:   decimal.Zero,
					Quantity:  decimal.Zero,
				})
			}
			agg.Products[idx].Revenue = agg.Products[idx].Revenue.Add(lineRevenue)
			agg.Products[idx].Quantity = agg.Products[idx].Quantity.Add(qty)

			agg.TotalItemsSold = agg.TotalItemsSold.Add(qty)
			if product.Cost != nil {
				agg.TotalCost = agg.TotalCost.Add(product.Cost.Decimal().Mul(qty))
			}
		}

		if ds.Sale.CustomerID == "" {
			continue
		}
		customer, ok := customerMap[ds.Sale.CustomerID]
		if !ok {
			continue
		}
		idx, seen := customerIdx[customer.ID]
		if !seen {
			idx = len(agg.Customers)
			customerIdx[customer.ID] = idx
			agg.Customers = append(agg.Customers, domain.CustomerRollup{
				CustomerID: customer.ID,
				Name:       customer.Name,
				Revenue:    decimal.Zero,
			})
		}
		agg.Customers[idx].Revenue = agg.Customers[idx].Revenue.Add(total)
		agg.Customers[idx].Orders++
	}

	return agg
}

// BuildDailySeries emits one point per calendar day in [start, end], in
// order, with 0 for days without sales.
func BuildDailySeries(buckets map[string]decimal.Decimal, start time.Time, end time.Time) []domain.DailyRevenuePoint {
	series := make([]domain.DailyRevenuePoint, 0, DaysInRange(start, end))
	for day := startOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		revenue, ok := buckets[key]
		if !ok {
			revenue = decimal.Zero
		}
		series = append(series, domain.DailyRevenuePoint{Date: key, Revenue: revenue})
	}
	return series
}

// PreviousPeriodGrowth compares current revenue with the window of the same
// length immediately before start. Growth from nothing is reported as 100.
func PreviousPeriodGrowth(sales []DatedSale, start time.Time, end time.Time, current decimal.Decimal) (float64, decimal.Decimal) {
	length := end.Sub(start)
	prevStart := start.Add(-length)
	prevEnd := end.Add(-length)

	prev := decimal.Zero
	for _, sale := range inRange(sales, prevStart, prevEnd) {
		prev = prev.Add(sale.Sale.Total.Decimal())
	}

	switch {
	case prev.IsPositive():
		return current.Sub(prev).Div(prev).Mul(hundred).InexactFloat64(), prev
	case current.IsPositive():
		return 100, prev
	default:
		return 0, prev
	}
}

// ComputeBusinessMetrics derives the ratio metrics. Every division by zero
// yields 0. RevenueGrowth is filled in by the caller.
func ComputeBusinessMetrics(agg Aggregation, products []domain.Product, daysInRange int) domain.BusinessMetrics {
	if daysInRange < 1 {
		daysInRange = 1
	}
	days := decimal.NewFromInt(int64(daysInRange))
	orders := decimal.NewFromInt(int64(agg.Orders))
	profit := agg.Revenue.Sub(agg.TotalCost)

	inventoryValue := decimal.Zero
	for _, p := range products {
		inventoryValue = inventoryValue.Add(decimal.NewFromInt(int64(p.Stock)).Mul(p.Price.Decimal()))
	}

	metrics := domain.BusinessMetrics{
		TotalOrders:           agg.Orders,
		AverageOrderValue:     decimal.Zero,
		TotalItemsSold:        agg.TotalItemsSold,
		InventoryValue:        inventoryValue,
		DaysInRange:           daysInRange,
		SalesPerDay:           float64(agg.Orders) / float64(daysInRange),
		RevenuePerDay:         agg.Revenue.Div(days),
		PreviousRevenue:       decimal.Zero,
		UniqueCustomers:       len(agg.Customers),
		AvgRevenuePerCustomer: decimal.Zero,
	}
	if agg.Orders > 0 {
		metrics.AverageOrderValue = agg.Revenue.Div(orders)
		metrics.AvgItemsPerOrder = agg.TotalItemsSold.Div(orders).InexactFloat64()
	}
	if !inventoryValue.IsZero() {
		metrics.InventoryTurnover = agg.Revenue.Div(inventoryValue).InexactFloat64()
	}
	if !agg.Revenue.IsZero() {
		metrics.ProfitMarginPercent = profit.Div(agg.Revenue).Mul(hundred).InexactFloat64()
	}
	if len(agg.Customers) > 0 {
		metrics.AvgRevenuePerCustomer = agg.Revenue.Div(decimal.NewFromInt(int64(len(agg.Customers))))
	}
	return metrics
}

// RankTopProducts sorts a copy of rollups by the chosen field, descending.
// Ties keep their input (first-seen) order.
func RankTopProducts(rollups []domain.ProductRollup, by RankBy, limit int) []domain.ProductRollup {
	if limit < 1 {
		limit = defaultTopN
	}
	ranked := make([]domain.ProductRollup, len(rollups))
	copy(ranked, rollups)
	sort.SliceStable(ranked, func(i, j int) bool {
		if by == ByQuantity {
			return ranked[i].Quantity.GreaterThan(ranked[j].Quantity)
		}
		return ranked[i].Revenue.GreaterThan(ranked[j].Revenue)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func RankTopCustomers(rollups []domain.CustomerRollup, limit int) []domain.CustomerRollup {
	if limit < 1 {
		limit = defaultTopN
	}
	ranked := make([]domain.CustomerRollup, len(rollups))
	copy(ranked, rollups)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Revenue.GreaterThan(ranked[j].Revenue)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func SummarizeInventory(products []domain.Product, lowStockThreshold int) domain.InventorySummary {
	summary := domain.InventorySummary{
		Products:          len(products),
		LowStockThreshold: lowStockThreshold,
	}
	for _, p := range products {
		summary.UnitsInStock += p.Stock
		switch {
		case p.Stock <= 0:
			summary.OutOfStock++
		case p.Stock <= lowStockThreshold:
			summary.LowStock++
		}
	}
	return summary
}
